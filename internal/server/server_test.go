package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"codeberg.org/snonux/polyglot/internal/config"
	"codeberg.org/snonux/polyglot/internal/history"
	"codeberg.org/snonux/polyglot/internal/models"
	"codeberg.org/snonux/polyglot/internal/session"
	"codeberg.org/snonux/polyglot/internal/storage"
	"codeberg.org/snonux/polyglot/internal/testutil"
	"codeberg.org/snonux/polyglot/internal/translation"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	server    *Server
	session   *session.Session
	completer *testutil.MockCompleter
	dir       string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	completer := testutil.NewMockCompleter(map[string]string{"hello": "bonjour"})
	completer.Errors["fail"] = translation.ErrStatus

	sess, err := session.New(context.Background(), storage.NewMemory(), completer)
	if err != nil {
		t.Fatalf("session.New failed: %v", err)
	}
	t.Cleanup(sess.Close)

	dir := t.TempDir()
	return &testServer{
		server:    New(sess, Options{ArchiveDir: dir, Quiet: true}),
		session:   sess,
		completer: completer,
		dir:       dir,
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestGetState(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var snap map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"config", "lastTranslate", "translateText", "translator", "history"} {
		if _, ok := snap[key]; !ok {
			t.Errorf("state missing %q: %s", key, rec.Body.String())
		}
	}
	if !strings.Contains(string(snap["config"]), `"openaiApiUrl":"https://api.lxd.tw"`) {
		t.Errorf("unexpected config: %s", snap["config"])
	}
}

func TestConfigRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/api/config", `{"currentModel":"gpt-4o","temperatureParam":0.2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[config.Values](t, rec)
	if got.CurrentModel != config.ModelGPT4o || got.TemperatureParam != 0.2 || !got.StreamEnabled {
		t.Errorf("merged config = %+v", got)
	}

	rec = ts.do(t, http.MethodGet, "/api/config", "")
	if decode[config.Values](t, rec) != got {
		t.Errorf("GET config does not match the written one")
	}

	rec = ts.do(t, http.MethodDelete, "/api/config", "")
	if rec.Code != http.StatusOK || decode[config.Values](t, rec) != config.Defaults() {
		t.Errorf("reset did not restore defaults: %s", rec.Body.String())
	}

	if rec := ts.do(t, http.MethodPut, "/api/config", `{"streamEnabled":"yes"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid body status = %d", rec.Code)
	}
}

func TestTranslatorRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/api/translator/last", `{"fromLang":"en","toLang":"de"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := ts.session.LastTranslate(); got != (session.LastTranslate{FromLanguage: "en", ToLanguage: "de"}) {
		t.Errorf("LastTranslate = %+v", got)
	}

	rec = ts.do(t, http.MethodPut, "/api/translator/text", `{"text":"draft"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ts.session.TranslateText() != "draft" {
		t.Errorf("TranslateText = %q", ts.session.TranslateText())
	}
}

func TestTranslate_Wait(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/translate?wait=true", `{"text":"hello","fromLang":"auto","toLang":"fr"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[TranslateResponse](t, rec)
	if resp.Result != "bonjour" || resp.Seq == 0 {
		t.Errorf("unexpected response: %+v", resp)
	}

	records := decode[[]history.Record](t, ts.do(t, http.MethodGet, "/api/history", ""))
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.FromLanguage != "auto" || r.ToLanguage != "fr" || r.Text != "hello" || r.Translation != "bonjour" {
		t.Errorf("unexpected record: %+v", r)
	}
}

func TestTranslate_UsesLastLanguagePair(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPut, "/api/translator/last", `{"fromLang":"en","toLang":"es"}`)

	rec := ts.do(t, http.MethodPost, "/api/translate?wait=1", `{"text":"hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	calls := ts.completer.Calls()
	if len(calls) != 1 || calls[0].FromLang != "en" || calls[0].ToLang != "es" {
		t.Errorf("unexpected request: %+v", calls)
	}
}

func TestTranslate_Async(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/translate", `{"text":"hello","toLang":"fr"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp := decode[TranslateResponse](t, rec); resp.Seq == 0 {
		t.Errorf("Expected a sequence number, got %+v", resp)
	}

	testutil.Eventually(t, "history record", func() bool {
		return len(ts.session.History()) == 1
	})
}

func TestTranslate_Failure(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/translate?wait=true", `{"text":"fail","toLang":"fr"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp := decode[TranslateResponse](t, rec); resp.Error == "" {
		t.Error("Expected an error message")
	}
	if st := ts.session.Translator(); !st.Error {
		t.Errorf("Expected error state, got %+v", st)
	}
	if n := len(ts.session.History()); n != 0 {
		t.Errorf("Expected no history, got %d", n)
	}
}

func TestTranslate_BadRequest(t *testing.T) {
	ts := newTestServer(t)

	for _, body := range []string{`{}`, `{"text":""}`, `not json`} {
		if rec := ts.do(t, http.MethodPost, "/api/translate", body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d", body, rec.Code)
		}
	}
}

func TestHistoryRoutes(t *testing.T) {
	ts := newTestServer(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	records := []history.Record{
		history.NewRecord("en", "de", "b", "B", at.Add(time.Second)),
		history.NewRecord("en", "de", "a", "A", at),
	}
	body, _ := json.Marshal(records)

	rec := ts.do(t, http.MethodPut, "/api/history", string(body))
	if rec.Code != http.StatusOK || len(decode[[]history.Record](t, rec)) != 2 {
		t.Fatalf("PUT history: %d %s", rec.Code, rec.Body.String())
	}

	if rec := ts.do(t, http.MethodDelete, "/api/history/"+records[0].ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("DELETE record status = %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, "/api/history/"+records[0].ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("DELETE missing record status = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodDelete, "/api/history?archive=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE history status = %d", rec.Code)
	}
	resp := decode[map[string]string](t, rec)
	path := resp["archive"]
	if filepath.Dir(path) != filepath.Join(ts.dir, "archive") {
		t.Errorf("archive written to %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("archive missing: %v", err)
	}
	testutil.AssertFileContains(t, path, records[1].ID)

	if got := decode[[]history.Record](t, ts.do(t, http.MethodGet, "/api/history", "")); len(got) != 0 {
		t.Errorf("Expected cleared history, got %+v", got)
	}
}

func TestListModels(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/models", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[map[string][]models.Info](t, rec)
	if len(resp["supported"]) != len(config.SupportedModels) {
		t.Errorf("unexpected models: %+v", resp)
	}
}

func TestListModels_RemoteWithoutKey(t *testing.T) {
	ts := newTestServer(t)

	if rec := ts.do(t, http.MethodGet, "/api/models?remote=true", ""); rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRun_Shutdown(t *testing.T) {
	ts := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.server.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
