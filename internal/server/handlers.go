package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"codeberg.org/snonux/polyglot/internal/archive"
	"codeberg.org/snonux/polyglot/internal/config"
	"codeberg.org/snonux/polyglot/internal/history"
	"codeberg.org/snonux/polyglot/internal/models"
	"codeberg.org/snonux/polyglot/internal/session"
)

// TranslateRequest is the body of POST /api/translate. Missing languages
// fall back to the last language pair.
type TranslateRequest struct {
	Text     string `json:"text" binding:"required"`
	FromLang string `json:"fromLang"`
	ToLang   string `json:"toLang"`
}

// TranslateResponse reports the issued call and, when waited for, its outcome
type TranslateResponse struct {
	Seq    uint64 `json:"seq"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// TextRequest is the body of PUT /api/translator/text
type TextRequest struct {
	Text string `json:"text"`
}

func abortWithError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.Snapshot())
}

func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.Config())
}

func (s *Server) putConfig(c *gin.Context) {
	var patch config.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	values, err := s.session.SetConfig(c.Request.Context(), patch)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, values)
}

func (s *Server) resetConfig(c *gin.Context) {
	if err := s.session.ResetConfig(c.Request.Context()); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, s.session.Config())
}

func (s *Server) putLastTranslate(c *gin.Context) {
	var lt session.LastTranslate
	if err := c.ShouldBindJSON(&lt); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	if err := s.session.SetLastTranslate(c.Request.Context(), lt); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, s.session.LastTranslate())
}

func (s *Server) putTranslateText(c *gin.Context) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	s.session.SetTranslateText(req.Text)
	c.JSON(http.StatusOK, req)
}

func (s *Server) translate(c *gin.Context) {
	var req TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	last := s.session.LastTranslate()
	if req.FromLang == "" {
		req.FromLang = last.FromLanguage
	}
	if req.ToLang == "" {
		req.ToLang = last.ToLanguage
	}

	// The request outlives the HTTP exchange unless the client waits for it
	ctx := context.WithoutCancel(c.Request.Context())
	call, err := s.session.Translate(ctx, req.Text, req.FromLang, req.ToLang)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	wait, _ := strconv.ParseBool(c.Query("wait"))
	if !wait {
		c.JSON(http.StatusAccepted, TranslateResponse{Seq: call.Seq})
		return
	}

	result, err := call.Wait(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, TranslateResponse{Seq: call.Seq, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, TranslateResponse{Seq: call.Seq, Result: result})
}

func (s *Server) getHistory(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.History())
}

func (s *Server) putHistory(c *gin.Context) {
	var records []history.Record
	if err := c.ShouldBindJSON(&records); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	if err := s.session.ReplaceHistory(c.Request.Context(), records); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, s.session.History())
}

func (s *Server) clearHistory(c *gin.Context) {
	resp := gin.H{}

	if doArchive, _ := strconv.ParseBool(c.Query("archive")); doArchive {
		if s.opts.ArchiveDir == "" {
			abortWithError(c, http.StatusBadRequest, errors.New("no archive directory configured"))
			return
		}
		path, err := archive.ArchiveHistory(s.session.History(), s.opts.ArchiveDir)
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, err)
			return
		}
		resp["archive"] = path
	}

	if err := s.session.ReplaceHistory(c.Request.Context(), nil); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) deleteHistory(c *gin.Context) {
	err := s.session.DeleteHistory(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, history.ErrNotFound):
		abortWithError(c, http.StatusNotFound, err)
	case err != nil:
		abortWithError(c, http.StatusInternalServerError, err)
	default:
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) listModels(c *gin.Context) {
	resp := gin.H{"supported": models.Supported()}

	if remote, _ := strconv.ParseBool(c.Query("remote")); remote {
		ids, err := s.opts.Lister(s.session.Config()).RemoteModels(c.Request.Context())
		if err != nil {
			abortWithError(c, http.StatusBadGateway, err)
			return
		}
		resp["remote"] = ids
	}
	c.JSON(http.StatusOK, resp)
}
