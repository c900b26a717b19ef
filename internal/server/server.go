package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"codeberg.org/snonux/polyglot/internal/config"
	"codeberg.org/snonux/polyglot/internal/models"
	"codeberg.org/snonux/polyglot/internal/session"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests
const shutdownTimeout = 10 * time.Second

// Options configures a Server
type Options struct {
	// ArchiveDir receives history archives written by DELETE /api/history?archive=true
	ArchiveDir string
	// Lister returns a model lister for the current configuration
	Lister func(cfg config.Values) *models.Lister
	// Quiet disables gin's request logger
	Quiet bool
}

// Server serves the JSON API
type Server struct {
	session *session.Session
	opts    Options
	engine  *gin.Engine
}

// New creates the API server for sess
func New(sess *session.Session, opts Options) *Server {
	if opts.Lister == nil {
		opts.Lister = models.NewLister
	}

	engine := gin.New()
	if !opts.Quiet {
		engine.Use(gin.Logger())
	}
	engine.Use(gin.Recovery())

	s := &Server{session: sess, opts: opts, engine: engine}
	s.routes()
	return s
}

// Handler returns the HTTP handler of the API
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	api := s.engine.Group("/api")
	{
		api.GET("/state", s.getState)

		api.GET("/config", s.getConfig)
		api.PUT("/config", s.putConfig)
		api.DELETE("/config", s.resetConfig)

		api.PUT("/translator/last", s.putLastTranslate)
		api.PUT("/translator/text", s.putTranslateText)
		api.POST("/translate", s.translate)

		api.GET("/history", s.getHistory)
		api.PUT("/history", s.putHistory)
		api.DELETE("/history", s.clearHistory)
		api.DELETE("/history/:id", s.deleteHistory)

		api.GET("/models", s.listModels)
	}
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("polyglot API listening on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
