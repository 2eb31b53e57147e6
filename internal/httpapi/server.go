package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/tally/internal/filter"
	"github.com/roach88/tally/internal/record"
	"github.com/roach88/tally/internal/store"
)

// Backend is the record source a Server exposes.
type Backend interface {
	Fetch(ctx context.Context, fc filter.Context, offset, limit int) (record.Page, error)
	Save(ctx context.Context, records []record.Record) error
	Lookup(ctx context.Context, id string) (record.Reference, error)
}

// Server serves a Backend over HTTP.
type Server struct {
	backend   Backend
	logger    *slog.Logger
	rateLimit RateLimit
	started   time.Time
	engine    *gin.Engine
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the access and error logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithRateLimit sets per-client limiting. Default: RateLimitFromEnv().
func WithRateLimit(rl RateLimit) ServerOption {
	return func(s *Server) {
		s.rateLimit = rl
	}
}

// NewServer builds the routes for backend.
func NewServer(backend Backend, opts ...ServerOption) *Server {
	s := &Server{
		backend:   backend,
		logger:    slog.Default(),
		rateLimit: RateLimitFromEnv(),
		started:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(accessLogMiddleware(s.logger))
	r.Use(rateLimitMiddleware(s.rateLimit))

	r.GET("/health", s.health)
	v1 := r.Group("/api/v1")
	v1.GET("/records/:table", s.fetchRecords)
	v1.PUT("/records", s.saveRecords)
	v1.GET("/categories/:id", s.lookupCategory)

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, success(gin.H{
		"status":         "ok",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	}))
}

func (s *Server) fetchRecords(c *gin.Context) {
	fc, offset, limit, err := DecodeQuery(c.Param("table"), c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, failure(ErrorCodeInvalidRequest, err.Error()))
		return
	}

	page, err := s.backend.Fetch(c.Request.Context(), fc, offset, limit)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, failure(ErrorCodeInternal, "failed to fetch records"))
		return
	}
	c.JSON(http.StatusOK, success(pageResponse{Page: page, HasMore: page.HasMore()}))
}

// pageResponse is a page plus a hint for clients that page without the
// total count.
type pageResponse struct {
	record.Page
	HasMore bool `json:"hasMore"`
}

type saveRequest struct {
	Records []record.Record `json:"records"`
}

type saveResponse struct {
	Saved int `json:"saved"`
}

func (s *Server) saveRecords(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, failure(ErrorCodeInvalidRequest, err.Error()))
		return
	}
	if err := s.backend.Save(c.Request.Context(), req.Records); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, failure(ErrorCodeInternal, "failed to save records"))
		return
	}
	c.JSON(http.StatusOK, success(saveResponse{Saved: len(req.Records)}))
}

func (s *Server) lookupCategory(c *gin.Context) {
	ref, err := s.backend.Lookup(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, failure(ErrorCodeNotFound, "category not found"))
		return
	}
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, failure(ErrorCodeInternal, "failed to look up category"))
		return
	}
	c.JSON(http.StatusOK, success(ref))
}
