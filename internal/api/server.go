// Package api serves the task key/value endpoint devices sync against.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// ErrStorageUnavailable is reported when the server runs without a key/value backend.
var ErrStorageUnavailable = errors.New("KV namespace not configured")

const storageHint = "Start the server with a database path (tada serve --db todos.db) or set server.db_path"

// KV is the per-key atomic storage the endpoint needs.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

// pinger is implemented by backends that can report readiness.
type pinger interface {
	Ping(ctx context.Context) error
}

// Server is the task sync endpoint.
type Server struct {
	kv     KV
	router *gin.Engine
	log    *log.Logger
}

// NewServer wires routes. kv may be nil, in which case every request is
// answered with a storage error.
func NewServer(kv KV, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true

	s := &Server{kv: kv, router: router, log: logger}

	router.Use(gin.Recovery(), s.requestLog, cors)
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api", s.requireStorage)
	{
		api.GET("/todos", s.handleGet)
		api.POST("/todos", s.handlePost)
		api.OPTIONS("/todos", s.handleOptions)
	}

	return s
}

// Handler exposes the router, mostly for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("stopped")
	return nil
}

func cors(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	c.Next()
}

func (s *Server) requireStorage(c *gin.Context) {
	if s.kv != nil {
		c.Next()
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": ErrStorageUnavailable.Error(),
		"hint":  storageHint,
	})
}

func (s *Server) requestLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Debug("request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"dur", time.Since(start),
	)
}
