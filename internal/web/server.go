package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/cjeanneret/PhotoGo/internal/logsink"
	"github.com/cjeanneret/PhotoGo/internal/web/mw"
)

// CaptureCacheTTL bounds how stale GET /api/captures may be.
const CaptureCacheTTL = 5 * time.Second

// Server wraps the HTTP server and handlers.
type Server struct {
	addr   string
	engine *gin.Engine
	log    *logsink.Sink
}

// NewServer creates a server configured for the given address and handlers.
func NewServer(addr string, h *Handlers, log *logsink.Sink) *Server {
	return &Server{
		addr:   addr,
		engine: NewRouter(h, log),
		log:    log,
	}
}

// NewRouter registers every route on a new gin engine.
func NewRouter(h *Handlers, log *logsink.Sink) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLog(log))

	// Rate limit: 10 requests per second with a burst of 5
	rateLimiter := mw.RateLimiter(rate.Limit(10), 5)
	caching := mw.Cache(cache.New(CaptureCacheTTL, time.Minute), CaptureCacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/status", h.GetStatus)
		api.GET("/status/stream", h.StatusStream)
		api.GET("/captures", caching, h.GetCaptures)
	}
	r.GET("/images/:name", h.GetImage)

	return r
}

// requestLog logs each request at VERBOSE through the log sink.
func requestLog(log *logsink.Sink) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Verbose("Web: %s %s %d %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Microsecond))
	}
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.engine,
		// Cancelling ctx also ends open SSE streams.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Web: listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
