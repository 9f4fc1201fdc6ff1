package web

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cjeanneret/PhotoGo/internal/archive"
	"github.com/cjeanneret/PhotoGo/internal/booth"
	"github.com/cjeanneret/PhotoGo/internal/catalog"
)

// StatusFunc returns the current loop snapshot.
type StatusFunc func() booth.Status

// CaptureLister reads capture history.
type CaptureLister interface {
	Recent(ctx context.Context, limit int) ([]catalog.Capture, error)
	Count(ctx context.Context) (map[string]int64, error)
}

// DefaultCaptureLimit is used when the limit query parameter is absent.
const DefaultCaptureLimit = 20

// Handlers holds dependencies for HTTP handlers. The web side only reads
// snapshots; it never touches the display or the camera.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Status      StatusFunc
	Captures    CaptureLister // nil when the catalog is disabled
	ImageDir    string
	Heartbeat   time.Duration
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(broadcaster *StatusBroadcaster, status StatusFunc, captures CaptureLister, imageDir string) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Status:      status,
		Captures:    captures,
		ImageDir:    imageDir,
		Heartbeat:   30 * time.Second,
	}
}

// statusResponse is the loop snapshot plus the all-time catalog totals
// per outcome, when a catalog is available.
type statusResponse struct {
	booth.Status
	History map[string]int64 `json:"history,omitempty"`
}

// GetStatus handles GET /api/status. A catalog read failure only drops
// the history field.
func (h *Handlers) GetStatus(c *gin.Context) {
	resp := statusResponse{Status: h.Status()}
	if h.Captures != nil {
		if counts, err := h.Captures.Count(c.Request.Context()); err == nil {
			resp.History = counts
		}
	}
	c.JSON(http.StatusOK, resp)
}

// GetCaptures handles GET /api/captures?limit=N.
func (h *Handlers) GetCaptures(c *gin.Context) {
	if h.Captures == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "catalog disabled"})
		return
	}

	limit := DefaultCaptureLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > catalog.MaxRecent {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and " + strconv.Itoa(catalog.MaxRecent)})
			return
		}
		limit = n
	}

	captures, err := h.Captures.Recent(c.Request.Context(), limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to read captures"})
		return
	}
	if captures == nil {
		captures = []catalog.Capture{}
	}
	c.JSON(http.StatusOK, captures)
}

// GetImage handles GET /images/:name. Only archive file names are served.
func (h *Handlers) GetImage(c *gin.Context) {
	name := c.Param("name")
	if _, ok := archive.ParseIndex(name); !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	path := filepath.Join(h.ImageDir, name)
	if _, err := os.Stat(path); err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.File(path)
}

// StatusStream handles GET /api/status/stream for SSE.
func (h *Handlers) StatusStream(c *gin.Context) {
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.WriteString(": connected\n\n")
	w.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(h.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.WriteString("data: " + msg + "\n\n")
			w.Flush()

		case <-ticker.C:
			w.WriteString(": heartbeat\n\n")
			w.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}
