package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/PhotoGo/internal/booth"
	"github.com/cjeanneret/PhotoGo/internal/logsink"
)

// DefaultQueueSize is the number of outcomes buffered for the writer.
const DefaultQueueSize = 32

// Recorder writes capture outcomes on a background goroutine so the
// control loop never waits on the database.
type Recorder struct {
	store   *Store
	log     *logsink.Sink
	session string
	jobs    chan booth.CaptureOutcome

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewRecorder creates a recorder with a fresh session id. Call Start to
// launch the writer.
func NewRecorder(store *Store, size int, log *logsink.Sink) *Recorder {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Recorder{
		store:   store,
		log:     log,
		session: uuid.NewString(),
		jobs:    make(chan booth.CaptureOutcome, size),
		done:    make(chan struct{}),
	}
}

// Session returns the id stamped on every row of this run.
func (r *Recorder) Session() string { return r.session }

// Start launches the writer goroutine.
func (r *Recorder) Start() {
	go r.worker()
}

func (r *Recorder) worker() {
	defer close(r.done)
	r.log.Verbose("Catalog: recorder started (session %s)", r.session)
	for o := range r.jobs {
		r.write(o)
	}
	r.log.Verbose("Catalog: recorder stopped")
}

func (r *Recorder) write(o booth.CaptureOutcome) {
	row := &Capture{
		Session: r.session,
		Index:   o.Index,
		Path:    o.Path,
		Message: o.Message,
		Outcome: OutcomeOK,
		TakenAt: o.TakenAt,
	}
	if o.Err != nil {
		row.Outcome = OutcomeFailed
		row.Error = o.Err.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.Insert(ctx, row); err != nil {
		r.log.Warn("Catalog: insert %s: %v", o.Path, err)
	}
}

// Record queues an outcome. It never blocks: when the queue is full or
// the recorder is closed the outcome is dropped with a warning.
func (r *Recorder) Record(o booth.CaptureOutcome) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.log.Warn("Catalog: recorder closed, dropping %s", o.Path)
		return
	}
	select {
	case r.jobs <- o:
	default:
		r.log.Warn("Catalog: queue full, dropping %s", o.Path)
	}
}

// Close stops accepting outcomes and waits until the queued ones are
// written. Start must have been called.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.jobs)
	}
	r.mu.Unlock()
	<-r.done
}
