// Package autosave coalesces bursts of document edits into a single save
// once the edits have been quiet for a fixed window.
package autosave

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kalambet/profileai/internal/resume"
)

// DefaultWindow is the quiescence window used when none is configured.
const DefaultWindow = 500 * time.Millisecond

// Saver persists a document. Implemented by persist.Gateway.
type Saver interface {
	Save(doc resume.Document)
}

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d has elapsed.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Coordinator saves the latest notified document after window has passed
// with no further notifications.
type Coordinator struct {
	saver  Saver
	window time.Duration
	sched  Scheduler
	logger *slog.Logger

	// saveMu orders saves so an older document never lands after a newer one.
	saveMu sync.Mutex

	mu      sync.Mutex
	timer   Timer
	pending *resume.Document
	gen     uint64
	stopped bool
}

// New creates a Coordinator backed by the wall clock.
// If window is <= 0, it defaults to DefaultWindow.
func New(saver Saver, window time.Duration) *Coordinator {
	return NewWithScheduler(saver, window, realScheduler{})
}

// NewWithScheduler creates a Coordinator that schedules saves through sched.
func NewWithScheduler(saver Saver, window time.Duration, sched Scheduler) *Coordinator {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Coordinator{
		saver:  saver,
		window: window,
		sched:  sched,
		logger: slog.Default(),
	}
}

// Window returns the configured quiescence window.
func (c *Coordinator) Window() time.Duration {
	return c.window
}

// Notify records doc as the state to save and restarts the quiescence window.
// Any previously scheduled save is cancelled.
func (c *Coordinator) Notify(doc resume.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}

	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	snapshot := doc.Clone()
	c.pending = &snapshot
	gen := c.gen
	c.timer = c.sched.AfterFunc(c.window, func() { c.fire(gen) })
}

func (c *Coordinator) fire(gen uint64) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	if gen != c.gen || c.pending == nil {
		// Superseded by a later Notify, or already flushed.
		c.mu.Unlock()
		return
	}
	doc := *c.pending
	c.pending = nil
	c.timer = nil
	c.mu.Unlock()

	c.saver.Save(doc)
	c.logger.Debug("autosave completed")
}

// Flush saves the pending document immediately, if there is one.
// It reports whether a save happened.
func (c *Coordinator) Flush() bool {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return false
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	doc := *c.pending
	c.pending = nil
	c.mu.Unlock()

	c.saver.Save(doc)
	c.logger.Debug("autosave flushed")
	return true
}

// Cancel drops any pending save without saving. A save already in progress
// finishes before Cancel returns.
func (c *Coordinator) Cancel() {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

// Stop cancels any pending save without saving. Later notifications are ignored.
func (c *Coordinator) Stop() {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.stopped = true
}

func (c *Coordinator) cancelLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	c.pending = nil
}

// Pending reports whether a save is scheduled.
func (c *Coordinator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}
