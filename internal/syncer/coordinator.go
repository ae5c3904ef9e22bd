// Package syncer pushes local household state to the remote document
// store. Local state is authoritative: every mutation schedules one
// debounced write of the latest snapshot, and nothing is written until the
// initial load has finished.
package syncer

import (
	"context"
	"sync"
	"time"

	"financeiro/internal/core"
	"financeiro/internal/docstore"
	"financeiro/internal/ledger"
	"financeiro/internal/log"
)

// Config holds coordinator timing.
type Config struct {
	// Window is the quiet period before a write (default 1s).
	Window time.Duration
	// WriteTimeout bounds a single remote write (default 15s).
	WriteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{Window: time.Second, WriteTimeout: 15 * time.Second}
}

// SnapshotFunc captures the current full state for a write.
type SnapshotFunc func() ledger.Document

// Notifier is told about every successful write.
type Notifier interface {
	NotifySynced(ctx context.Context, userID string, version int64) error
}

// Coordinator owns the debounced push path of one workspace.
type Coordinator struct {
	store    docstore.Store
	userID   string
	snapshot SnapshotFunc
	notifier Notifier
	onResult func(error)
	logger   *log.Logger
	cfg      Config
	debounce *Debouncer

	mu       sync.Mutex
	loaded   bool
	closed   bool
	inflight sync.WaitGroup

	// writeMu makes snapshot and Set one step, so writes land in version order.
	writeMu sync.Mutex
}

func NewCoordinator(store docstore.Store, userID string, snapshot SnapshotFunc, cfg Config, logger *log.Logger) *Coordinator {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	c := &Coordinator{
		store:    store,
		userID:   userID,
		snapshot: snapshot,
		cfg:      cfg,
		logger:   logger.WithComponent(log.ComponentSync).With(log.FieldUserID, userID),
	}
	c.debounce = NewDebouncer(cfg.Window, c.save)
	return c
}

// SetNotifier registers n for successful writes.
func (c *Coordinator) SetNotifier(n Notifier) {
	c.notifier = n
}

// OnResult registers fn to receive the outcome of every write. Failures
// arrive as *core.SyncError.
func (c *Coordinator) OnResult(fn func(error)) {
	c.onResult = fn
}

// MarkLoaded enables the push path.
func (c *Coordinator) MarkLoaded() {
	c.mu.Lock()
	c.loaded = true
	c.mu.Unlock()
}

func (c *Coordinator) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Touch schedules a write of the latest state. It is ignored before the
// initial load and after Close.
func (c *Coordinator) Touch() {
	c.mu.Lock()
	ready := c.loaded && !c.closed
	c.mu.Unlock()
	if ready {
		c.debounce.Trigger()
	}
}

// Pending reports whether a write is scheduled.
func (c *Coordinator) Pending() bool {
	return c.debounce.Pending()
}

// Flush writes immediately if a write is scheduled.
func (c *Coordinator) Flush() bool {
	return c.debounce.Flush()
}

// Close cancels the scheduled write and waits for one in flight, so no
// write can land after the workspace is cleared.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	if c.debounce.Cancel() {
		c.logger.Info("Pending sync cancelled")
	}
	c.inflight.Wait()
}

func (c *Coordinator) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Coordinator) save() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.inflight.Add(1)
	c.mu.Unlock()
	defer c.inflight.Done()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.isClosed() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.WriteTimeout)
	defer cancel()

	doc := c.snapshot()
	err := c.store.Set(ctx, c.userID, doc, true)
	if err != nil {
		err = &core.SyncError{Kind: core.SyncUnavailable, Op: log.OpSave, Err: err}
		c.logger.LogError(ctx, "Failed to save household", err, log.ErrorTypeSync, log.OpSave,
			log.NewFields().WithUser(c.userID))
	} else {
		c.logger.InfoContext(ctx, "Household saved",
			log.FieldVersion, doc.Version,
			log.FieldCount, len(doc.Transactions))
		if c.notifier != nil {
			if nerr := c.notifier.NotifySynced(ctx, c.userID, doc.Version); nerr != nil {
				c.logger.WarnContext(ctx, "Failed to publish sync notification", log.FieldError, nerr)
			}
		}
	}
	if c.onResult != nil {
		c.onResult(err)
	}
}
