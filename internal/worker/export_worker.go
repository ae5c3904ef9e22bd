// Package worker mirrors synced household documents into the spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"financeiro/internal/amqp"
	"financeiro/internal/docstore"
	"financeiro/internal/log"
	"financeiro/internal/sheets"
	"financeiro/internal/storage"
)

// ExportTracker remembers the last exported version per document so
// redelivered or periodic exports of unchanged documents are skipped.
type ExportTracker interface {
	ExportedVersion(ctx context.Context, key string) (storage.ExportState, bool, error)
	MarkExported(ctx context.Context, key string, version int64, at time.Time) error
	MarkExportError(ctx context.Context, key string, exportErr error, at time.Time) error
}

// ExportStats summarizes one ExportAll pass.
type ExportStats struct {
	Total    int
	Exported int
	Skipped  int
	Failed   int
}

type ExportWorker struct {
	store    docstore.Store
	lister   docstore.Lister
	exporter sheets.LedgerExporter
	tracker  ExportTracker
	logger   *log.Logger
	now      func() time.Time
}

// NewExportWorker wires the worker. lister and tracker may be nil: without a
// lister ExportAll is a no-op, without a tracker every document is exported.
func NewExportWorker(store docstore.Store, lister docstore.Lister, exporter sheets.LedgerExporter, tracker ExportTracker, logger *log.Logger) *ExportWorker {
	return &ExportWorker{
		store:    store,
		lister:   lister,
		exporter: exporter,
		tracker:  tracker,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
	}
}

// HandleSyncMessage exports the household named by msg. A returned error
// requeues the message.
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.HouseholdSyncedMessage) error {
	w.logger.InfoContext(ctx, "Processing sync message",
		log.FieldUserID, msg.UserID,
		log.FieldVersion, msg.Version)

	_, err := w.exportKey(ctx, msg.UserID, msg.Version)
	return err
}

// ExportAll exports every stored document that changed since its last
// export. It recovers from lost messages and worker downtime.
func (w *ExportWorker) ExportAll(ctx context.Context) (ExportStats, error) {
	var stats ExportStats
	if w.lister == nil {
		return stats, nil
	}
	keys, err := w.lister.Keys(ctx)
	if err != nil {
		return stats, fmt.Errorf("list documents: %w", err)
	}
	stats.Total = len(keys)

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		exported, err := w.exportKey(ctx, key, 0)
		switch {
		case err != nil:
			stats.Failed++
		case exported:
			stats.Exported++
		default:
			stats.Skipped++
		}
	}

	w.logger.InfoContext(ctx, "Export pass completed",
		"total", stats.Total,
		"exported", stats.Exported,
		"skipped", stats.Skipped,
		"errors", stats.Failed)
	return stats, nil
}

// Run calls ExportAll immediately and then every interval until ctx ends.
func (w *ExportWorker) Run(ctx context.Context, interval time.Duration) error {
	if _, err := w.ExportAll(ctx); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Startup export failed", log.FieldError, err)
	}
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ExportAll(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Periodic export failed", log.FieldError, err)
			}
		}
	}
}

// exportKey exports key unless the tracker already has minVersion or the
// stored version. It reports whether an export happened.
func (w *ExportWorker) exportKey(ctx context.Context, key string, minVersion int64) (bool, error) {
	var last int64 = -1
	if w.tracker != nil {
		state, ok, err := w.tracker.ExportedVersion(ctx, key)
		if err != nil {
			w.logger.WarnContext(ctx, "Could not read export state", log.FieldUserID, key, log.FieldError, err)
		} else if ok && state.ErrorCount == 0 {
			last = state.Version
		}
	}
	if minVersion > 0 && last >= minVersion {
		w.logger.DebugContext(ctx, "Already exported", log.FieldUserID, key, log.FieldVersion, minVersion)
		return false, nil
	}

	doc, err := w.store.Get(ctx, key)
	if errors.Is(err, docstore.ErrNotFound) {
		w.logger.WarnContext(ctx, "Document vanished before export", log.FieldUserID, key)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load document %s: %w", key, err)
	}
	if last >= doc.Version {
		return false, nil
	}

	if err := w.exporter.Export(ctx, key, doc); err != nil {
		w.logger.LogError(ctx, "Export failed", err, log.ErrorTypeNetwork, log.OpExport,
			log.NewFields().WithUser(key))
		if w.tracker != nil {
			if markErr := w.tracker.MarkExportError(ctx, key, err, w.now()); markErr != nil {
				w.logger.ErrorContext(ctx, "Failed to mark export error", log.FieldUserID, key, log.FieldError, markErr)
			}
		}
		return false, fmt.Errorf("export %s: %w", key, err)
	}

	if w.tracker != nil {
		// the export itself worked, so a bookkeeping failure is only logged
		if err := w.tracker.MarkExported(ctx, key, doc.Version, w.now()); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mark as exported", log.FieldUserID, key, log.FieldError, err)
		}
	}
	return true, nil
}
