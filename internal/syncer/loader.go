package syncer

import (
	"context"
	"errors"
	"time"

	"financeiro/internal/core"
	"financeiro/internal/docstore"
	"financeiro/internal/ledger"
	"financeiro/internal/log"
)

// LoadResult is the outcome of the initial fetch. Found is false when the
// store has no document yet; the caller then seeds defaults locally.
type LoadResult struct {
	Document ledger.Document
	Found    bool
	Attempts int
}

// Loader fetches a household document once, retrying transient failures.
type Loader struct {
	store  docstore.Store
	retry  RetryOptions
	logger *log.Logger
	sleep  sleepFunc
}

func NewLoader(store docstore.Store, retry RetryOptions, logger *log.Logger) *Loader {
	return &Loader{
		store:  store,
		retry:  retry,
		logger: logger.WithComponent(log.ComponentSync),
		sleep:  sleepContext,
	}
}

// Load returns the stored document for userID. Exhausted retries yield a
// *core.SyncError.
func (l *Loader) Load(ctx context.Context, userID string) (LoadResult, error) {
	var res LoadResult
	attempts, err := withRetry(ctx, l.retry, l.sleep,
		func(attempt int) error {
			doc, err := l.store.Get(ctx, userID)
			switch {
			case errors.Is(err, docstore.ErrNotFound):
				res = LoadResult{}
				return nil
			case err != nil:
				if ctx.Err() != nil {
					return Permanent(err)
				}
				return err
			}
			res = LoadResult{Document: doc, Found: true}
			return nil
		},
		func(attempt int, err error, wait time.Duration) {
			l.logger.WarnContext(ctx, "Household load attempt failed",
				log.FieldUserID, userID,
				log.FieldAttempt, attempt,
				log.FieldError, err,
				"retry_in", wait)
		})
	res.Attempts = attempts
	if err != nil {
		return res, &core.SyncError{Kind: core.SyncUnavailable, Op: log.OpLoad, Err: err}
	}
	l.logger.InfoContext(ctx, "Household loaded",
		log.FieldUserID, userID,
		"found", res.Found,
		log.FieldCount, len(res.Document.Transactions))
	return res, nil
}
