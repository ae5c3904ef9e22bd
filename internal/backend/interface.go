// Package backend builds the document store and its satellites from
// configuration.
package backend

import (
	"context"
	"errors"

	"financeiro/internal/amqp"
	"financeiro/internal/docstore"
	"financeiro/internal/storage"
	"financeiro/internal/syncer"
)

// Backend is a document store that can enumerate its keys.
type Backend interface {
	docstore.Store
	docstore.Lister
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional collaborators.
type BackendResult struct {
	Backend Backend
	// SQLite is set for the sqlite backend; it also tracks exports.
	SQLite *storage.SQLiteStore
	// AMQP is nil when AMQP is disabled or unreachable.
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Notifier returns the sync notifier, or nil without AMQP.
func (r *BackendResult) Notifier() syncer.Notifier {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Ping checks the database and broker that are configured.
func (r *BackendResult) Ping(ctx context.Context) error {
	var errs []error
	if r.SQLite != nil {
		errs = append(errs, r.SQLite.Ping(ctx))
	}
	if r.AMQP != nil {
		errs = append(errs, r.AMQP.Ping())
	}
	return errors.Join(errs...)
}

// Close runs the cleanup function once.
func (r *BackendResult) Close() error {
	if r.Cleanup == nil {
		return nil
	}
	cleanup := r.Cleanup
	r.Cleanup = nil
	return cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// AMQP is optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
