// Package memory is an in-process document store used for development and
// tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"financeiro/internal/docstore"
	"financeiro/internal/ledger"
)

// Store keeps documents as JSON so callers never share memory with it.
type Store struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

var (
	_ docstore.Store  = (*Store)(nil)
	_ docstore.Lister = (*Store)(nil)
)

func New() *Store {
	return &Store{docs: make(map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, key string) (ledger.Document, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Document{}, err
	}
	s.mu.RLock()
	raw, ok := s.docs[key]
	s.mu.RUnlock()
	if !ok {
		return ledger.Document{}, docstore.ErrNotFound
	}
	var doc ledger.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ledger.Document{}, fmt.Errorf("decode document %q: %w", key, err)
	}
	return doc, nil
}

func (s *Store) Set(ctx context.Context, key string, doc ledger.Document, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if merge {
		if raw, ok := s.docs[key]; ok {
			var base ledger.Document
			if err := json.Unmarshal(raw, &base); err != nil {
				return fmt.Errorf("decode document %q: %w", key, err)
			}
			merged, err := ledger.Merge(base, doc)
			if err != nil {
				return err
			}
			doc = merged
		}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %q: %w", key, err)
	}
	s.docs[key] = raw
	return nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.docs))
	for k := range s.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
