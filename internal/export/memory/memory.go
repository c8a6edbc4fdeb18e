package memory

import (
	"context"
	"fmt"
	"sync"

	"facturelec/internal/core"
	"facturelec/internal/export"
)

// Store is an in-memory InvoiceAppender for local development and tests.
type Store struct {
	mu    sync.Mutex
	items []core.InvoiceRecord
}

var _ export.InvoiceAppender = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Append stores the record and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, rec core.InvoiceRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, rec)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Records returns a copy of everything appended so far.
func (s *Store) Records() []core.InvoiceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.InvoiceRecord(nil), s.items...)
}
