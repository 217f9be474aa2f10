package memory

import (
	"context"
	"sync"
	"time"

	"eventledger/internal/core"
	"eventledger/internal/remote"
)

// Store keeps the remote document in process memory. It backs local
// development and tests.
type Store struct {
	mu   sync.Mutex
	doc  *remote.Document
	now  func() time.Time
	puts int
}

func New() *Store {
	return &Store{now: func() time.Time { return time.Now().UTC() }}
}

// NewWithDocument returns a store that already holds doc.
func NewWithDocument(doc remote.Document) *Store {
	s := New()
	d := remote.Document{Ledger: doc.Ledger.Clone(), LastModified: doc.LastModified}
	s.doc = &d
	return s
}

func (s *Store) Get(_ context.Context) (remote.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return remote.Document{}, remote.ErrNotFound
	}
	return remote.Document{Ledger: s.doc.Ledger.Clone(), LastModified: s.doc.LastModified}, nil
}

func (s *Store) Put(ctx context.Context, l core.Ledger) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now()
	s.doc = &remote.Document{Ledger: l.Clone(), LastModified: ts}
	s.puts++
	return ts, nil
}

func (s *Store) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = nil
	return nil
}

// Puts returns how many writes the store has accepted.
func (s *Store) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}
