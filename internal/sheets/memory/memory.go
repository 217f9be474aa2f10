package memory

import (
	"context"
	"fmt"
	"sync"

	"eventledger/internal/report"
)

// Store keeps written report tables in memory.
type Store struct {
	mu     sync.Mutex
	tables [][][]string
}

func New() *Store { return &Store{} }

// WriteReport records the report table and returns a synthetic reference.
func (s *Store) WriteReport(_ context.Context, r report.Report) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = append(s.tables, r.Table())
	return fmt.Sprintf("mem:%d", len(s.tables)), nil
}

// Last returns the most recently written table, or nil.
func (s *Store) Last() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tables) == 0 {
		return nil
	}
	return s.tables[len(s.tables)-1]
}
