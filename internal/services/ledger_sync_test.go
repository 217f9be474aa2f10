package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"eventledger/internal/core"
	"eventledger/internal/remote"
	"eventledger/internal/remote/memory"
)

// blockingRemote holds every Put until release is closed.
type blockingRemote struct {
	started chan struct{}
	release chan struct{}

	mu   sync.Mutex
	puts int
}

func newBlockingRemote() *blockingRemote {
	return &blockingRemote{started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (b *blockingRemote) Get(context.Context) (remote.Document, error) {
	return remote.Document{}, remote.ErrNotFound
}

func (b *blockingRemote) Put(_ context.Context, _ core.Ledger) (time.Time, error) {
	b.mu.Lock()
	b.puts++
	b.mu.Unlock()
	b.started <- struct{}{}
	<-b.release
	return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), nil
}

func (b *blockingRemote) Delete(context.Context) error { return nil }

func (b *blockingRemote) Puts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.puts
}

// failingRemote fails every call with err until err is cleared.
type failingRemote struct {
	mu  sync.Mutex
	err error
	ts  time.Time
}

func (f *failingRemote) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *failingRemote) Get(context.Context) (remote.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return remote.Document{}, f.err
	}
	return remote.Document{}, remote.ErrNotFound
}

func (f *failingRemote) Put(context.Context, core.Ledger) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ts, f.err
}

func (f *failingRemote) Delete(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func TestLedgerSync_Disabled(t *testing.T) {
	s := NewLedgerSync(nil, nil)
	ctx := context.Background()

	if got := s.Status().State; got != StateDisabled {
		t.Fatalf("expected disabled, got %s", got)
	}
	if s.Status().Enabled() {
		t.Error("disabled status should not report enabled")
	}

	status, err := s.Save(ctx, core.EmptyLedger())
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Save: expected ErrNotConfigured, got %v", err)
	}
	if status.State != StateDisabled {
		t.Errorf("Save: state changed to %s", status.State)
	}
	if _, _, err := s.Pull(ctx); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Pull: expected ErrNotConfigured, got %v", err)
	}
	if _, err := s.ClearAll(ctx, ClearAllConfirmation); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("ClearAll: expected ErrNotConfigured, got %v", err)
	}
}

func TestLedgerSync_SaveSuccess(t *testing.T) {
	store := memory.New()
	s := NewLedgerSync(store, nil)
	s.Restore(time.Time{}, "previous failure")

	status, err := s.Save(context.Background(), core.EmptyLedger())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if status.State != StateIdle {
		t.Errorf("expected idle after save, got %s", status.State)
	}
	if status.LastSync.IsZero() {
		t.Error("LastSync should be set after a successful save")
	}
	if status.LastError != "" {
		t.Errorf("LastError should be cleared, got %q", status.LastError)
	}
	if store.Puts() != 1 {
		t.Errorf("expected 1 put, got %d", store.Puts())
	}
}

func TestLedgerSync_SaveUsesLocalClockWithoutServerTime(t *testing.T) {
	local := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewLedgerSync(&failingRemote{}, nil)
	s.now = func() time.Time { return local }

	status, err := s.Save(context.Background(), core.EmptyLedger())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !status.LastSync.Equal(local) {
		t.Errorf("expected LastSync %v, got %v", local, status.LastSync)
	}
}

func TestLedgerSync_FailureThenRecovery(t *testing.T) {
	ctx := context.Background()
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	remoteStore := &failingRemote{ts: first}
	s := NewLedgerSync(remoteStore, nil)

	if _, err := s.Save(ctx, core.EmptyLedger()); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	remoteStore.setErr(errors.New("connection refused"))
	status, err := s.Save(ctx, core.EmptyLedger())
	if err == nil {
		t.Fatal("expected an error from the failing remote")
	}
	if status.State != StateIdle {
		t.Errorf("expected idle after failure, got %s", status.State)
	}
	if status.LastError == "" {
		t.Error("LastError should be set after a failure")
	}
	if !status.LastSync.Equal(first) {
		t.Errorf("LastSync should be kept on failure, got %v", status.LastSync)
	}

	remoteStore.setErr(nil)
	status, err = s.Save(ctx, core.EmptyLedger())
	if err != nil {
		t.Fatalf("recovery save failed: %v", err)
	}
	if status.LastError != "" {
		t.Errorf("LastError should be cleared after recovery, got %q", status.LastError)
	}
}

func TestLedgerSync_AtMostOneInFlight(t *testing.T) {
	remoteStore := newBlockingRemote()
	s := NewLedgerSync(remoteStore, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := s.Save(ctx, core.EmptyLedger())
		done <- err
	}()
	<-remoteStore.started

	if got := s.Status().State; got != StateSyncing {
		t.Fatalf("expected syncing while a put is in flight, got %s", got)
	}

	status, err := s.Save(ctx, core.EmptyLedger())
	if err != nil {
		t.Fatalf("concurrent save should be skipped without error, got %v", err)
	}
	if !status.Skipped {
		t.Error("concurrent save should report Skipped")
	}
	if _, status, err := s.Pull(ctx); err != nil || !status.Skipped {
		t.Errorf("concurrent pull should be skipped, got status %+v err %v", status, err)
	}
	if _, err := s.ClearAll(ctx, ClearAllConfirmation); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("clear-all while syncing: expected ErrSyncInProgress, got %v", err)
	}

	close(remoteStore.release)
	if err := <-done; err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if remoteStore.Puts() != 1 {
		t.Errorf("expected exactly 1 put, got %d", remoteStore.Puts())
	}
	if got := s.Status().State; got != StateIdle {
		t.Errorf("expected idle after the put completed, got %s", got)
	}
}

func TestLedgerSync_Pull(t *testing.T) {
	ctx := context.Background()

	t.Run("empty remote", func(t *testing.T) {
		s := NewLedgerSync(memory.New(), nil)
		res, status, err := s.Pull(ctx)
		if err != nil {
			t.Fatalf("Pull failed: %v", err)
		}
		if res.Found {
			t.Error("empty remote should not report Found")
		}
		if status.State != StateIdle {
			t.Errorf("expected idle, got %s", status.State)
		}
	})

	t.Run("stored document", func(t *testing.T) {
		modified := time.Date(2025, 2, 2, 12, 0, 0, 0, time.UTC)
		l := core.EmptyLedger()
		l.Events = []core.Event{{ID: "ev1", Name: "Wedding", StartDate: modified}}
		s := NewLedgerSync(memory.NewWithDocument(remote.Document{Ledger: l, LastModified: modified}), nil)

		res, status, err := s.Pull(ctx)
		if err != nil {
			t.Fatalf("Pull failed: %v", err)
		}
		if !res.Found || len(res.Ledger.Events) != 1 {
			t.Fatalf("expected the stored ledger, got %+v", res)
		}
		if !status.LastSync.Equal(modified) {
			t.Errorf("expected LastSync %v, got %v", modified, status.LastSync)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		s := NewLedgerSync(&failingRemote{err: errors.New("timeout")}, nil)
		_, status, err := s.Pull(ctx)
		if err == nil {
			t.Fatal("expected an error")
		}
		if status.LastError == "" || status.State != StateIdle {
			t.Errorf("unexpected status after failure: %+v", status)
		}
	})
}

func TestLedgerSync_ClearAll(t *testing.T) {
	ctx := context.Background()
	l := core.EmptyLedger()
	l.Events = []core.Event{{ID: "ev1", Name: "Wedding"}}

	tests := []struct {
		name         string
		confirmation string
		wantErr      error
		wantRemote   bool
	}{
		{"exact token", "DELETE ALL", nil, false},
		{"lowercase", "delete all", ErrConfirmationMismatch, true},
		{"trailing space", "DELETE ALL ", ErrConfirmationMismatch, true},
		{"empty", "", ErrConfirmationMismatch, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewWithDocument(remote.Document{Ledger: l})
			s := NewLedgerSync(store, nil)

			_, err := s.ClearAll(ctx, tt.confirmation)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			_, getErr := store.Get(ctx)
			if stillThere := getErr == nil; stillThere != tt.wantRemote {
				t.Errorf("remote document present = %v, want %v", stillThere, tt.wantRemote)
			}
		})
	}
}

func TestConfirmClearAll(t *testing.T) {
	if err := ConfirmClearAll("DELETE ALL"); err != nil {
		t.Errorf("exact token rejected: %v", err)
	}
	for _, text := range []string{"delete all", "DELETE", "Delete All", " DELETE ALL"} {
		if err := ConfirmClearAll(text); !errors.Is(err, ErrConfirmationMismatch) {
			t.Errorf("%q: expected ErrConfirmationMismatch, got %v", text, err)
		}
	}
}
