package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"eventledger/internal/core"
	applog "eventledger/internal/log"
	"eventledger/internal/remote"
)

var (
	// ErrNotConfigured is returned by every remote operation when no remote
	// store is configured.
	ErrNotConfigured = errors.New("cloud sync not configured")
	// ErrSyncInProgress is returned by clear-all when another remote
	// operation is in flight.
	ErrSyncInProgress = errors.New("a sync operation is already in progress")
)

type SyncState string

const (
	StateDisabled SyncState = "disabled"
	StateIdle     SyncState = "idle"
	StateSyncing  SyncState = "syncing"
)

// SyncStatus is a snapshot of the sync state machine. Skipped is set on the
// snapshot returned by a call that did nothing because another remote
// operation was in flight.
type SyncStatus struct {
	State     SyncState `json:"state"`
	LastSync  time.Time `json:"lastSync,omitempty"`
	LastError string    `json:"lastError,omitempty"`
	Skipped   bool      `json:"skipped,omitempty"`
}

// Enabled reports whether a remote store is configured.
func (s SyncStatus) Enabled() bool { return s.State != StateDisabled }

// PullResult is what a pull brought back. Found is false when the remote
// store holds no ledger yet.
type PullResult struct {
	Ledger       core.Ledger
	LastModified time.Time
	Found        bool
}

// LedgerSync gates every access to the remote ledger store.
//
// At most one remote operation is in flight at a time: a save or pull that
// arrives while one is running is skipped, not queued. The state is owned
// by the value; there is no package-level status.
type LedgerSync struct {
	remote remote.LedgerStore
	logger *applog.Logger
	now    func() time.Time

	mu     sync.Mutex
	status SyncStatus
}

// NewLedgerSync returns a state machine over store. A nil store leaves it
// disabled for its whole lifetime.
func NewLedgerSync(store remote.LedgerStore, logger *applog.Logger) *LedgerSync {
	if logger == nil {
		logger = applog.Discard()
	}
	s := &LedgerSync{
		remote: store,
		logger: logger.WithComponent(applog.ComponentSync),
		now:    func() time.Time { return time.Now().UTC() },
		status: SyncStatus{State: StateIdle},
	}
	if store == nil {
		s.status.State = StateDisabled
	}
	return s
}

// Restore seeds the bookkeeping fields, e.g. from persisted metadata. It
// does not change the state.
func (s *LedgerSync) Restore(lastSync time.Time, lastError string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastSync = lastSync
	s.status.LastError = lastError
}

func (s *LedgerSync) Status() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Save writes l as the remote ledger. On success LastSync becomes the time
// reported by the store and LastError is cleared; on failure LastError is
// set and LastSync is left alone. Either way the state returns to idle.
func (s *LedgerSync) Save(ctx context.Context, l core.Ledger) (status SyncStatus, err error) {
	status, ok, err := s.begin(applog.OpSave)
	if !ok {
		return status, err
	}
	var ts time.Time
	defer func() { status = s.finish(applog.OpSave, err, ts, true) }()

	ts, err = s.remote.Put(ctx, l)
	if err != nil {
		err = fmt.Errorf("save to remote: %w", err)
	}
	return status, err
}

// Pull reads the remote ledger. A missing document is not an error.
func (s *LedgerSync) Pull(ctx context.Context) (res PullResult, status SyncStatus, err error) {
	status, ok, err := s.begin(applog.OpPull)
	if !ok {
		return PullResult{}, status, err
	}
	defer func() { status = s.finish(applog.OpPull, err, res.LastModified, res.Found) }()

	doc, err := s.remote.Get(ctx)
	switch {
	case errors.Is(err, remote.ErrNotFound):
		return PullResult{}, status, nil
	case err != nil:
		return PullResult{}, status, fmt.Errorf("load from remote: %w", err)
	}
	return PullResult{Ledger: doc.Ledger, LastModified: doc.LastModified, Found: true}, status, nil
}

// ClearAll deletes the remote ledger once confirmation matches exactly.
// Unlike saves it is refused, not skipped, while another operation runs.
// The caller resets its local ledger only when the returned error is nil.
func (s *LedgerSync) ClearAll(ctx context.Context, confirmation string) (status SyncStatus, err error) {
	if err := ConfirmClearAll(confirmation); err != nil {
		return s.Status(), err
	}
	status, ok, err := s.begin(applog.OpClear)
	if !ok {
		if err == nil {
			err = ErrSyncInProgress
		}
		status.Skipped = false
		return status, err
	}
	defer func() { status = s.finish(applog.OpClear, err, time.Time{}, false) }()

	if err = s.remote.Delete(ctx); err != nil {
		err = fmt.Errorf("clear remote: %w", err)
	}
	return status, err
}

// begin moves idle to syncing. ok is false when the caller must not touch
// the remote store.
func (s *LedgerSync) begin(op string) (SyncStatus, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status.State {
	case StateDisabled:
		return s.status, false, ErrNotConfigured
	case StateSyncing:
		s.logger.Info("Remote operation already in flight, skipping",
			applog.FieldOperation, op,
			applog.FieldSkipReason, "syncing")
		st := s.status
		st.Skipped = true
		return st, false, nil
	}
	s.status.State = StateSyncing
	return s.status, true, nil
}

// finish returns to idle and records the outcome. LastSync moves only when
// stamp is set; a zero ts then falls back to the local clock.
func (s *LedgerSync) finish(op string, err error, ts time.Time, stamp bool) SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.State = StateIdle
	if err != nil {
		s.status.LastError = err.Error()
		s.logger.Warn("Remote operation failed",
			applog.FieldOperation, op,
			applog.FieldError, err)
		return s.status
	}
	s.status.LastError = ""
	if stamp {
		if ts.IsZero() {
			ts = s.now()
		}
		s.status.LastSync = ts
	}
	s.logger.Debug("Remote operation completed",
		applog.FieldOperation, op,
		applog.FieldLastSync, s.status.LastSync)
	return s.status
}
