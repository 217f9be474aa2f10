package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"eventledger/internal/amqp"
	"eventledger/internal/core"
	applog "eventledger/internal/log"
	"eventledger/internal/reconcile"
	"eventledger/internal/storage"
	"eventledger/internal/transfer"
)

// ErrStartupLoadFailed is returned by every mutation after the startup load
// from the remote store failed, until a pull succeeds.
var ErrStartupLoadFailed = errors.New("initial load from remote failed; pull before making changes")

// LocalRepository persists the ledger on this device.
type LocalRepository interface {
	Load(ctx context.Context) (core.Ledger, error)
	Save(ctx context.Context, l core.Ledger) error
	Clear(ctx context.Context) error
	LoadSyncMeta(ctx context.Context) (storage.SyncMeta, error)
	SaveSyncMeta(ctx context.Context, meta storage.SyncMeta) error
}

// Notifier announces a ledger written to the remote store.
type Notifier interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// LedgerService orchestrates ledger operations across the in-memory store,
// SQLite and the remote store.
//
// Every mutation is saved locally first and then pushed to the remote. A
// remote failure does not fail the mutation; it shows up in Status.
//
// s.mu guards the in-memory ledger only and is never held across a remote
// call, so a second sync arriving while one is in flight is skipped by
// LedgerSync instead of waiting its turn.
type LedgerService struct {
	store  *core.Store
	local  LocalRepository
	sync   *LedgerSync
	notify Notifier
	logger *applog.Logger

	deviceID string
	policy   reconcile.Policy
	ids      core.IDSource
	now      func() time.Time

	mu       sync.Mutex
	degraded bool
}

type ServiceOption func(*LedgerService)

func WithNotifier(n Notifier) ServiceOption {
	return func(s *LedgerService) { s.notify = n }
}

func WithDeviceID(id string) ServiceOption {
	return func(s *LedgerService) { s.deviceID = id }
}

func WithPolicy(p reconcile.Policy) ServiceOption {
	return func(s *LedgerService) { s.policy = p }
}

func WithLogger(l *applog.Logger) ServiceOption {
	return func(s *LedgerService) { s.logger = l }
}

// WithServiceClock replaces the wall clock used for creation times, import
// normalization and export names.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *LedgerService) { s.now = now }
}

func WithServiceIDs(ids core.IDSource) ServiceOption {
	return func(s *LedgerService) { s.ids = ids }
}

func NewLedgerService(local LocalRepository, ls *LedgerSync, opts ...ServiceOption) *LedgerService {
	s := &LedgerService{
		local:  local,
		sync:   ls,
		logger: applog.Discard(),
		policy: reconcile.DefaultPolicy(),
		ids:    core.UUIDSource{},
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sync == nil {
		s.sync = NewLedgerSync(nil, s.logger)
	}
	s.logger = s.logger.WithComponent(applog.ComponentLedger)
	s.store = core.NewStore(core.EmptyLedger(), core.WithIDSource(s.ids), core.WithClock(s.now))
	return s
}

// Start loads the ledger for this session.
//
// With a remote configured the remote ledger wins when present and the
// local copy is used when the remote holds nothing. When the remote cannot
// be read the session starts empty and refuses mutations until Pull
// succeeds. Without a remote the local copy is used.
func (s *LedgerService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	local, err := s.local.Load(ctx)
	if err != nil {
		return fmt.Errorf("load local ledger: %w", err)
	}
	meta, err := s.local.LoadSyncMeta(ctx)
	if err != nil {
		return fmt.Errorf("load sync metadata: %w", err)
	}
	s.sync.Restore(meta.LastSync, meta.LastError)

	res, status, err := s.sync.Pull(ctx)
	switch {
	case errors.Is(err, ErrNotConfigured):
		s.store.Replace(local)
	case err != nil:
		s.store.Replace(core.EmptyLedger())
		s.degraded = true
		s.persistMeta(ctx, status)
		s.logger.Error("Startup load from remote failed, changes are locked until a pull succeeds",
			applog.FieldOperation, applog.OpStartup,
			applog.FieldError, err)
	case res.Found:
		s.store.Replace(res.Ledger)
		if err := s.local.Save(ctx, res.Ledger); err != nil {
			return fmt.Errorf("save remote ledger locally: %w", err)
		}
		s.persistMeta(ctx, status)
	default:
		s.store.Replace(local)
		s.persistMeta(ctx, status)
	}

	l := s.store.Snapshot()
	s.logger.Info("Ledger loaded",
		applog.FieldOperation, applog.OpStartup,
		applog.FieldSyncState, string(status.State),
		applog.FieldEvents, len(l.Events),
		applog.FieldHeads, len(l.ExpenseHeads),
		applog.FieldEntries, len(l.ExpenseEntries))
	return nil
}

// Ledger returns a snapshot of the current ledger.
func (s *LedgerService) Ledger() core.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot()
}

func (s *LedgerService) Status() SyncStatus {
	return s.sync.Status()
}

// Degraded reports whether mutations are locked after a failed startup load.
func (s *LedgerService) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *LedgerService) CreateEvent(ctx context.Context, in core.NewEvent) (core.Event, error) {
	var ev core.Event
	err := s.mutate(ctx, applog.OpCreate, func() (err error) {
		ev, err = s.store.CreateEvent(in)
		return err
	})
	return ev, err
}

func (s *LedgerService) CreateExpenseHead(ctx context.Context, in core.NewExpenseHead) (core.ExpenseHead, error) {
	var head core.ExpenseHead
	err := s.mutate(ctx, applog.OpCreate, func() (err error) {
		head, err = s.store.CreateExpenseHead(in)
		return err
	})
	return head, err
}

// CreateExpenseEntry records a payment. The warning is non-nil when the
// payment exceeds what was still due; the entry is stored regardless.
func (s *LedgerService) CreateExpenseEntry(ctx context.Context, in core.NewExpenseEntry) (core.ExpenseEntry, *core.OverpaymentWarning, error) {
	var (
		entry   core.ExpenseEntry
		warning *core.OverpaymentWarning
	)
	err := s.mutate(ctx, applog.OpCreate, func() (err error) {
		entry, warning, err = s.store.CreateExpenseEntry(in)
		return err
	})
	if err != nil {
		return core.ExpenseEntry{}, nil, err
	}
	if warning != nil {
		s.logger.Warn("Overpayment recorded",
			applog.FieldHeadID, warning.ExpenseHeadID,
			applog.FieldAmount, warning.Amount.String(),
			"remaining", warning.Remaining.String())
	}
	return entry, warning, nil
}

func (s *LedgerService) DeleteEvent(ctx context.Context, id string) error {
	return s.mutate(ctx, applog.OpDelete, func() error {
		s.store.DeleteEvent(id)
		return nil
	})
}

func (s *LedgerService) DeleteExpenseHead(ctx context.Context, id string) error {
	return s.mutate(ctx, applog.OpDelete, func() error {
		s.store.DeleteExpenseHead(id)
		return nil
	})
}

func (s *LedgerService) DeleteExpenseEntry(ctx context.Context, id string) error {
	return s.mutate(ctx, applog.OpDelete, func() error {
		s.store.DeleteExpenseEntry(id)
		return nil
	})
}

func (s *LedgerService) UpdateExpenseHeadAmount(ctx context.Context, id string, total core.Amount) error {
	return s.mutate(ctx, applog.OpUpdate, func() error {
		return s.store.UpdateExpenseHeadAmount(id, total)
	})
}

func (s *LedgerService) UpdateExpenseEntryAmount(ctx context.Context, id string, amount core.Amount) error {
	return s.mutate(ctx, applog.OpUpdate, func() error {
		return s.store.UpdateExpenseEntryAmount(id, amount)
	})
}

// Import merges a decoded payload into the ledger under the configured
// dedup policy.
func (s *LedgerService) Import(ctx context.Context, p reconcile.Payload) (reconcile.Stats, error) {
	var stats reconcile.Stats
	err := s.mutate(ctx, applog.OpImport, func() error {
		res := reconcile.Import(s.store.Snapshot(), p, s.now(), s.policy)
		s.store.Replace(res.Ledger)
		stats = res.Stats
		return nil
	})
	if err == nil {
		s.logger.Info("Import merged", applog.FieldImportStats, stats.Summary())
		if n := stats.Orphaned(); n > 0 {
			s.logger.Warn("Import dropped items without a parent", "orphaned", n)
		}
	}
	return stats, err
}

// Export writes the current ledger to a timestamped file in dir.
func (s *LedgerService) Export(dir string) (string, error) {
	path, err := transfer.Export(dir, s.Ledger(), s.now())
	if err != nil {
		return "", fmt.Errorf("export ledger: %w", err)
	}
	s.logger.Info("Ledger exported", applog.FieldOperation, applog.OpExport, "path", path)
	return path, nil
}

// Sync pushes the current ledger to the remote store. Unlike the push that
// follows a mutation, its error is returned.
func (s *LedgerService) Sync(ctx context.Context) (SyncStatus, error) {
	s.mu.Lock()
	if s.degraded {
		s.mu.Unlock()
		return s.sync.Status(), ErrStartupLoadFailed
	}
	l := s.store.Snapshot()
	s.mu.Unlock()

	return s.push(ctx, l)
}

// Pull replaces the ledger, in memory and on disk, with the remote one. A
// remote that holds nothing leaves the ledger unchanged. A successful pull
// lifts the lock left by a failed startup load.
func (s *LedgerService) Pull(ctx context.Context) (PullResult, SyncStatus, error) {
	res, status, err := s.sync.Pull(ctx)
	if err != nil || status.Skipped {
		if !errors.Is(err, ErrNotConfigured) {
			s.persistMeta(ctx, status)
		}
		return res, status, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if res.Found {
		if err := s.local.Save(ctx, res.Ledger); err != nil {
			return res, status, fmt.Errorf("save pulled ledger locally: %w", err)
		}
		s.store.Replace(res.Ledger)
	} else if s.degraded {
		s.store.Replace(core.EmptyLedger())
	}
	s.degraded = false
	s.persistMeta(ctx, status)
	s.logger.Info("Pulled remote ledger",
		applog.FieldOperation, applog.OpPull,
		"found", res.Found)
	return res, status, nil
}

// ClearAll wipes the remote ledger and then the local one. confirmation
// must be exactly ClearAllConfirmation. Nothing local changes unless the
// remote delete succeeded.
func (s *LedgerService) ClearAll(ctx context.Context, confirmation string) (SyncStatus, error) {
	status, err := s.sync.ClearAll(ctx, confirmation)
	if err != nil {
		if !errors.Is(err, ErrConfirmationMismatch) && !errors.Is(err, ErrNotConfigured) && !errors.Is(err, ErrSyncInProgress) {
			s.persistMeta(ctx, status)
		}
		return status, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Clear()
	if err := s.local.Clear(ctx); err != nil {
		return status, fmt.Errorf("clear local ledger: %w", err)
	}
	s.degraded = false
	s.sync.Restore(time.Time{}, "")
	status = s.sync.Status()
	s.persistMeta(ctx, status)
	s.logger.Warn("All data cleared", applog.FieldOperation, applog.OpClear)
	return status, nil
}

// mutate runs fn against the store, then saves the result locally and
// pushes it to the remote. Remote failures are recorded, not returned. A
// failed local save rolls the store back.
func (s *LedgerService) mutate(ctx context.Context, op string, fn func() error) error {
	l, err := s.apply(ctx, fn)
	if err != nil {
		return err
	}
	if _, err := s.push(ctx, l); err != nil && !errors.Is(err, ErrNotConfigured) {
		s.logger.Warn("Ledger saved locally but not remotely",
			applog.FieldOperation, op,
			applog.FieldError, err)
	}
	return nil
}

// apply runs fn and saves the result locally under s.mu and returns the
// new ledger.
func (s *LedgerService) apply(ctx context.Context, fn func() error) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.degraded {
		return core.Ledger{}, ErrStartupLoadFailed
	}
	before := s.store.Snapshot()
	if err := fn(); err != nil {
		s.store.Replace(before)
		return core.Ledger{}, err
	}
	l := s.store.Snapshot()
	if err := s.local.Save(ctx, l); err != nil {
		s.store.Replace(before)
		return core.Ledger{}, fmt.Errorf("save ledger locally: %w", err)
	}
	return l, nil
}

// push writes l to the remote store and announces it. Callers must not
// hold s.mu.
func (s *LedgerService) push(ctx context.Context, l core.Ledger) (SyncStatus, error) {
	status, err := s.sync.Save(ctx, l)
	if errors.Is(err, ErrNotConfigured) {
		return status, err
	}
	s.persistMeta(ctx, status)
	if err != nil || status.Skipped {
		return status, err
	}
	s.announce(ctx, status.LastSync, l)
	return status, nil
}

func (s *LedgerService) announce(ctx context.Context, lastModified time.Time, l core.Ledger) {
	if s.notify == nil {
		return
	}
	msg := amqp.NewLedgerChangedMessage(s.deviceID, lastModified, l)
	if err := s.notify.PublishLedgerChanged(ctx, msg); err != nil {
		s.logger.Error("Failed to publish ledger change",
			applog.FieldDeviceID, s.deviceID,
			applog.FieldError, err)
	}
}

func (s *LedgerService) persistMeta(ctx context.Context, status SyncStatus) {
	meta := storage.SyncMeta{LastSync: status.LastSync, LastError: status.LastError}
	if err := s.local.SaveSyncMeta(ctx, meta); err != nil {
		s.logger.Error("Failed to save sync metadata",
			applog.FieldErrorType, applog.ErrorTypeDatabase,
			applog.FieldError, err)
	}
}
