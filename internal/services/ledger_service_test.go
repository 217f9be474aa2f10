package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"eventledger/internal/amqp"
	"eventledger/internal/core"
	"eventledger/internal/reconcile"
	"eventledger/internal/remote"
	"eventledger/internal/remote/memory"
	"eventledger/internal/storage"
)

// fakeLocal is an in-memory LocalRepository.
type fakeLocal struct {
	mu      sync.Mutex
	ledger  core.Ledger
	meta    storage.SyncMeta
	saves   int
	saveErr error
}

func newFakeLocal() *fakeLocal { return &fakeLocal{ledger: core.EmptyLedger()} }

func (f *fakeLocal) Load(context.Context) (core.Ledger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ledger.Clone(), nil
}

func (f *fakeLocal) Save(_ context.Context, l core.Ledger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.ledger = l.Clone()
	return nil
}

func (f *fakeLocal) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledger = core.EmptyLedger()
	return nil
}

func (f *fakeLocal) LoadSyncMeta(context.Context) (storage.SyncMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meta, nil
}

func (f *fakeLocal) SaveSyncMeta(_ context.Context, m storage.SyncMeta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meta = m
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []*amqp.LedgerChangedMessage
	err  error
}

func (r *recordingNotifier) PublishLedgerChanged(_ context.Context, msg *amqp.LedgerChangedMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

var serviceNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type counterIDs struct{ n int }

func (c *counterIDs) NewID(prefix string) string {
	c.n++
	return prefix + "-" + string(rune('a'+c.n-1))
}

func newTestService(t *testing.T, local LocalRepository, store remote.LedgerStore, opts ...ServiceOption) *LedgerService {
	t.Helper()
	opts = append([]ServiceOption{
		WithServiceClock(func() time.Time { return serviceNow }),
		WithServiceIDs(&counterIDs{}),
	}, opts...)
	var ls *LedgerSync
	if store != nil {
		ls = NewLedgerSync(store, nil)
	}
	svc := NewLedgerService(local, ls, opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return svc
}

func mustAmount(t *testing.T, s string) core.Amount {
	t.Helper()
	a, err := core.ParseAmount(s)
	if err != nil {
		t.Fatalf("ParseAmount(%q): %v", s, err)
	}
	return a
}

func TestLedgerService_ScenarioA(t *testing.T) {
	ctx := context.Background()
	remoteStore := memory.New()
	local := newFakeLocal()
	svc := newTestService(t, local, remoteStore)

	ev, err := svc.CreateEvent(ctx, core.NewEvent{Name: "Wedding", StartDate: serviceNow})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	head, err := svc.CreateExpenseHead(ctx, core.NewExpenseHead{
		EventID: ev.ID, Name: "Catering", Category: "Food", TotalAmount: mustAmount(t, "50000"),
	})
	if err != nil {
		t.Fatalf("CreateExpenseHead: %v", err)
	}
	for _, paid := range []string{"20000", "15000"} {
		if _, w, err := svc.CreateExpenseEntry(ctx, core.NewExpenseEntry{ExpenseHeadID: head.ID, AmountPaid: mustAmount(t, paid)}); err != nil || w != nil {
			t.Fatalf("CreateExpenseEntry(%s): warning %v err %v", paid, w, err)
		}
	}

	l := svc.Ledger()
	if got := core.AmountPaid(l, head.ID); !got.Equal(mustAmount(t, "35000")) {
		t.Errorf("amountPaid = %s, want 35000", got)
	}
	if got := core.AmountDue(l, head.ID); !got.Equal(mustAmount(t, "15000")) {
		t.Errorf("amountDue = %s, want 15000", got)
	}
	roll := core.EventRollup(l, ev.ID)
	if !roll.TotalBudget.Equal(mustAmount(t, "50000")) || !roll.TotalSpent.Equal(mustAmount(t, "35000")) || !roll.TotalDue.Equal(mustAmount(t, "15000")) {
		t.Errorf("unexpected rollup %+v", roll)
	}

	if remoteStore.Puts() != 4 {
		t.Errorf("expected one put per mutation (4), got %d", remoteStore.Puts())
	}
	if len(local.ledger.ExpenseEntries) != 2 {
		t.Errorf("local copy has %d entries, want 2", len(local.ledger.ExpenseEntries))
	}
	if local.meta.LastSync.IsZero() {
		t.Error("sync metadata should be persisted after a successful push")
	}
}

func TestLedgerService_OverpaymentIsStoredWithWarning(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newFakeLocal(), nil)

	ev, _ := svc.CreateEvent(ctx, core.NewEvent{Name: "Trip", StartDate: serviceNow})
	head, _ := svc.CreateExpenseHead(ctx, core.NewExpenseHead{EventID: ev.ID, Name: "Hotel", Category: "Stay", TotalAmount: mustAmount(t, "100")})

	_, warning, err := svc.CreateExpenseEntry(ctx, core.NewExpenseEntry{ExpenseHeadID: head.ID, AmountPaid: mustAmount(t, "150")})
	if err != nil {
		t.Fatalf("CreateExpenseEntry: %v", err)
	}
	if warning == nil {
		t.Fatal("expected an overpayment warning")
	}
	if got := core.AmountDue(svc.Ledger(), head.ID); !got.Equal(mustAmount(t, "-50")) {
		t.Errorf("amountDue = %s, want -50", got)
	}
}

func TestLedgerService_LocalOnlyWithoutRemote(t *testing.T) {
	ctx := context.Background()
	local := newFakeLocal()
	svc := newTestService(t, local, nil)

	if svc.Status().State != StateDisabled {
		t.Fatalf("expected disabled, got %s", svc.Status().State)
	}
	if _, err := svc.CreateEvent(ctx, core.NewEvent{Name: "Party", StartDate: serviceNow}); err != nil {
		t.Fatalf("CreateEvent without remote should succeed: %v", err)
	}
	if len(local.ledger.Events) != 1 {
		t.Error("event should be saved locally")
	}
	if _, err := svc.Sync(ctx); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("manual sync: expected ErrNotConfigured, got %v", err)
	}
}

func TestLedgerService_StartPrefersRemote(t *testing.T) {
	remoteLedger := core.EmptyLedger()
	remoteLedger.Events = []core.Event{{ID: "ev-remote", Name: "Remote", StartDate: serviceNow}}
	modified := serviceNow.Add(-time.Hour)

	local := newFakeLocal()
	local.ledger.Events = []core.Event{{ID: "ev-local", Name: "Local", StartDate: serviceNow}}

	svc := newTestService(t, local, memory.NewWithDocument(remote.Document{Ledger: remoteLedger, LastModified: modified}))

	l := svc.Ledger()
	if len(l.Events) != 1 || l.Events[0].ID != "ev-remote" {
		t.Fatalf("expected the remote ledger, got %+v", l.Events)
	}
	if local.ledger.Events[0].ID != "ev-remote" {
		t.Error("remote ledger should be copied locally")
	}
	if !svc.Status().LastSync.Equal(modified) {
		t.Errorf("LastSync should come from the remote document, got %v", svc.Status().LastSync)
	}
}

func TestLedgerService_StartFallsBackToLocalWhenRemoteEmpty(t *testing.T) {
	local := newFakeLocal()
	local.ledger.Events = []core.Event{{ID: "ev-local", Name: "Local", StartDate: serviceNow}}

	svc := newTestService(t, local, memory.New())

	if l := svc.Ledger(); len(l.Events) != 1 || l.Events[0].ID != "ev-local" {
		t.Fatalf("expected the local ledger, got %+v", l.Events)
	}
}

func TestLedgerService_StartupFailureLocksWrites(t *testing.T) {
	ctx := context.Background()
	remoteStore := &failingRemote{err: errors.New("network down")}
	local := newFakeLocal()
	local.ledger.Events = []core.Event{{ID: "ev-local", Name: "Local", StartDate: serviceNow}}

	svc := newTestService(t, local, remoteStore)

	if !svc.Ledger().IsEmpty() {
		t.Fatal("session should start from an empty ledger after a failed load")
	}
	if !svc.Degraded() {
		t.Fatal("service should be degraded")
	}
	if svc.Status().LastError == "" {
		t.Error("LastError should record the failed load")
	}
	if _, err := svc.CreateEvent(ctx, core.NewEvent{Name: "X", StartDate: serviceNow}); !errors.Is(err, ErrStartupLoadFailed) {
		t.Errorf("expected ErrStartupLoadFailed, got %v", err)
	}
	if err := svc.DeleteEvent(ctx, "ev-local"); !errors.Is(err, ErrStartupLoadFailed) {
		t.Errorf("expected ErrStartupLoadFailed, got %v", err)
	}
	if len(local.ledger.Events) != 1 {
		t.Fatal("local data must not be touched while degraded")
	}

	remoteStore.setErr(nil)
	if _, _, err := svc.Pull(ctx); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if svc.Degraded() {
		t.Error("a successful pull should lift the lock")
	}
	if _, err := svc.CreateEvent(ctx, core.NewEvent{Name: "X", StartDate: serviceNow}); err != nil {
		t.Errorf("CreateEvent after pull: %v", err)
	}
}

func TestLedgerService_RemoteFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	remoteStore := &failingRemote{}
	local := newFakeLocal()
	svc := newTestService(t, local, remoteStore)

	remoteStore.setErr(errors.New("503"))
	if _, err := svc.CreateEvent(ctx, core.NewEvent{Name: "Gala", StartDate: serviceNow}); err != nil {
		t.Fatalf("mutation should succeed locally: %v", err)
	}
	if len(local.ledger.Events) != 1 {
		t.Error("event should be saved locally")
	}
	if svc.Status().LastError == "" {
		t.Error("LastError should be set")
	}
	if local.meta.LastError == "" {
		t.Error("LastError should be persisted")
	}
	if _, err := svc.Sync(ctx); err == nil {
		t.Error("manual sync should surface the remote error")
	}
}

func TestLedgerService_LocalFailureFailsMutation(t *testing.T) {
	local := newFakeLocal()
	svc := newTestService(t, local, nil)
	local.saveErr = errors.New("disk full")

	if _, err := svc.CreateEvent(context.Background(), core.NewEvent{Name: "Gala", StartDate: serviceNow}); err == nil {
		t.Fatal("expected the local save error")
	}
	if n := len(svc.Ledger().Events); n != 0 {
		t.Errorf("failed save must leave the session unchanged, got %d events", n)
	}

	local.saveErr = nil
	if _, err := svc.CreateEvent(context.Background(), core.NewEvent{Name: "Fair", StartDate: serviceNow}); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if got := local.ledger.Events; len(got) != 1 || got[0].Name != "Fair" {
		t.Errorf("disk should hold only the later event, got %+v", got)
	}
}

func TestLedgerService_SyncWhileSyncingIsSkipped(t *testing.T) {
	ctx := context.Background()
	remoteStore := newBlockingRemote()
	svc := newTestService(t, newFakeLocal(), remoteStore)

	var (
		first    SyncStatus
		firstErr error
		done     = make(chan struct{})
	)
	go func() {
		defer close(done)
		first, firstErr = svc.Sync(ctx)
	}()
	<-remoteStore.started

	read := make(chan struct{})
	go func() {
		svc.Ledger()
		close(read)
	}()
	select {
	case <-read:
	case <-time.After(2 * time.Second):
		t.Fatal("Ledger() blocked while a put was in flight")
	}

	second, err := svc.Sync(ctx)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if !second.Skipped {
		t.Error("second sync should be skipped while the first is in flight")
	}

	if _, err := svc.CreateEvent(ctx, core.NewEvent{Name: "Gala", StartDate: serviceNow}); err != nil {
		t.Fatalf("mutation during sync: %v", err)
	}
	if n := len(svc.Ledger().Events); n != 1 {
		t.Errorf("mutation should apply locally, got %d events", n)
	}

	close(remoteStore.release)
	<-done
	if firstErr != nil || first.Skipped {
		t.Errorf("first sync: status %+v, err %v", first, firstErr)
	}
	if got := remoteStore.Puts(); got != 1 {
		t.Errorf("expected exactly 1 put, got %d", got)
	}
}

func TestLedgerService_Notifies(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{err: errors.New("broker down")}
	svc := newTestService(t, newFakeLocal(), memory.New(), WithNotifier(notifier), WithDeviceID("laptop"))

	if _, err := svc.CreateEvent(ctx, core.NewEvent{Name: "Gala", StartDate: serviceNow}); err != nil {
		t.Fatalf("publish errors must not fail the mutation: %v", err)
	}
	if len(notifier.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(notifier.msgs))
	}
	msg := notifier.msgs[0]
	if msg.DeviceID != "laptop" || msg.Events != 1 {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestLedgerService_NoNotificationWhenRemoteFails(t *testing.T) {
	notifier := &recordingNotifier{}
	remoteStore := &failingRemote{}
	svc := newTestService(t, newFakeLocal(), remoteStore, WithNotifier(notifier))

	remoteStore.setErr(errors.New("503"))
	_, _ = svc.CreateEvent(context.Background(), core.NewEvent{Name: "Gala", StartDate: serviceNow})
	if len(notifier.msgs) != 0 {
		t.Errorf("expected no message, got %d", len(notifier.msgs))
	}
}

func TestLedgerService_ImportScenarioB(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newFakeLocal(), nil)

	payload := reconcile.Payload{
		Legacy: true,
		Ledger: core.Ledger{
			ExpenseHeads:   []core.ExpenseHead{{ID: "h1", Name: "Venue", Category: "Hall", TotalAmount: mustAmount(t, "1000")}},
			ExpenseEntries: []core.ExpenseEntry{},
		},
	}
	stats, err := svc.Import(ctx, payload)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	l := svc.Ledger()
	if len(l.Events) != 1 {
		t.Fatalf("expected 1 synthesized event, got %d", len(l.Events))
	}
	if l.ExpenseHeads[0].EventID != l.Events[0].ID {
		t.Errorf("h1.eventId = %q, want %q", l.ExpenseHeads[0].EventID, l.Events[0].ID)
	}
	if stats.AddedEvents != 1 || stats.AddedHeads != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestLedgerService_ClearAllScenarioD(t *testing.T) {
	ctx := context.Background()
	remoteStore := memory.New()
	local := newFakeLocal()
	svc := newTestService(t, local, remoteStore)

	if _, err := svc.CreateEvent(ctx, core.NewEvent{Name: "Wedding", StartDate: serviceNow}); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	if _, err := svc.ClearAll(ctx, "delete all"); !errors.Is(err, ErrConfirmationMismatch) {
		t.Fatalf("expected ErrConfirmationMismatch, got %v", err)
	}
	if len(svc.Ledger().Events) != 1 || len(local.ledger.Events) != 1 {
		t.Error("ledger must be unchanged after a blocked clear")
	}
	if doc, err := remoteStore.Get(ctx); err != nil || len(doc.Ledger.Events) != 1 {
		t.Errorf("remote must be unchanged after a blocked clear: %v", err)
	}

	status, err := svc.ClearAll(ctx, ClearAllConfirmation)
	if err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if !svc.Ledger().IsEmpty() || !local.ledger.IsEmpty() {
		t.Error("ledger should be empty after clear-all")
	}
	if _, err := remoteStore.Get(ctx); !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("remote should be deleted, got %v", err)
	}
	if !status.LastSync.IsZero() {
		t.Errorf("LastSync should be reset, got %v", status.LastSync)
	}
}

func TestLedgerService_ClearAllKeepsLocalOnRemoteFailure(t *testing.T) {
	ctx := context.Background()
	remoteStore := &failingRemote{}
	local := newFakeLocal()
	svc := newTestService(t, local, remoteStore)
	_, _ = svc.CreateEvent(ctx, core.NewEvent{Name: "Wedding", StartDate: serviceNow})

	remoteStore.setErr(errors.New("403"))
	if _, err := svc.ClearAll(ctx, ClearAllConfirmation); err == nil {
		t.Fatal("expected the remote error")
	}
	if len(svc.Ledger().Events) != 1 || len(local.ledger.Events) != 1 {
		t.Error("local data must survive a failed remote delete")
	}
}

func TestLedgerService_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	defer repo.Close()

	svc := newTestService(t, repo, nil)
	ev, err := svc.CreateEvent(ctx, core.NewEvent{Name: "Wedding", StartDate: serviceNow})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if _, err := svc.CreateExpenseHead(ctx, core.NewExpenseHead{EventID: ev.ID, Name: "Catering", Category: "Food", TotalAmount: mustAmount(t, "500.50")}); err != nil {
		t.Fatalf("CreateExpenseHead: %v", err)
	}

	reopened := newTestService(t, repo, nil)
	l := reopened.Ledger()
	if len(l.Events) != 1 || len(l.ExpenseHeads) != 1 {
		t.Fatalf("expected the persisted ledger, got %+v", l)
	}
	if !l.ExpenseHeads[0].TotalAmount.Equal(mustAmount(t, "500.5")) {
		t.Errorf("amount = %s, want 500.5", l.ExpenseHeads[0].TotalAmount)
	}
}
