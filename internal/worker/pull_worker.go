// Package worker keeps the local ledger in step with changes made on other
// devices.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"eventledger/internal/amqp"
	applog "eventledger/internal/log"
	"eventledger/internal/services"
)

// Target is the ledger the worker writes into.
type Target interface {
	Pull(ctx context.Context) (services.PullResult, services.SyncStatus, error)
	Status() services.SyncStatus
}

// Subscriber delivers change notifications published by other devices.
type Subscriber interface {
	ConsumeLedgerChanged(ctx context.Context, handler func(context.Context, *amqp.LedgerChangedMessage) error) error
}

type Config struct {
	// DeviceID identifies this device; its own notifications are ignored.
	DeviceID string
	// PullInterval is how often the remote ledger is pulled regardless of
	// notifications. Zero disables periodic pulls.
	PullInterval time.Duration
}

func DefaultConfig() Config {
	return Config{PullInterval: 5 * time.Minute}
}

// PullWorker pulls the remote ledger when another device announces a write,
// and periodically as a backstop for lost notifications.
type PullWorker struct {
	target     Target
	subscriber Subscriber
	config     Config
	logger     *applog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	runErr  error
}

// NewPullWorker returns a worker. subscriber may be nil, in which case only
// periodic pulls run.
func NewPullWorker(target Target, subscriber Subscriber, config Config, logger *applog.Logger) *PullWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &PullWorker{
		target:     target,
		subscriber: subscriber,
		config:     config,
		logger:     logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleLedgerChanged pulls the ledger announced by msg. Messages from this
// device and messages not newer than the last sync are ignored.
func (w *PullWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	if msg.DeviceID != "" && msg.DeviceID == w.config.DeviceID {
		w.logger.Debug("Ignoring own change notification",
			applog.FieldDeviceID, msg.DeviceID,
			applog.FieldSkipReason, "own_device")
		return nil
	}
	if last := w.target.Status().LastSync; !last.IsZero() && !msg.LastModified.After(last) {
		w.logger.Debug("Ignoring stale change notification",
			applog.FieldDeviceID, msg.DeviceID,
			applog.FieldLastSync, last,
			applog.FieldSkipReason, "stale")
		return nil
	}

	w.logger.Info("Ledger changed on another device",
		applog.FieldDeviceID, msg.DeviceID,
		applog.FieldEvents, msg.Events,
		applog.FieldHeads, msg.ExpenseHeads,
		applog.FieldEntries, msg.ExpenseEntries)
	return w.PullOnce(ctx)
}

// PullOnce pulls the remote ledger into the local store.
func (w *PullWorker) PullOnce(ctx context.Context) error {
	res, status, err := w.target.Pull(ctx)
	if err != nil {
		return fmt.Errorf("pull remote ledger: %w", err)
	}
	if status.Skipped {
		w.logger.Debug("Pull skipped", applog.FieldSkipReason, "syncing")
		return nil
	}
	w.logger.Debug("Periodic pull completed",
		"found", res.Found,
		applog.FieldLastSync, status.LastSync)
	return nil
}

// Run pulls once, then consumes notifications and pulls on the configured
// interval until ctx is cancelled. A consumer failure stops the worker.
func (w *PullWorker) Run(ctx context.Context) error {
	if err := w.PullOnce(ctx); err != nil {
		if errors.Is(err, services.ErrNotConfigured) {
			return err
		}
		w.logger.Warn("Startup pull failed", applog.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if w.subscriber != nil {
		g.Go(func() error {
			err := w.subscriber.ConsumeLedgerChanged(gctx, w.HandleLedgerChanged)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	if w.config.PullInterval > 0 {
		g.Go(func() error {
			w.pullLoop(gctx)
			return nil
		})
	}
	return g.Wait()
}

func (w *PullWorker) pullLoop(ctx context.Context) {
	ticker := time.NewTicker(w.config.PullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.PullOnce(ctx); err != nil {
				w.logger.Error("Periodic pull failed", applog.FieldError, err)
			}
		}
	}
}

// Start runs the worker in the background. It returns an error if the
// worker is already running.
func (w *PullWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("pull worker is already running")
	}
	w.running = true
	stopCh, doneCh := make(chan struct{}), make(chan struct{})
	w.stopCh, w.doneCh = stopCh, doneCh
	w.runErr = nil
	w.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-stopCh:
		case <-doneCh:
		}
		cancel()
	}()
	go func() {
		defer close(doneCh)
		err := w.Run(runCtx)
		w.mu.Lock()
		w.runErr = err
		w.mu.Unlock()
	}()

	w.logger.Info("Pull worker started",
		applog.FieldDeviceID, w.config.DeviceID,
		"pull_interval", w.config.PullInterval,
		"notifications", w.subscriber != nil)
	return nil
}

// Stop signals the worker and waits for it to finish or for ctx to expire.
func (w *PullWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		w.logger.Info("Pull worker stopped")
	case <-ctx.Done():
		w.logger.Warn("Pull worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	err := w.runErr
	w.mu.Unlock()
	return err
}

func (w *PullWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
