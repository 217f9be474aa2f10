package cli

import (
	"context"
	"errors"
	"fmt"

	"eventledger/internal/amqp"
	"eventledger/internal/backend"
	"eventledger/internal/config"
	applog "eventledger/internal/log"
	"eventledger/internal/services"
	"eventledger/internal/storage"
)

// App bundles the ledger service with the resources it was built from.
type App struct {
	Config  *config.Config
	Logger  *applog.Logger
	Ledger  *services.LedgerService
	Sync    *services.LedgerSync
	Repo    *storage.SQLiteRepository
	AMQP    *amqp.Client
	cleanup []func() error
}

// NewApp opens local storage, builds the configured remote store and
// change notifier, and loads the ledger. A broker that cannot be reached
// only disables notifications.
func NewApp(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open local storage: %w", err)
	}
	app.Repo = repo
	app.cleanup = append(app.cleanup, repo.Close)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	if res.Cleanup != nil {
		app.cleanup = append(app.cleanup, res.Cleanup)
	}
	app.Sync = services.NewLedgerSync(res.Store, logger)

	policy, err := cfg.DedupPolicy()
	if err != nil {
		app.Close()
		return nil, err
	}
	opts := []services.ServiceOption{
		services.WithLogger(logger),
		services.WithDeviceID(cfg.DeviceID),
		services.WithPolicy(policy),
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, QueueName(cfg))
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without notifications",
				applog.FieldErrorType, applog.ErrorTypeNetwork,
				applog.FieldError, err)
		} else {
			app.AMQP = client
			app.cleanup = append(app.cleanup, client.Close)
			opts = append(opts, services.WithNotifier(client))
		}
	}

	app.Ledger = services.NewLedgerService(repo, app.Sync, opts...)
	if err := app.Ledger.Start(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// QueueName returns the per-device queue bound to the notification
// exchange, so every device receives every notification.
func QueueName(cfg *config.Config) string {
	if cfg.DeviceID == "" {
		return cfg.AMQPQueue
	}
	return cfg.AMQPQueue + "." + cfg.DeviceID
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.cleanup = nil
	return errors.Join(errs...)
}
