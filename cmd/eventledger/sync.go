package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/google/subcommands"

	"eventledger/internal/cli"
	"eventledger/internal/services"
)

type syncCmd struct{}

func (*syncCmd) Name() string             { return "sync" }
func (*syncCmd) Synopsis() string         { return "push the local ledger to the remote store" }
func (*syncCmd) Usage() string            { return "sync\n" }
func (*syncCmd) SetFlags(_ *flag.FlagSet) {}

func (c *syncCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(env *runEnv, app *cli.App) error {
		status, err := app.Ledger.Sync(ctx)
		if err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		if status.Skipped {
			fmt.Fprintln(env.out, "A sync is already in progress; nothing done.")
			return nil
		}
		printStatus(env.out, status)
		return nil
	})
}

type pullCmd struct{}

func (*pullCmd) Name() string             { return "pull" }
func (*pullCmd) Synopsis() string         { return "replace the local ledger with the remote one" }
func (*pullCmd) Usage() string            { return "pull\n" }
func (*pullCmd) SetFlags(_ *flag.FlagSet) {}

func (c *pullCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(env *runEnv, app *cli.App) error {
		res, status, err := app.Ledger.Pull(ctx)
		if err != nil {
			return fmt.Errorf("pull: %w", err)
		}
		if !res.Found {
			fmt.Fprintln(env.out, "The remote store holds no ledger yet.")
		} else {
			l := res.Ledger
			fmt.Fprintf(env.out, "Pulled %d event(s), %d expense head(s), %d entry/entries\n",
				len(l.Events), len(l.ExpenseHeads), len(l.ExpenseEntries))
		}
		printStatus(env.out, status)
		return nil
	})
}

type statusCmd struct{}

func (*statusCmd) Name() string             { return "status" }
func (*statusCmd) Synopsis() string         { return "show the sync state" }
func (*statusCmd) Usage() string            { return "status\n" }
func (*statusCmd) SetFlags(_ *flag.FlagSet) {}

func (c *statusCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(env *runEnv, app *cli.App) error {
		printStatus(env.out, app.Ledger.Status())
		if app.Ledger.Degraded() {
			fmt.Fprintln(env.out, "Changes are locked: the remote ledger could not be loaded. Run 'pull' to retry.")
		}
		return nil
	})
}

type clearCmd struct {
	confirm string
}

func (*clearCmd) Name() string     { return "clear" }
func (*clearCmd) Synopsis() string { return "delete all data, locally and remotely" }
func (*clearCmd) Usage() string {
	return `clear -confirm "DELETE ALL"

  Deletes every event, expense head and payment. The remote copy is deleted
  first; local data is only cleared if that succeeds.
`
}

func (c *clearCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.confirm, "confirm", "", `Type "DELETE ALL" to confirm.`)
}

func (c *clearCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if err := services.ConfirmClearAll(c.confirm); err != nil {
		return usageError(err.Error())
	}
	return withApp(ctx, args, func(env *runEnv, app *cli.App) error {
		if _, err := app.Ledger.ClearAll(ctx, c.confirm); err != nil {
			return fmt.Errorf("clear: %w", err)
		}
		fmt.Fprintln(env.out, "All data deleted.")
		return nil
	})
}

func printStatus(w io.Writer, s services.SyncStatus) {
	fmt.Fprintf(w, "Sync: %s\n", s.State)
	if !s.Enabled() {
		fmt.Fprintln(w, "Cloud sync is not configured; data is kept on this device only.")
		return
	}
	if s.LastSync.IsZero() {
		fmt.Fprintln(w, "Last sync: never")
	} else {
		fmt.Fprintf(w, "Last sync: %s\n", s.LastSync.Local().Format(time.DateTime))
	}
	if s.LastError != "" {
		fmt.Fprintf(w, "Last error: %s\n", s.LastError)
	}
}
