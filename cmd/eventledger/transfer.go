package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"eventledger/internal/cli"
	"eventledger/internal/transfer"
)

type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "merge an exported ledger file into the current ledger" }
func (*importCmd) Usage() string {
	return `import <file>

  Items already present are skipped according to DEDUP_EVENTS, DEDUP_HEADS
  and DEDUP_ENTRIES. Files without events are treated as legacy exports and
  get a synthesized event.
`
}
func (*importCmd) SetFlags(_ *flag.FlagSet) {}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError("import needs exactly one file")
	}
	payload, err := transfer.DecodeFile(f.Arg(0))
	if err != nil {
		return fail(err)
	}
	return withApp(ctx, args, func(env *runEnv, app *cli.App) error {
		stats, err := app.Ledger.Import(ctx, payload)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		fmt.Fprintln(env.out, stats.Summary())
		return nil
	})
}

type exportCmd struct{}

func (*exportCmd) Name() string             { return "export" }
func (*exportCmd) Synopsis() string         { return "write the ledger to a timestamped JSON file" }
func (*exportCmd) Usage() string            { return "export [dir]\n" }
func (*exportCmd) SetFlags(_ *flag.FlagSet) {}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	dir := "."
	if f.NArg() > 0 {
		dir = f.Arg(0)
	}
	return withApp(ctx, args, func(env *runEnv, app *cli.App) error {
		path, err := app.Ledger.Export(dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.out, "Exported to %s\n", path)
		return nil
	})
}
