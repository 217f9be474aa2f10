package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/subcommands"

	"eventledger/internal/cli"
	"eventledger/internal/config"
	"eventledger/internal/core"
	applog "eventledger/internal/log"
	"eventledger/internal/report"
	"eventledger/internal/services"
)

// runEnv is handed to every command through Execute's variadic args.
type runEnv struct {
	cfg    *config.Config
	logger *applog.Logger
	out    io.Writer
}

func envFrom(args []interface{}) *runEnv {
	for _, a := range args {
		if e, ok := a.(*runEnv); ok {
			return e
		}
	}
	return &runEnv{cfg: config.Load(), logger: applog.Discard(), out: os.Stdout}
}

// open validates the configuration and loads the ledger.
func (e *runEnv) open(ctx context.Context) (*cli.App, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	return cli.NewApp(ctx, e.cfg, e.logger)
}

func (e *runEnv) money(a core.Amount) string {
	return report.FormatAmount(a, e.cfg.Currency)
}

// withApp opens the app, runs fn and closes the app.
func withApp(ctx context.Context, args []interface{}, fn func(*runEnv, *cli.App) error) subcommands.ExitStatus {
	env := envFrom(args)
	app, err := env.open(ctx)
	if err != nil {
		return fail(err)
	}
	defer app.Close()

	if err := fn(env, app); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", err)
	if errors.Is(err, services.ErrStartupLoadFailed) {
		fmt.Fprintln(os.Stderr, "Run 'pull' once the remote store is reachable.")
	}
	return subcommands.ExitFailure
}

func usageError(msg string) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	return subcommands.ExitUsageError
}

// parseDate accepts YYYY-MM-DD or RFC 3339. Empty input yields the zero time.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return t.UTC(), nil
}

// groupCmd dispatches to a nested set of commands, e.g. "event add".
type groupCmd struct {
	name     string
	synopsis string
	children []subcommands.Command
}

func newGroup(name, synopsis string, children ...subcommands.Command) *groupCmd {
	return &groupCmd{name: name, synopsis: synopsis, children: children}
}

func (g *groupCmd) Name() string     { return g.name }
func (g *groupCmd) Synopsis() string { return g.synopsis }
func (g *groupCmd) Usage() string {
	names := make([]string, len(g.children))
	for i, c := range g.children {
		names[i] = c.Name()
	}
	return fmt.Sprintf("%s <%s> [flags]\n", g.name, strings.Join(names, "|"))
}
func (g *groupCmd) SetFlags(*flag.FlagSet) {}

func (g *groupCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	fs := flag.NewFlagSet(g.name, flag.ContinueOnError)
	cmdr := subcommands.NewCommander(fs, path.Base(os.Args[0])+" "+g.name)
	cmdr.Register(cmdr.HelpCommand(), "")
	for _, c := range g.children {
		cmdr.Register(c, "")
	}
	if err := fs.Parse(f.Args()); err != nil {
		return subcommands.ExitUsageError
	}
	return cmdr.Execute(ctx, args...)
}
