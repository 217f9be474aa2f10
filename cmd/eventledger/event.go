package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/google/subcommands"

	"eventledger/internal/cli"
	"eventledger/internal/core"
)

type eventAddCmd struct {
	name        string
	description string
	start       string
	end         string
}

func (*eventAddCmd) Name() string     { return "add" }
func (*eventAddCmd) Synopsis() string { return "create an event" }
func (*eventAddCmd) Usage() string {
	return `event add -name <name> -start <YYYY-MM-DD> [-end <YYYY-MM-DD>] [-description <text>]
`
}

func (c *eventAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Event name.")
	f.StringVar(&c.description, "description", "", "Optional description.")
	f.StringVar(&c.start, "start", "", "Start date.")
	f.StringVar(&c.end, "end", "", "Optional end date, not before the start date.")
}

func (c *eventAddCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	start, err := parseDate(c.start)
	if err != nil {
		return usageError(err.Error())
	}
	in := core.NewEvent{Name: c.name, Description: c.description, StartDate: start}
	if c.end != "" {
		end, err := parseDate(c.end)
		if err != nil {
			return usageError(err.Error())
		}
		in.EndDate = &end
	}

	return withApp(ctx, args, func(env *runEnv, app *cli.App) error {
		ev, err := app.Ledger.CreateEvent(ctx, in)
		if err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		fmt.Fprintf(env.out, "Created event %s (%s)\n", ev.Name, ev.ID)
		return nil
	})
}

type eventListCmd struct{}

func (*eventListCmd) Name() string             { return "list" }
func (*eventListCmd) Synopsis() string         { return "list events with their budget rollup" }
func (*eventListCmd) Usage() string            { return "event list\n" }
func (*eventListCmd) SetFlags(_ *flag.FlagSet) {}

func (c *eventListCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(env *runEnv, app *cli.App) error {
		events := core.EventsWithStats(app.Ledger.Ledger())
		if len(events) == 0 {
			fmt.Fprintln(env.out, "No events.")
			return nil
		}
		w := tabwriter.NewWriter(env.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTART\tHEADS\tBUDGET\tSPENT\tDUE")
		for _, ev := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
				ev.ID, ev.Name, ev.StartDate.Format("2006-01-02"), ev.TotalExpenseHeads,
				env.money(ev.TotalBudget), env.money(ev.TotalSpent), env.money(ev.TotalDue))
		}
		return w.Flush()
	})
}

type eventDeleteCmd struct {
	id string
}

func (*eventDeleteCmd) Name() string     { return "delete" }
func (*eventDeleteCmd) Synopsis() string { return "delete an event with its heads and payments" }
func (*eventDeleteCmd) Usage() string    { return "event delete -id <event id>\n" }

func (c *eventDeleteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Event id.")
}

func (c *eventDeleteCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		return usageError("-id is required")
	}
	return withApp(ctx, args, func(env *runEnv, app *cli.App) error {
		if _, ok := app.Ledger.Ledger().FindEvent(c.id); !ok {
			return fmt.Errorf("%w: %s", core.ErrEventNotFound, c.id)
		}
		if err := app.Ledger.DeleteEvent(ctx, c.id); err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		fmt.Fprintf(env.out, "Deleted event %s\n", c.id)
		return nil
	})
}
