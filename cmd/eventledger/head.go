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

type headAddCmd struct {
	event    string
	name     string
	category string
	budget   string
}

func (*headAddCmd) Name() string     { return "add" }
func (*headAddCmd) Synopsis() string { return "add an expense head to an event" }
func (*headAddCmd) Usage() string {
	return `head add -event <event id> -name <name> -category <category> -budget <amount>
`
}

func (c *headAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.event, "event", "", "Owning event id.")
	f.StringVar(&c.name, "name", "", "Head name.")
	f.StringVar(&c.category, "category", "", "Category.")
	f.StringVar(&c.budget, "budget", "0", "Budget, zero or more.")
}

func (c *headAddCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	budget, err := core.ParseAmount(c.budget)
	if err != nil {
		return usageError(fmt.Sprintf("invalid budget %q", c.budget))
	}
	return withApp(ctx, args, func(env *runEnv, app *cli.App) error {
		head, err := app.Ledger.CreateExpenseHead(ctx, core.NewExpenseHead{
			EventID:     c.event,
			Name:        c.name,
			Category:    c.category,
			TotalAmount: budget,
		})
		if err != nil {
			return fmt.Errorf("create expense head: %w", err)
		}
		fmt.Fprintf(env.out, "Created expense head %s (%s) with budget %s\n", head.Name, head.ID, env.money(head.TotalAmount))
		return nil
	})
}

type headListCmd struct {
	event string
}

func (*headListCmd) Name() string     { return "list" }
func (*headListCmd) Synopsis() string { return "list expense heads with paid and due amounts" }
func (*headListCmd) Usage() string    { return "head list [-event <event id>]\n" }

func (c *headListCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.event, "event", "", "Only list heads of this event.")
}

func (c *headListCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(env *runEnv, app *cli.App) error {
		w := tabwriter.NewWriter(env.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEVENT\tNAME\tCATEGORY\tBUDGET\tPAID\tDUE")
		for _, h := range core.HeadsWithStats(app.Ledger.Ledger()) {
			if c.event != "" && h.EventID != c.event {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				h.ID, h.EventID, h.Name, h.Category,
				env.money(h.TotalAmount), env.money(h.AmountPaid), env.money(h.AmountDue))
		}
		return w.Flush()
	})
}

type headUpdateCmd struct {
	id     string
	budget string
}

func (*headUpdateCmd) Name() string     { return "update" }
func (*headUpdateCmd) Synopsis() string { return "change the budget of an expense head" }
func (*headUpdateCmd) Usage() string    { return "head update -id <head id> -budget <amount>\n" }

func (c *headUpdateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Expense head id.")
	f.StringVar(&c.budget, "budget", "", "New budget.")
}

func (c *headUpdateCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		return usageError("-id is required")
	}
	budget, err := core.ParseAmount(c.budget)
	if err != nil {
		return usageError(fmt.Sprintf("invalid budget %q", c.budget))
	}
	return withApp(ctx, args, func(env *runEnv, app *cli.App) error {
		if _, ok := app.Ledger.Ledger().FindHead(c.id); !ok {
			return fmt.Errorf("%w: %s", core.ErrHeadNotFound, c.id)
		}
		if err := app.Ledger.UpdateExpenseHeadAmount(ctx, c.id, budget); err != nil {
			return fmt.Errorf("update expense head: %w", err)
		}
		l := app.Ledger.Ledger()
		fmt.Fprintf(env.out, "Budget set to %s, due %s\n", env.money(budget), env.money(core.AmountDue(l, c.id)))
		return nil
	})
}

type headDeleteCmd struct {
	id string
}

func (*headDeleteCmd) Name() string     { return "delete" }
func (*headDeleteCmd) Synopsis() string { return "delete an expense head with its payments" }
func (*headDeleteCmd) Usage() string    { return "head delete -id <head id>\n" }

func (c *headDeleteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Expense head id.")
}

func (c *headDeleteCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		return usageError("-id is required")
	}
	return withApp(ctx, args, func(env *runEnv, app *cli.App) error {
		if _, ok := app.Ledger.Ledger().FindHead(c.id); !ok {
			return fmt.Errorf("%w: %s", core.ErrHeadNotFound, c.id)
		}
		if err := app.Ledger.DeleteExpenseHead(ctx, c.id); err != nil {
			return fmt.Errorf("delete expense head: %w", err)
		}
		fmt.Fprintf(env.out, "Deleted expense head %s\n", c.id)
		return nil
	})
}
