package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	"eventledger/internal/cli"
	"eventledger/internal/core"
)

type entryAddCmd struct {
	head   string
	amount string
	date   string
	image  string
}

func (*entryAddCmd) Name() string     { return "add" }
func (*entryAddCmd) Synopsis() string { return "record a payment against an expense head" }
func (*entryAddCmd) Usage() string {
	return `entry add -head <head id> -amount <amount> [-date <YYYY-MM-DD>] [-image <receipt file>]

  Paying more than what is still due is allowed and prints a warning.
`
}

func (c *entryAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.head, "head", "", "Expense head id.")
	f.StringVar(&c.amount, "amount", "", "Amount paid, greater than 0.")
	f.StringVar(&c.date, "date", "", "Payment date, defaults to now.")
	f.StringVar(&c.image, "image", "", "Optional receipt image, stored base64-encoded.")
}

func (c *entryAddCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	amount, err := core.ParseAmount(c.amount)
	if err != nil {
		return usageError(fmt.Sprintf("invalid amount %q", c.amount))
	}
	date, err := parseDate(c.date)
	if err != nil {
		return usageError(err.Error())
	}
	image, err := readImage(c.image)
	if err != nil {
		return fail(err)
	}

	return withApp(ctx, args, func(env *runEnv, app *cli.App) error {
		entry, warning, err := app.Ledger.CreateExpenseEntry(ctx, core.NewExpenseEntry{
			ExpenseHeadID: c.head,
			AmountPaid:    amount,
			Date:          date,
			Image:         image,
		})
		if err != nil {
			return fmt.Errorf("record payment: %w", err)
		}
		if warning != nil {
			fmt.Fprintf(os.Stderr, "Warning: amount paid (%s) exceeds remaining amount (%s)\n",
				env.money(warning.Amount), env.money(warning.Remaining))
		}
		fmt.Fprintf(env.out, "Recorded payment %s of %s\n", entry.ID, env.money(entry.AmountPaid))
		return nil
	})
}

// readImage returns the base64 encoding of the file at path, or "" when
// path is empty.
func readImage(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read receipt image: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	if err := core.ValidateImage(encoded); err != nil {
		return "", err
	}
	return encoded, nil
}

type entryUpdateCmd struct {
	id     string
	amount string
}

func (*entryUpdateCmd) Name() string     { return "update" }
func (*entryUpdateCmd) Synopsis() string { return "change the amount of a payment" }
func (*entryUpdateCmd) Usage() string    { return "entry update -id <entry id> -amount <amount>\n" }

func (c *entryUpdateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Entry id.")
	f.StringVar(&c.amount, "amount", "", "New amount, greater than 0.")
}

func (c *entryUpdateCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		return usageError("-id is required")
	}
	amount, err := core.ParseAmount(c.amount)
	if err != nil {
		return usageError(fmt.Sprintf("invalid amount %q", c.amount))
	}
	return withApp(ctx, args, func(env *runEnv, app *cli.App) error {
		if _, ok := app.Ledger.Ledger().FindEntry(c.id); !ok {
			return fmt.Errorf("entry not found: %s", c.id)
		}
		if err := app.Ledger.UpdateExpenseEntryAmount(ctx, c.id, amount); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		fmt.Fprintf(env.out, "Payment %s set to %s\n", c.id, env.money(amount))
		return nil
	})
}

type entryDeleteCmd struct {
	id string
}

func (*entryDeleteCmd) Name() string     { return "delete" }
func (*entryDeleteCmd) Synopsis() string { return "delete a single payment" }
func (*entryDeleteCmd) Usage() string    { return "entry delete -id <entry id>\n" }

func (c *entryDeleteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Entry id.")
}

func (c *entryDeleteCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		return usageError("-id is required")
	}
	return withApp(ctx, args, func(env *runEnv, app *cli.App) error {
		if _, ok := app.Ledger.Ledger().FindEntry(c.id); !ok {
			return fmt.Errorf("entry not found: %s", c.id)
		}
		if err := app.Ledger.DeleteExpenseEntry(ctx, c.id); err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}
		fmt.Fprintf(env.out, "Deleted payment %s\n", c.id)
		return nil
	})
}

type entryHistoryCmd struct {
	head string
}

func (*entryHistoryCmd) Name() string     { return "history" }
func (*entryHistoryCmd) Synopsis() string { return "list the payments of an expense head, newest first" }
func (*entryHistoryCmd) Usage() string    { return "entry history -head <head id>\n" }

func (c *entryHistoryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.head, "head", "", "Expense head id.")
}

func (c *entryHistoryCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if c.head == "" {
		return usageError("-head is required")
	}
	return withApp(ctx, args, func(env *runEnv, app *cli.App) error {
		l := app.Ledger.Ledger()
		head, ok := l.FindHead(c.head)
		if !ok {
			return fmt.Errorf("%w: %s", core.ErrHeadNotFound, c.head)
		}
		fmt.Fprintf(env.out, "%s: paid %s of %s, due %s\n", head.Name,
			env.money(core.AmountPaid(l, head.ID)), env.money(head.TotalAmount), env.money(core.AmountDue(l, head.ID)))

		w := tabwriter.NewWriter(env.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDATE\tAMOUNT\tRECEIPT")
		for _, e := range core.EntriesForHead(l, head.ID) {
			receipt := ""
			if e.Image != "" {
				receipt = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.Date.Format("2006-01-02"), env.money(e.AmountPaid), receipt)
		}
		return w.Flush()
	})
}
