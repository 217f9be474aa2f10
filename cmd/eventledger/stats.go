package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"eventledger/internal/cli"
	"eventledger/internal/core"
)

type statsCmd struct{}

func (*statsCmd) Name() string             { return "stats" }
func (*statsCmd) Synopsis() string         { return "show budget, spent and due amounts per event and head" }
func (*statsCmd) Usage() string            { return "stats\n" }
func (*statsCmd) SetFlags(_ *flag.FlagSet) {}

func (c *statsCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(env *runEnv, app *cli.App) error {
		l := app.Ledger.Ledger()
		heads := core.HeadsByEvent(l)
		for _, ev := range core.EventsWithStats(l) {
			fmt.Fprintf(env.out, "%s: budget %s, spent %s, due %s\n",
				ev.Name, env.money(ev.TotalBudget), env.money(ev.TotalSpent), env.money(ev.TotalDue))
			for _, h := range heads[ev.ID] {
				note := ""
				if h.AmountDue.IsNegative() {
					note = " (overpaid)"
				}
				fmt.Fprintf(env.out, "  %s [%s]: paid %s of %s, due %s%s\n",
					h.Name, h.Category, env.money(h.AmountPaid), env.money(h.TotalAmount), env.money(h.AmountDue), note)
			}
		}
		if orphanHeads, orphanEntries := l.Orphans(); len(orphanHeads)+len(orphanEntries) > 0 {
			fmt.Fprintf(env.out, "Inconsistent data: orphaned heads [%s], orphaned entries [%s]\n",
				strings.Join(orphanHeads, ", "), strings.Join(orphanEntries, ", "))
		}
		return nil
	})
}
