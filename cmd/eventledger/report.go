package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"

	"eventledger/internal/cli"
	"eventledger/internal/report"
	"eventledger/internal/sheets"
	gsheet "eventledger/internal/sheets/google"
)

type reportCmd struct {
	output string
	sheets bool
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "render a markdown budget report" }
func (*reportCmd) Usage() string {
	return `report [-o <file>] [-sheets]

  Renders events and expense heads with their budget, paid and due amounts in
  CURRENCY. With -sheets the same rollup is written to GOOGLE_SPREADSHEET_ID.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Write the report to this file instead of stdout.")
	f.BoolVar(&c.sheets, "sheets", false, "Also write the rollup to Google Sheets.")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(env *runEnv, app *cli.App) error {
		r := report.Build(app.Ledger.Ledger(), env.cfg.Currency, time.Now())

		out := env.out
		if c.output != "" {
			file, err := os.Create(c.output)
			if err != nil {
				return fmt.Errorf("create report file: %w", err)
			}
			defer file.Close()
			out = file
		}
		if err := report.RenderMarkdown(out, r); err != nil {
			return err
		}

		if !c.sheets {
			return nil
		}
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      env.cfg.GoogleSpreadsheetID,
			SheetName:          env.cfg.GoogleSheetName,
			ServiceAccountJSON: env.cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: env.cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return fmt.Errorf("google sheets: %w", err)
		}
		return publishReport(ctx, client, r, os.Stderr)
	})
}

func publishReport(ctx context.Context, w sheets.ReportWriter, r report.Report, log io.Writer) error {
	ref, err := w.WriteReport(ctx, r)
	if err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	fmt.Fprintf(log, "Report written to %s\n", ref)
	return nil
}
