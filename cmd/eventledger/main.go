package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"eventledger/internal/cli"
	"eventledger/internal/config"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, os.Stderr)

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	Register(commander)

	flag.Parse()
	env := &runEnv{cfg: cfg, logger: logger, out: os.Stdout}
	os.Exit(int(commander.Execute(context.Background(), env)))
}

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(newGroup("event", "manage events", &eventAddCmd{}, &eventListCmd{}, &eventDeleteCmd{}), "ledger")
	c.Register(newGroup("head", "manage expense heads", &headAddCmd{}, &headListCmd{}, &headUpdateCmd{}, &headDeleteCmd{}), "ledger")
	c.Register(newGroup("entry", "manage payments", &entryAddCmd{}, &entryUpdateCmd{}, &entryDeleteCmd{}, &entryHistoryCmd{}), "ledger")
	c.Register(&statsCmd{}, "ledger")

	c.Register(&importCmd{}, "transfer")
	c.Register(&exportCmd{}, "transfer")

	c.Register(&syncCmd{}, "sync")
	c.Register(&pullCmd{}, "sync")
	c.Register(&statusCmd{}, "sync")
	c.Register(&clearCmd{}, "sync")

	c.Register(&reportCmd{}, "reports")
}
