// Package main is the cryyptctl CLI entrypoint: vault CRUD and session
// management (spec.md §6), plus standalone commands exercising the
// primitive façades, JWT subsystem, and transport adapters directly.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/cyrup-ai/cryypt/internal/cmd/cryptocmd"
	"github.com/cyrup-ai/cryypt/internal/cmd/jwtcmd"
	"github.com/cyrup-ai/cryypt/internal/cmd/transportcmd"
	"github.com/cyrup-ai/cryypt/internal/cmd/vaultcli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var commands []*cli.Command
	commands = append(commands, vaultcli.SessionCommands()...)
	commands = append(commands, vaultcli.DataCommands()...)
	commands = append(commands, vaultcli.KeyCommands()...)
	commands = append(commands, vaultcli.BackupCommands()...)
	commands = append(commands, cryptocmd.Commands()...)
	commands = append(commands, jwtcmd.Command(), transportcmd.Command())

	app := &cli.Command{
		Name:     "cryyptctl",
		Usage:    "Cryptography and secrets vault toolbox",
		Flags:    vaultcli.GlobalFlags(),
		Commands: commands,
	}
	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
