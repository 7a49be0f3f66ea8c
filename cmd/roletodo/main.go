// Package main is the entry point for the roletodo CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"roletodo/internal/app"
	"roletodo/internal/cli"
	"roletodo/internal/commands"
	"roletodo/internal/config"
	"roletodo/internal/prompt"
)

func main() {
	// Create context that cancels on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory := func(ctx context.Context, cfg *config.Config) (*app.Env, error) {
		return app.New(cfg, app.Options{
			Prompt:    prompt.NewTerminal(os.Stdin, os.Stderr),
			LogOutput: os.Stderr,
		})
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
