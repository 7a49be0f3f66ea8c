// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"roletodo/internal/app"
	"roletodo/internal/config"
)

// Level says how much of the environment a command needs before it runs.
type Level int

const (
	// Offline commands get no environment (help, version, config).
	Offline Level = iota
	// Local commands get storage and the session store but no server.
	Local
	// Remote commands need a configured server.
	Remote
	// Authenticated commands need a session the server still accepts.
	Authenticated
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// Level reports what the dispatcher must prepare.
	Level() Level

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided. env is nil for Offline commands.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, env *app.Env, args []string, out, errOut io.Writer) int
}
