// Package cli parses the command line and runs the selected command.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/common/expfmt"

	"roletodo/internal/app"
	"roletodo/internal/commands"
	"roletodo/internal/config"
	"roletodo/internal/exitcode"
	"roletodo/internal/service"
)

// EnvFactory builds the command environment from config.
// Used to inject the service and storage during dispatch.
type EnvFactory func(ctx context.Context, cfg *config.Config) (*app.Env, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  EnvFactory
}

// NewDispatcher creates a new dispatcher with the given registry and environment factory.
func NewDispatcher(registry *commands.Registry, factory EnvFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> startup gate
	if len(args) == 0 {
		args = []string{"dashboard"}
	}

	cmdName := args[0]
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args[1:], out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", flagError(err))
		return exitcode.UserError
	}

	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") && positionalArgs[0] != "-" {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: config error: %v\n", err)
		return exitcode.AuthError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	if cmd.Level() == commands.Offline {
		return cmd.Run(ctx, cfg, nil, positionalArgs, out, errOut)
	}

	env, err := d.factory(ctx, cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: config error: %v\n", err)
		return exitcode.AuthError
	}
	defer env.Close()
	if cfg.Debug {
		defer dumpMetrics(env, errOut)
	}

	if cmd.Level() >= commands.Remote && env.Service == nil {
		fmt.Fprintf(errOut, "error: %v (set it in %s or %s_BASE_URL)\n",
			config.ErrNoBaseURL, cfg.ConfigPath(), config.EnvPrefix)
		return exitcode.AuthError
	}

	if cmd.Level() == commands.Authenticated {
		if err := env.Flow.CheckSession(ctx); err != nil {
			if service.KindOf(err) == service.KindAuthentication {
				fmt.Fprintf(errOut, "error: auth error: %v (run: roletodo login)\n", err)
				return exitcode.AuthError
			}
			fmt.Fprintf(errOut, "error: backend error: %v\n", err)
			return exitcode.BackendError
		}
	}

	code := cmd.Run(ctx, cfg, env, positionalArgs, out, errOut)
	if code == exitcode.AuthError && cmd.Level() == commands.Authenticated {
		// The server rejected the session mid-command.
		if err := env.Sessions.Clear(); err != nil {
			env.Log.WithError(err).Warn("clear rejected session")
		}
	}
	return code
}

// flagError rewrites the flag package's messages into the CLI's wording.
func flagError(err error) string {
	msg := err.Error()
	if name, found := strings.CutPrefix(msg, "flag provided but not defined: "); found {
		return "unknown flag: " + name
	}
	if name, found := strings.CutPrefix(msg, "flag needs an argument: "); found {
		return "flag needs an argument: " + name
	}
	return msg
}

// dumpMetrics writes the request and mutation metrics in the Prometheus
// text format.
func dumpMetrics(env *app.Env, w io.Writer) {
	families, err := env.Metrics.Gather()
	if err != nil {
		fmt.Fprintf(w, "error: gather metrics: %v\n", err)
		return
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			fmt.Fprintf(w, "error: write metrics: %v\n", err)
			return
		}
	}
}
