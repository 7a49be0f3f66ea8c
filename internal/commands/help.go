package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"roletodo/internal/app"
	"roletodo/internal/config"
	"roletodo/internal/exitcode"
)

func init() {
	Register(&HelpCmd{Registry: DefaultRegistry})
}

// HelpCmd prints the usage of every command in Registry.
type HelpCmd struct {
	Registry *Registry
}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "roletodo help" }
func (c *HelpCmd) Level() Level      { return Offline }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, env *app.Env, args []string, out, errOut io.Writer) int {
	fmt.Fprintln(out, "Usage:")
	for _, cmd := range c.Registry.All() {
		fmt.Fprintf(out, "  %s\n", cmd.Usage())
		fmt.Fprintf(out, "      %s\n", cmd.Synopsis())
	}
	fmt.Fprint(out, commonFlagsText)
	return exitcode.Success
}

const commonFlagsText = `
Task references:
  3, #3            serial number shown by list
  id:<id>          server id

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs and request metrics to stderr
`
