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
	Register(&ConfigCmd{})
}

// ConfigCmd prints the effective configuration.
type ConfigCmd struct{}

func (c *ConfigCmd) Name() string      { return "config" }
func (c *ConfigCmd) Aliases() []string { return nil }
func (c *ConfigCmd) Synopsis() string  { return "Print the effective configuration" }
func (c *ConfigCmd) Usage() string     { return "roletodo config [common flags]" }
func (c *ConfigCmd) Level() Level      { return Offline }

func (c *ConfigCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ConfigCmd) Run(ctx context.Context, cfg *config.Config, env *app.Env, args []string, out, errOut io.Writer) int {
	data, err := cfg.YAML()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	fmt.Fprintf(out, "# %s\n", cfg.ConfigPath())
	out.Write(data)
	return exitcode.Success
}
