package commands

import (
	"context"
	"flag"
	"io"

	"roletodo/internal/app"
	"roletodo/internal/config"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd prints the task list under the dashboard for the role the server
// confirms. The cached role is never used to pick the view.
type ListCmd struct{}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "roletodo list [common flags]" }
func (c *ListCmd) Level() Level      { return Authenticated }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, env *app.Env, args []string, out, errOut io.Writer) int {
	return openDashboard(ctx, env, out, errOut)
}
