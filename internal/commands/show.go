package commands

import (
	"context"
	"flag"
	"io"

	"roletodo/internal/app"
	"roletodo/internal/config"
	"roletodo/internal/exitcode"
	"roletodo/internal/output"
)

func init() {
	Register(&ShowCmd{})
}

// ShowCmd prints one task with its full description.
type ShowCmd struct{}

func (c *ShowCmd) Name() string      { return "show" }
func (c *ShowCmd) Aliases() []string { return nil }
func (c *ShowCmd) Synopsis() string  { return "Show a task with its full description" }
func (c *ShowCmd) Usage() string     { return "roletodo show [common flags] <ref>" }
func (c *ShowCmd) Level() Level      { return Authenticated }

func (c *ShowCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ShowCmd) Run(ctx context.Context, cfg *config.Config, env *app.Env, args []string, out, errOut io.Writer) int {
	ref, code, ok := parseRef(args, errOut)
	if !ok {
		return code
	}
	task, err := resolveTask(ctx, env.Tasks, ref)
	if err != nil {
		return report(errOut, err)
	}
	output.NewPrinter(out).TaskDetail(task)
	return exitcode.Success
}
