package commands

import (
	"context"
	"flag"
	"io"

	"roletodo/internal/app"
	"roletodo/internal/config"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string     { return "roletodo rm [common flags] <ref>" }
func (c *RmCmd) Level() Level      { return Authenticated }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, env *app.Env, args []string, out, errOut io.Writer) int {
	ref, code, ok := parseRef(args, errOut)
	if !ok {
		return code
	}
	task, err := resolveTask(ctx, env.Tasks, ref)
	if err != nil {
		return report(errOut, err)
	}
	if err := env.Tasks.Delete(ctx, task.ID); err != nil {
		return report(errOut, err)
	}
	return printOK(out, cfg.Quiet)
}
