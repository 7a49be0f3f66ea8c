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
	Register(&DoneCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return []string{"check"} }
func (c *DoneCmd) Synopsis() string  { return "Mark a task completed" }
func (c *DoneCmd) Usage() string     { return "roletodo done [common flags] <ref>" }
func (c *DoneCmd) Level() Level      { return Authenticated }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, env *app.Env, args []string, out, errOut io.Writer) int {
	ref, code, ok := parseRef(args, errOut)
	if !ok {
		return code
	}
	task, err := resolveTask(ctx, env.Tasks, ref)
	if err != nil {
		return report(errOut, err)
	}
	if task.Completed {
		if !cfg.Quiet {
			fmt.Fprintln(out, "already completed")
		}
		return exitcode.Success
	}

	if err := env.Tasks.ToggleComplete(ctx, task.ID, true); err != nil {
		return report(errOut, err)
	}
	return printOK(out, cfg.Quiet)
}
