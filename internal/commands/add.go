package commands

import (
	"context"
	"flag"
	"io"
	"strings"

	"roletodo/internal/app"
	"roletodo/internal/config"
	"roletodo/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	desc string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string     { return "roletodo add [common flags] --desc <description> <title...>" }
func (c *AddCmd) Level() Level      { return Authenticated }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.desc, "desc", "", "")
	fs.StringVar(&c.desc, "d", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, env *app.Env, args []string, out, errOut io.Writer) int {
	draft := service.TaskDraft{
		Title:       strings.Join(args, " "),
		Description: c.desc,
	}
	if err := env.Tasks.Create(ctx, draft); err != nil {
		return report(errOut, err)
	}
	return printOK(out, cfg.Quiet)
}
