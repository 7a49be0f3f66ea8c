package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"roletodo/internal/app"
	"roletodo/internal/config"
	"roletodo/internal/exitcode"
	"roletodo/internal/taskstore"
)

func init() {
	Register(&EditCmd{})
}

// optionalString is a flag value that remembers whether it was given, so an
// explicit empty value can be told apart from an absent flag.
type optionalString struct {
	value string
	set   bool
}

func (o *optionalString) String() string { return o.value }

func (o *optionalString) Set(s string) error {
	o.value, o.set = s, true
	return nil
}

// EditCmd changes a task's title or description, and is the only way to
// mark a completed task incomplete again.
type EditCmd struct {
	title      optionalString
	desc       optionalString
	incomplete bool
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Edit a task" }
func (c *EditCmd) Usage() string {
	return "roletodo edit [common flags] [--title <t>] [--desc <d>] [--incomplete] <ref>"
}
func (c *EditCmd) Level() Level { return Authenticated }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.title = optionalString{}
	c.desc = optionalString{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.desc, "desc", "")
	fs.Var(&c.desc, "d", "")
	fs.BoolVar(&c.incomplete, "incomplete", false, "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, env *app.Env, args []string, out, errOut io.Writer) int {
	ref, code, ok := parseRef(args, errOut)
	if !ok {
		return code
	}
	if !c.title.set && !c.desc.set && !c.incomplete {
		fmt.Fprintln(errOut, "error: nothing to change")
		return exitcode.UserError
	}

	task, err := resolveTask(ctx, env.Tasks, ref)
	if err != nil {
		return report(errOut, err)
	}

	edit := taskstore.TaskEdit{
		Title:          task.Title,
		Description:    task.Description,
		MarkIncomplete: c.incomplete,
	}
	if c.title.set {
		edit.Title = c.title.value
	}
	if c.desc.set {
		edit.Description = c.desc.value
	}

	if err := env.Tasks.Edit(ctx, task.ID, edit); err != nil {
		return report(errOut, err)
	}
	return printOK(out, cfg.Quiet)
}
