package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"roletodo/internal/app"
	"roletodo/internal/auth"
	"roletodo/internal/config"
	"roletodo/internal/exitcode"
	"roletodo/internal/output"
)

func init() {
	Register(&DashboardCmd{})
}

// DashboardCmd runs the startup gate and renders the destination for the
// stored session. It is what `roletodo` with no arguments runs.
type DashboardCmd struct{}

func (c *DashboardCmd) Name() string      { return "dashboard" }
func (c *DashboardCmd) Aliases() []string { return []string{"home"} }
func (c *DashboardCmd) Synopsis() string  { return "Open the dashboard for your role" }
func (c *DashboardCmd) Usage() string     { return "roletodo [dashboard] [common flags]" }
func (c *DashboardCmd) Level() Level      { return Remote }

func (c *DashboardCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DashboardCmd) Run(ctx context.Context, cfg *config.Config, env *app.Env, args []string, out, errOut io.Writer) int {
	return openDashboard(ctx, env, out, errOut)
}

// openDashboard confirms the role with the server, lets the gate pick the
// destination and renders it.
func openDashboard(ctx context.Context, env *app.Env, out, errOut io.Writer) int {
	dest, err := env.Flow.Startup(ctx)
	if err != nil {
		return report(errOut, err)
	}
	if dest == auth.LoginView {
		fmt.Fprintln(errOut, "not logged in (run: roletodo login or roletodo signup)")
		return exitcode.AuthError
	}
	return renderDashboard(ctx, env, dest, out, errOut)
}

// renderDashboard fetches the task list and prints it under the header for dest.
func renderDashboard(ctx context.Context, env *app.Env, dest auth.Destination, out, errOut io.Writer) int {
	if err := env.Tasks.FetchAll(ctx); err != nil {
		return report(errOut, err)
	}

	p := output.NewPrinter(out)
	if dest == auth.AdminDashboard {
		p.Header("Admin dashboard")
	} else {
		p.Header("User dashboard")
	}

	tasks := env.Tasks.Tasks()
	if len(tasks) == 0 {
		p.Empty()
	}
	for _, task := range tasks {
		p.Task(task)
	}

	sum := env.Tasks.Summary()
	p.Summary(sum.Completed, sum.Total)
	if dest == auth.AdminDashboard {
		fmt.Fprintf(out, "%d pending\n", sum.Pending)
	}
	return exitcode.Success
}
