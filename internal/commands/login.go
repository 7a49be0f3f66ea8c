package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"roletodo/internal/app"
	"roletodo/internal/auth"
	"roletodo/internal/config"
	"roletodo/internal/exitcode"
	"roletodo/internal/prompt"
	"roletodo/internal/service"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd authenticates, stores the session and opens the dashboard the
// server's role selects.
type LoginCmd struct {
	email string
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Log in and open your dashboard" }
func (c *LoginCmd) Usage() string     { return "roletodo login [common flags] [--email <email>]" }
func (c *LoginCmd) Level() Level      { return Remote }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, env *app.Env, args []string, out, errOut io.Writer) int {
	creds := service.Credentials{Email: c.email}
	var err error
	if creds.Email == "" {
		if creds.Email, err = ask(env.Prompt.Line, "Email: ", "email"); err != nil {
			return report(errOut, err)
		}
	}
	if creds.Password, err = ask(env.Prompt.Password, "Password: ", "password"); err != nil {
		return report(errOut, err)
	}

	dest, msg, err := env.Flow.Login(ctx, creds)
	if err != nil {
		return report(errOut, err)
	}
	if dest == auth.LoginView {
		fmt.Fprintln(errOut, "error: login did not grant access to a dashboard")
		return exitcode.AuthError
	}
	if cfg.Quiet {
		return exitcode.Success
	}
	if msg != "" {
		fmt.Fprintln(out, msg)
	}
	return renderDashboard(ctx, env, dest, out, errOut)
}

// ask reads one answer. Running out of input is a validation error naming field.
func ask(read func(string) (string, error), label, field string) (string, error) {
	v, err := read(label)
	if errors.Is(err, prompt.ErrNoInput) {
		return "", service.Errorf(service.KindValidation, "prompt", "%s required", field)
	}
	if err != nil {
		return "", service.Wrap(service.KindValidation, "prompt", err)
	}
	return v, nil
}
