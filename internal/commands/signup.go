package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"roletodo/internal/app"
	"roletodo/internal/config"
	"roletodo/internal/exitcode"
	"roletodo/internal/service"
)

func init() {
	Register(&SignupCmd{})
}

// SignupCmd registers an account. The password is asked twice and compared
// before anything is sent.
type SignupCmd struct {
	email    string
	username string
}

func (c *SignupCmd) Name() string      { return "signup" }
func (c *SignupCmd) Aliases() []string { return []string{"register"} }
func (c *SignupCmd) Synopsis() string  { return "Create an account" }
func (c *SignupCmd) Usage() string {
	return "roletodo signup [common flags] [--email <email>] [--username <name>]"
}
func (c *SignupCmd) Level() Level { return Remote }

func (c *SignupCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.username, "username", "", "")
}

func (c *SignupCmd) Run(ctx context.Context, cfg *config.Config, env *app.Env, args []string, out, errOut io.Writer) int {
	creds := service.Credentials{Email: c.email, Username: c.username}
	var err error
	if creds.Email == "" {
		if creds.Email, err = ask(env.Prompt.Line, "Email: ", "email"); err != nil {
			return report(errOut, err)
		}
	}
	if creds.Username == "" {
		if creds.Username, err = ask(env.Prompt.Line, "Username: ", "username"); err != nil {
			return report(errOut, err)
		}
	}
	if creds.Password, err = ask(env.Prompt.Password, "Password: ", "password"); err != nil {
		return report(errOut, err)
	}
	if creds.ConfirmPassword, err = ask(env.Prompt.Password, "Confirm password: ", "password confirmation"); err != nil {
		return report(errOut, err)
	}

	msg, err := env.Flow.Signup(ctx, creds)
	if err != nil {
		return report(errOut, err)
	}
	if !cfg.Quiet {
		if msg != "" {
			fmt.Fprintln(out, msg)
		}
		fmt.Fprintln(out, "account created (run: roletodo login)")
	}
	return exitcode.Success
}
