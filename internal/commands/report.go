package commands

import (
	"fmt"
	"io"

	"roletodo/internal/exitcode"
	"roletodo/internal/service"
)

// report prints err and returns the exit code for its kind.
func report(errOut io.Writer, err error) int {
	switch service.KindOf(err) {
	case service.KindValidation, service.KindNotFound:
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	case service.KindAuthentication:
		fmt.Fprintf(errOut, "error: auth error: %v (run: roletodo login)\n", err)
		return exitcode.AuthError
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}

// printOK prints the success marker unless quiet.
func printOK(out io.Writer, quiet bool) int {
	if !quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
