// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates invalid input: bad args, a missing task, a
	// validation failure.
	UserError = 1

	// AuthError indicates a missing or rejected session, or a config problem.
	AuthError = 2

	// BackendError indicates the remote service failed or was unreachable.
	BackendError = 3
)
