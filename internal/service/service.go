// Package service defines the backend-agnostic interface for the remote todo API.
package service

import "context"

// Service defines the operations offered by the remote todo service.
// All HTTP calls go through this interface.
// Stores and commands never import the HTTP client directly.
type Service interface {
	// Signup registers a new account. Returns the server's message.
	Signup(ctx context.Context, creds Credentials) (string, error)

	// Login authenticates and returns the server's message and token.
	Login(ctx context.Context, creds Credentials) (LoginResult, error)

	// Role returns the role held by the current session.
	Role(ctx context.Context) (Role, error)

	// CheckSession succeeds if the server still accepts the current session.
	CheckSession(ctx context.Context) error

	// ListTasks returns the caller's tasks in server order.
	ListTasks(ctx context.Context) ([]Task, error)

	// CreateTask creates a task. The server assigns ID and serial.
	CreateTask(ctx context.Context, draft TaskDraft) error

	// UpdateTask replaces a task's title and description.
	UpdateTask(ctx context.Context, id string, draft TaskDraft) error

	// CompleteTask marks a task as completed.
	CompleteTask(ctx context.Context, id string) error

	// UncheckTask marks a task as not completed.
	UncheckTask(ctx context.Context, id string) error

	// DeleteTask deletes a task.
	DeleteTask(ctx context.Context, id string) error
}
