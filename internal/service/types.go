package service

import (
	"fmt"
	"strings"
)

// Role is the server-assigned capability class of a session.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// ParseRole converts a wire value to a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	}
	return "", Errorf(KindValidation, "role", "unknown role %q", s)
}

// Task represents a single task item.
type Task struct {
	ID          string
	Serial      int // display order, assigned by the server
	Title       string
	Description string
	Completed   bool
}

// TaskDraft holds the user-editable fields of a task.
type TaskDraft struct {
	Title       string
	Description string
}

// Validate requires a non-blank title and description.
func (d TaskDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return Errorf(KindValidation, "task", "title required")
	}
	if strings.TrimSpace(d.Description) == "" {
		return Errorf(KindValidation, "task", "description required")
	}
	return nil
}

// Credentials are held only for the duration of a signup or login attempt.
type Credentials struct {
	Email           string
	Username        string // signup only
	Password        string
	ConfirmPassword string // signup only
}

// ValidateLogin checks the fields a login request needs.
func (c Credentials) ValidateLogin() error {
	if strings.TrimSpace(c.Email) == "" {
		return Errorf(KindValidation, "login", "email required")
	}
	if c.Password == "" {
		return Errorf(KindValidation, "login", "password required")
	}
	return nil
}

// ValidateSignup checks the signup fields, including the password confirmation.
func (c Credentials) ValidateSignup() error {
	if strings.TrimSpace(c.Email) == "" {
		return Errorf(KindValidation, "signup", "email required")
	}
	if strings.TrimSpace(c.Username) == "" {
		return Errorf(KindValidation, "signup", "username required")
	}
	if c.Password == "" {
		return Errorf(KindValidation, "signup", "password required")
	}
	if c.Password != c.ConfirmPassword {
		return Errorf(KindValidation, "signup", "passwords do not match")
	}
	return nil
}

// LoginResult is the decoded response of a successful login.
type LoginResult struct {
	Message string
	Token   string
}

func (r LoginResult) String() string {
	return fmt.Sprintf("LoginResult{Message: %q}", r.Message)
}
