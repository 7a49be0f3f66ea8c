// Package auth resolves roles and decides which view a caller may reach.
package auth

import (
	"roletodo/internal/service"
	"roletodo/internal/session"
)

// Destination is the view a caller is routed to.
type Destination int

const (
	LoginView Destination = iota
	UserDashboard
	AdminDashboard
)

func (d Destination) String() string {
	switch d {
	case UserDashboard:
		return "user dashboard"
	case AdminDashboard:
		return "admin dashboard"
	}
	return "login"
}

// Decide maps session validity and a confirmed role to a destination.
// A dashboard is never returned without both a session and a known role.
func Decide(sess *session.Session, role *service.Role) Destination {
	if sess == nil || role == nil {
		return LoginView
	}
	switch *role {
	case service.RoleUser:
		return UserDashboard
	case service.RoleAdmin:
		return AdminDashboard
	}
	return LoginView
}
