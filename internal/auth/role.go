package auth

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"roletodo/internal/service"
)

// RoleResolver asks the remote service which role the current session holds.
type RoleResolver struct {
	svc service.Service
	log *logrus.Entry

	// Retries is the number of extra attempts after an Unavailable failure.
	Retries int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
}

// NewRoleResolver creates a resolver with no retries.
func NewRoleResolver(svc service.Service, log *logrus.Logger) *RoleResolver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RoleResolver{svc: svc, log: log.WithField("component", "role")}
}

// ResolveRole returns the server's role for the current session.
// Authentication failures are returned immediately; anything else is
// classified Unavailable and retried. A role is never defaulted.
func (r *RoleResolver) ResolveRole(ctx context.Context) (service.Role, error) {
	var lastErr error
	for attempt := 0; attempt <= r.Retries; attempt++ {
		if attempt > 0 {
			r.log.WithField("attempt", attempt+1).Debug("retrying role lookup")
			select {
			case <-ctx.Done():
				return "", service.Wrap(service.KindUnavailable, "role", ctx.Err())
			case <-time.After(r.RetryDelay):
			}
		}

		role, err := r.svc.Role(ctx)
		if err == nil {
			return role, nil
		}
		if errors.Is(err, service.ErrUnauthenticated) {
			return "", err
		}
		if service.KindOf(err) != service.KindUnavailable {
			err = service.Wrap(service.KindUnavailable, "role", err)
		}
		lastErr = err
		r.log.WithError(err).Warn("role lookup failed")
	}
	return "", lastErr
}
