package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"roletodo/internal/service"
	"roletodo/internal/session"
)

// Flow wires the session store, the role resolver and the gate together
// at the two decision points: application start and login.
type Flow struct {
	svc      service.Service
	sessions *session.Store
	resolver *RoleResolver
	log      *logrus.Entry
}

// NewFlow creates a Flow.
func NewFlow(svc service.Service, sessions *session.Store, resolver *RoleResolver, log *logrus.Logger) *Flow {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Flow{
		svc:      svc,
		sessions: sessions,
		resolver: resolver,
		log:      log.WithField("component", "auth"),
	}
}

// Startup performs the silent redirect on load. Without a valid session the
// resolver is not called. A rejected session is cleared.
func (f *Flow) Startup(ctx context.Context) (Destination, error) {
	sess, err := f.sessions.LoadValid()
	if err != nil {
		return LoginView, service.Wrap(service.KindUnavailable, "startup", err)
	}
	if sess == nil {
		return LoginView, nil
	}
	return f.resolveAndDecide(ctx, sess)
}

// Login authenticates, persists the new session for session.DefaultTTL,
// re-resolves the role and decides the destination. The server's message
// is returned alongside.
func (f *Flow) Login(ctx context.Context, creds service.Credentials) (Destination, string, error) {
	if err := creds.ValidateLogin(); err != nil {
		return LoginView, "", err
	}

	res, err := f.svc.Login(ctx, creds)
	if err != nil {
		return LoginView, "", err
	}
	if err := f.sessions.Persist(res.Token, session.DefaultTTL); err != nil {
		return LoginView, res.Message, err
	}

	sess, err := f.sessions.LoadValid()
	if err != nil {
		return LoginView, res.Message, err
	}
	dest, err := f.resolveAndDecide(ctx, sess)
	return dest, res.Message, err
}

// Signup validates the credentials client-side, then registers. No request
// is sent when the password confirmation does not match.
func (f *Flow) Signup(ctx context.Context, creds service.Credentials) (string, error) {
	if err := creds.ValidateSignup(); err != nil {
		return "", err
	}
	return f.svc.Signup(ctx, creds)
}

// Logout clears the stored session.
func (f *Flow) Logout() error {
	return f.sessions.Clear()
}

// CheckSession asks the server whether the session is still accepted.
// A rejection clears the local session.
func (f *Flow) CheckSession(ctx context.Context) error {
	sess, err := f.sessions.LoadValid()
	if err != nil {
		return err
	}
	if sess == nil {
		return service.Errorf(service.KindAuthentication, "session", "not logged in")
	}
	if err := f.svc.CheckSession(ctx); err != nil {
		f.dropIfRejected(err)
		return err
	}
	return nil
}

func (f *Flow) resolveAndDecide(ctx context.Context, sess *session.Session) (Destination, error) {
	role, err := f.resolver.ResolveRole(ctx)
	if err != nil {
		f.dropIfRejected(err)
		return Decide(sess, nil), err
	}
	if err := f.sessions.CacheRole(role); err != nil {
		// the hint is advisory
		f.log.WithError(err).Warn("could not cache role")
	}
	dest := Decide(sess, &role)
	f.log.WithFields(logrus.Fields{"role": role, "destination": dest.String()}).Debug("gate decided")
	return dest, nil
}

// dropIfRejected clears the session when err says the server rejected it.
func (f *Flow) dropIfRejected(err error) {
	if !errors.Is(err, service.ErrUnauthenticated) {
		return
	}
	if clearErr := f.sessions.Clear(); clearErr != nil {
		f.log.WithError(fmt.Errorf("clear rejected session: %w", clearErr)).Warn("session not cleared")
		return
	}
	f.log.Info("session rejected by server, cleared")
}
