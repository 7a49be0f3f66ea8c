// Package session owns the authentication token and its locally computed expiry.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"roletodo/internal/clock"
	"roletodo/internal/service"
	"roletodo/internal/storage"
)

const (
	// Key is the storage key of the session record.
	Key = "Todo"

	// RoleKey is the storage key of the advisory role hint.
	RoleKey = "role"

	// DefaultTTL is the lifetime given to a fresh login.
	DefaultTTL = time.Hour
)

// Session pairs an opaque token with its expiry.
type Session struct {
	Token  string
	Expiry time.Time
}

// ValidAt reports whether the session has not expired at now.
func (s Session) ValidAt(now time.Time) bool {
	return s.Expiry.After(now)
}

// record is the persisted form: the token under "value", expiry in unix milliseconds.
type record struct {
	Value  string `json:"value"`
	Expiry int64  `json:"expiry"`
}

// Store persists, reads and clears the session record.
// The token is never inspected; only the expiry gates validity.
type Store struct {
	mu    sync.Mutex
	kv    storage.KV
	clock clock.Clock
	log   *logrus.Entry
}

// NewStore creates a Store over kv. A nil clock means clock.Real.
func NewStore(kv storage.KV, clk clock.Clock, log *logrus.Logger) *Store {
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		kv:    kv,
		clock: clk,
		log:   log.WithField("component", "session"),
	}
}

// Persist writes {token, now+ttl} and drops the role hint left by any
// previous session. The expiry is stored in milliseconds, rounded up, so a
// session is never reported expired before now+ttl. Storage failures are
// returned.
func (s *Store) Persist(token string, ttl time.Duration) error {
	if token == "" {
		return service.Errorf(service.KindValidation, "session", "empty token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry := s.clock.Now().Add(ttl)
	data, err := json.Marshal(record{Value: token, Expiry: ceilMilli(expiry)})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.Set(Key, data); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	if err := s.kv.Delete(RoleKey); err != nil {
		return fmt.Errorf("drop stale role: %w", err)
	}
	s.log.WithField("expiry", expiry.Format(time.RFC3339)).Debug("session persisted")
	return nil
}

func ceilMilli(t time.Time) int64 {
	ms := t.UnixMilli()
	if t.After(time.UnixMilli(ms)) {
		ms++
	}
	return ms
}

// LoadValid returns the stored session if it exists and has not expired.
// An expired record is reported as absent but left in storage.
func (s *Store) LoadValid() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadValid()
}

func (s *Store) loadValid() (*Session, error) {
	data, err := s.kv.Get(Key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil || rec.Value == "" {
		s.log.Warn("ignoring unreadable session record")
		return nil, nil
	}

	sess := &Session{Token: rec.Value, Expiry: time.UnixMilli(rec.Expiry)}
	if !sess.ValidAt(s.clock.Now()) {
		s.log.WithField("expiry", sess.Expiry.Format(time.RFC3339)).Debug("session expired")
		return nil, nil
	}
	return sess, nil
}

// Clear deletes the session record and the role hint.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(Key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if err := s.kv.Delete(RoleKey); err != nil {
		return fmt.Errorf("clear role: %w", err)
	}
	s.log.Debug("session cleared")
	return nil
}

// CacheRole stores the advisory role hint.
func (s *Store) CacheRole(role service.Role) error {
	data, err := json.Marshal(string(role))
	if err != nil {
		return err
	}
	if err := s.kv.Set(RoleKey, data); err != nil {
		return fmt.Errorf("cache role: %w", err)
	}
	return nil
}

// CachedRole returns the advisory role hint. It is never a substitute for
// asking the server.
func (s *Store) CachedRole() (service.Role, bool) {
	data, err := s.kv.Get(RoleKey)
	if err != nil {
		return "", false
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", false
	}
	role, err := service.ParseRole(raw)
	if err != nil {
		return "", false
	}
	return role, true
}

// TokenSource adapts the store for oauth2.Transport. Each request re-reads
// the record, so a cleared or expired session stops authorising requests.
func (s *Store) TokenSource() oauth2.TokenSource {
	return tokenSource{s}
}

type tokenSource struct {
	s *Store
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	sess, err := ts.s.LoadValid()
	if err != nil {
		return nil, service.Wrap(service.KindUnavailable, "session", err)
	}
	if sess == nil {
		return nil, service.Errorf(service.KindAuthentication, "session", "not logged in")
	}
	return &oauth2.Token{
		AccessToken: sess.Token,
		TokenType:   "Bearer",
		Expiry:      sess.Expiry,
	}, nil
}
