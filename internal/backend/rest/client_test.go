package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"roletodo/internal/service"
	"roletodo/internal/testutil"
)

// tokenBox hands out whatever token the test last stored.
type tokenBox struct {
	mu  sync.Mutex
	tok string
}

func (b *tokenBox) set(tok string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tok = tok
}

func (b *tokenBox) Token() (*oauth2.Token, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tok == "" {
		return nil, service.Errorf(service.KindAuthentication, "session", "not logged in")
	}
	return &oauth2.Token{AccessToken: b.tok, TokenType: "Bearer"}, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newClient(t *testing.T, baseURL string, tokens oauth2.TokenSource) (*Client, *Metrics) {
	t.Helper()
	metrics := NewMetrics(prometheus.NewRegistry())
	c, err := New(Options{BaseURL: baseURL, Log: quietLogger(), Metrics: metrics}, tokens)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, metrics
}

func loggedIn(t *testing.T, remote *testutil.FakeRemote) (*Client, *tokenBox, *Metrics) {
	t.Helper()
	remote.AddUser("ann@example.com", "ann", "secret", service.RoleAdmin)
	box := &tokenBox{}
	c, metrics := newClient(t, remote.URL(), box)
	res, err := c.Login(context.Background(), service.Credentials{Email: "ann@example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	box.set(res.Token)
	return c, box, metrics
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, base := range []string{"", "   ", "not a url", "/relative"} {
		if _, err := New(Options{BaseURL: base}, &tokenBox{}); err == nil {
			t.Errorf("expected error for base url %q", base)
		}
	}
}

func TestSignupAndLogin(t *testing.T) {
	remote := testutil.NewFakeRemote(t)
	c, _ := newClient(t, remote.URL(), &tokenBox{})
	ctx := context.Background()

	msg, err := c.Signup(ctx, service.Credentials{Email: "bo@example.com", Username: "bo", Password: "pw"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if msg != "user registered" {
		t.Errorf("expected signup message, got %q", msg)
	}

	_, err = c.Signup(ctx, service.Credentials{Email: "bo@example.com", Username: "bo", Password: "pw"})
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected validation error for duplicate signup, got %v", err)
	}
	if service.KindOf(err) != service.KindValidation {
		t.Errorf("expected validation kind, got %v", service.KindOf(err))
	}

	res, err := c.Login(ctx, service.Credentials{Email: "bo@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" {
		t.Error("expected a token")
	}
	if res.Message != "login successful" {
		t.Errorf("expected login message, got %q", res.Message)
	}
}

func TestLoginWrongPasswordIsAuthenticationError(t *testing.T) {
	remote := testutil.NewFakeRemote(t)
	remote.AddUser("ann@example.com", "ann", "secret", service.RoleUser)
	c, _ := newClient(t, remote.URL(), &tokenBox{})

	_, err := c.Login(context.Background(), service.Credentials{Email: "ann@example.com", Password: "nope"})
	if !errors.Is(err, service.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	var serr *service.Error
	if !errors.As(err, &serr) || serr.Message != "invalid credentials" {
		t.Errorf("expected server message to be kept, got %v", err)
	}
}

func TestLoginWithoutTokenIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()
	c, _ := newClient(t, srv.URL, &tokenBox{})

	_, err := c.Login(context.Background(), service.Credentials{Email: "a@b.c", Password: "x"})
	if !errors.Is(err, service.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestAuthenticatedCallsSendBearerAndRequestID(t *testing.T) {
	remote := testutil.NewFakeRemote(t)
	c, box, _ := loggedIn(t, remote)

	role, err := c.Role(context.Background())
	if err != nil {
		t.Fatalf("Role: %v", err)
	}
	if role != service.RoleAdmin {
		t.Errorf("expected Admin, got %q", role)
	}

	h := remote.LastHeader()
	if got, want := h.Get("Authorization"), "Bearer "+box.tok; got != want {
		t.Errorf("expected Authorization %q, got %q", want, got)
	}
	if h.Get("X-Request-ID") == "" {
		t.Error("expected an X-Request-ID header")
	}
}

func TestAuthenticatedCallWithoutSessionNeverLeavesClient(t *testing.T) {
	remote := testutil.NewFakeRemote(t)
	c, _ := newClient(t, remote.URL(), &tokenBox{})

	err := c.CheckSession(context.Background())
	if !errors.Is(err, service.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if n := len(remote.Requests()); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestRevokedSessionIsRejected(t *testing.T) {
	remote := testutil.NewFakeRemote(t)
	c, _, _ := loggedIn(t, remote)
	ctx := context.Background()

	if err := c.CheckSession(ctx); err != nil {
		t.Fatalf("CheckSession: %v", err)
	}
	remote.RevokeAll()
	if err := c.CheckSession(ctx); !errors.Is(err, service.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated after revoke, got %v", err)
	}
}

func TestTaskLifecycle(t *testing.T) {
	remote := testutil.NewFakeRemote(t)
	c, _, _ := loggedIn(t, remote)
	ctx := context.Background()

	if err := c.CreateTask(ctx, service.TaskDraft{Title: "Buy milk", Description: "2 litres"}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	tasks, err := c.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	task := tasks[0]
	if task.Title != "Buy milk" || task.Description != "2 litres" || task.Serial != 1 || task.Completed {
		t.Errorf("unexpected task %+v", task)
	}

	if err := c.CompleteTask(ctx, task.ID); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if err := c.UpdateTask(ctx, task.ID, service.TaskDraft{Title: "Buy oat milk", Description: "1 litre"}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	tasks, _ = c.ListTasks(ctx)
	if !tasks[0].Completed || tasks[0].Title != "Buy oat milk" {
		t.Errorf("unexpected task after update %+v", tasks[0])
	}

	if err := c.UncheckTask(ctx, task.ID); err != nil {
		t.Fatalf("UncheckTask: %v", err)
	}
	tasks, _ = c.ListTasks(ctx)
	if tasks[0].Completed {
		t.Error("expected task to be pending after uncheck")
	}

	if err := c.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	tasks, _ = c.ListTasks(ctx)
	if len(tasks) != 0 {
		t.Errorf("expected no tasks, got %d", len(tasks))
	}

	want := []string{
		"POST /login",
		"POST /create",
		"GET /todos",
		"POST /checked",
		"PUT /update",
		"GET /todos",
		"POST /uncheck",
		"GET /todos",
		"DELETE /delete",
		"GET /todos",
	}
	got := remote.Requests()
	if len(got) != len(want) {
		t.Fatalf("expected %d requests, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("request %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestMissingTaskIsNotFound(t *testing.T) {
	remote := testutil.NewFakeRemote(t)
	c, _, _ := loggedIn(t, remote)

	err := c.DeleteTask(context.Background(), "missing")
	if !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServerFailureIsUnavailable(t *testing.T) {
	remote := testutil.NewFakeRemote(t)
	c, _, metrics := loggedIn(t, remote)
	remote.Fail("/todos", http.StatusInternalServerError)

	_, err := c.ListTasks(context.Background())
	if !errors.Is(err, service.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	var serr *service.Error
	if !errors.As(err, &serr) || serr.Message != "injected failure" {
		t.Errorf("expected server message, got %v", err)
	}
	if got := promtest.ToFloat64(metrics.requests.WithLabelValues("list", "500")); got != 1 {
		t.Errorf("expected 1 failed list request counted, got %v", got)
	}

	remote.Fail("/todos", 0)
	if _, err := c.ListTasks(context.Background()); err != nil {
		t.Fatalf("ListTasks after clearing failure: %v", err)
	}
	if got := promtest.ToFloat64(metrics.requests.WithLabelValues("list", "200")); got != 1 {
		t.Errorf("expected 1 successful list request counted, got %v", got)
	}
}

func TestUnknownRoleIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"role":"Superuser"}`))
	}))
	defer srv.Close()
	c, _ := newClient(t, srv.URL, &tokenBox{tok: "t"})

	_, err := c.Role(context.Background())
	if !errors.Is(err, service.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestMalformedTaskListIsUnavailable(t *testing.T) {
	for name, body := range map[string]string{
		"not json":     `<html>`,
		"missing id":   `[{"title":"a"}]`,
		"duplicate id": `[{"key":"1","title":"a"},{"key":"1","title":"b"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()
			c, _ := newClient(t, srv.URL, &tokenBox{tok: "t"})

			if _, err := c.ListTasks(context.Background()); !errors.Is(err, service.ErrUnavailable) {
				t.Fatalf("expected unavailable, got %v", err)
			}
		})
	}
}

func TestDecodeTasksShapes(t *testing.T) {
	tasks, err := decodeTasks([]byte(`{"todos":[{"_id":"a","title":"One","body":"first"},{"_id":"b","title":"Two","body":"second","completed":true}]}`))
	if err != nil {
		t.Fatalf("decodeTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "a" || tasks[0].Description != "first" || tasks[0].Serial != 1 {
		t.Errorf("unexpected first task %+v", tasks[0])
	}
	if tasks[1].Serial != 2 || !tasks[1].Completed {
		t.Errorf("unexpected second task %+v", tasks[1])
	}
}

func TestRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Log: quietLogger()}, &tokenBox{tok: "t"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = c.CheckSession(context.Background())
	if !errors.Is(err, service.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	var serr *service.Error
	if !errors.As(err, &serr) || serr.Message != "request timed out" {
		t.Errorf("expected timeout message, got %v", err)
	}
}
