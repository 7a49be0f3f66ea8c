// Package rest implements the service.Service interface over the todo HTTP API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"roletodo/internal/service"
)

const (
	// DefaultTimeout bounds every API call.
	DefaultTimeout = 10 * time.Second

	// maxBody caps decoded response bodies.
	maxBody = 4 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Log     *logrus.Logger
	Metrics *Metrics

	// Transport is the underlying round tripper; nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// Client implements service.Service using the todo HTTP API.
type Client struct {
	base    *url.URL
	anon    *http.Client // signup and login
	authed  *http.Client // everything that needs the session
	timeout time.Duration
	log     *logrus.Entry
	metrics *Metrics
}

// New creates a client. tokens supplies the session token for
// authenticated calls; the session cookie set by the server is kept in a
// cookie jar shared by both transports.
func New(opts Options, tokens oauth2.TokenSource) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("base url not configured")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url: %q", opts.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Client{
		base: base,
		anon: &http.Client{Transport: transport, Jar: jar},
		authed: &http.Client{
			Transport: &oauth2.Transport{Source: tokens, Base: transport},
			Jar:       jar,
		},
		timeout: timeout,
		log:     log.WithField("component", "remote"),
		metrics: metrics,
	}, nil
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, creds service.Credentials) (string, error) {
	var resp messageResponse
	err := c.do(ctx, c.anon, "signup", http.MethodPost, "/signup", nil, signupRequest{
		Email:    creds.Email,
		Username: creds.Username,
		Password: creds.Password,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.text(), nil
}

// Login authenticates and returns the session token.
func (c *Client) Login(ctx context.Context, creds service.Credentials) (service.LoginResult, error) {
	var resp loginResponse
	err := c.do(ctx, c.anon, "login", http.MethodPost, "/login", nil, loginRequest{
		Email:    creds.Email,
		Password: creds.Password,
	}, &resp)
	if err != nil {
		return service.LoginResult{}, err
	}
	if err := resp.validate(); err != nil {
		return service.LoginResult{}, service.Wrap(service.KindUnavailable, "login", err)
	}
	return service.LoginResult{Message: resp.Message, Token: resp.Token}, nil
}

// Role returns the role of the current session.
func (c *Client) Role(ctx context.Context) (service.Role, error) {
	var resp roleResponse
	if err := c.do(ctx, c.authed, "role", http.MethodGet, "/role", nil, nil, &resp); err != nil {
		return "", err
	}
	role, err := service.ParseRole(resp.Role)
	if err != nil {
		// a role the client does not know is a server fault, not user input
		return "", service.Wrap(service.KindUnavailable, "role", err)
	}
	return role, nil
}

// CheckSession probes /loggedin.
func (c *Client) CheckSession(ctx context.Context) error {
	return c.do(ctx, c.authed, "loggedin", http.MethodGet, "/loggedin", nil, nil, nil)
}

// ListTasks returns the caller's tasks.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	var raw json.RawMessage
	if err := c.do(ctx, c.authed, "list", http.MethodGet, "/todos", nil, nil, &raw); err != nil {
		return nil, err
	}
	tasks, err := decodeTasks(raw)
	if err != nil {
		return nil, service.Wrap(service.KindUnavailable, "list", err)
	}
	return tasks, nil
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, draft service.TaskDraft) error {
	return c.do(ctx, c.authed, "create", http.MethodPost, "/create", nil,
		taskRequest{Title: draft.Title, Body: draft.Description}, nil)
}

// UpdateTask replaces a task's title and description.
func (c *Client) UpdateTask(ctx context.Context, id string, draft service.TaskDraft) error {
	return c.do(ctx, c.authed, "update", http.MethodPut, "/update", idQuery(id),
		taskRequest{Title: draft.Title, Body: draft.Description}, nil)
}

// CompleteTask marks a task as completed.
func (c *Client) CompleteTask(ctx context.Context, id string) error {
	return c.do(ctx, c.authed, "checked", http.MethodPost, "/checked", idQuery(id), struct{}{}, nil)
}

// UncheckTask marks a task as not completed.
func (c *Client) UncheckTask(ctx context.Context, id string) error {
	return c.do(ctx, c.authed, "uncheck", http.MethodPost, "/uncheck", idQuery(id), struct{}{}, nil)
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, c.authed, "delete", http.MethodDelete, "/delete", idQuery(id), nil, nil)
}

func idQuery(id string) url.Values {
	return url.Values{"id": []string{id}}
}

// do sends one request and decodes a 2xx JSON body into out (if non-nil).
func (c *Client) do(ctx context.Context, hc *http.Client, op, method, path string, query url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return service.Wrap(service.KindValidation, op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return service.Wrap(service.KindUnavailable, op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.log.WithFields(logrus.Fields{"op": op, "request_id": requestID})
	log.Debugf("%s %s", method, u.Path)

	start := time.Now()
	res, err := hc.Do(req)
	if err != nil {
		c.metrics.observe(op, "error", start)
		err = wrapTransportError(op, err)
		log.WithError(err).Debug("request failed")
		return err
	}
	defer res.Body.Close()
	c.metrics.observe(op, strconv.Itoa(res.StatusCode), start)
	log.WithFields(logrus.Fields{
		"status":      res.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("response received")

	if err := googleapi.CheckResponse(res); err != nil {
		return wrapError(op, err)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxBody))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(res.Body, maxBody)).Decode(out); err != nil {
		return service.Wrap(service.KindUnavailable, op, fmt.Errorf("malformed response: %w", err))
	}
	return nil
}

// wrapTransportError classifies errors that happened before a response arrived.
func wrapTransportError(op string, err error) error {
	var serr *service.Error
	if errors.As(err, &serr) {
		// raised by the session token source
		return serr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return service.Errorf(service.KindUnavailable, op, "request timed out")
	}
	if errors.Is(err, context.Canceled) {
		return service.Wrap(service.KindUnavailable, op, context.Canceled)
	}
	return service.Wrap(service.KindUnavailable, op, err)
}

// wrapError maps a non-2xx response to an error kind, keeping the server's message.
func wrapError(op string, err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return service.Wrap(service.KindUnavailable, op, err)
	}

	msg := serverMessage(gerr)
	var kind service.Kind
	switch gerr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = service.KindAuthentication
	case http.StatusNotFound:
		kind = service.KindNotFound
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		kind = service.KindValidation
	default:
		kind = service.KindUnavailable
	}
	return &service.Error{Kind: kind, Op: op, Message: msg, Err: err}
}

func serverMessage(gerr *googleapi.Error) string {
	if gerr.Message != "" {
		return gerr.Message
	}
	var body messageResponse
	if err := json.Unmarshal([]byte(gerr.Body), &body); err == nil && body.text() != "" {
		return body.text()
	}
	return strings.ToLower(http.StatusText(gerr.Code))
}
