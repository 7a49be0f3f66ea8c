package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"roletodo/internal/service"
)

const fakeSessionName = "todo-session"

type fakeUser struct {
	username string
	hash     []byte
	role     service.Role
}

type fakeTodo struct {
	id        string
	title     string
	body      string
	completed bool
}

// FakeRemote is an HTTP fake of the remote todo service. It issues a JWT
// on login and also sets a cookie session; either authenticates later calls.
type FakeRemote struct {
	Server *httptest.Server

	mu       sync.Mutex
	users    map[string]*fakeUser
	todos    map[string][]fakeTodo
	nextID   int
	secret   []byte
	cookies  *sessions.CookieStore
	failures map[string]int
	requests []string
	headers  []http.Header
}

// NewFakeRemote starts a FakeRemote that is closed when the test ends.
func NewFakeRemote(t testing.TB) *FakeRemote {
	t.Helper()
	f := &FakeRemote{
		users:    make(map[string]*fakeUser),
		todos:    make(map[string][]fakeTodo),
		failures: make(map[string]int),
	}
	f.rotateKeys()

	r := mux.NewRouter()
	r.Use(f.recordAndInject)
	r.HandleFunc("/signup", f.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/login", f.handleLogin).Methods(http.MethodPost)

	api := r.NewRoute().Subrouter()
	api.Use(f.requireAuth)
	api.HandleFunc("/role", f.handleRole).Methods(http.MethodGet)
	api.HandleFunc("/loggedin", f.handleLoggedIn).Methods(http.MethodGet)
	api.HandleFunc("/todos", f.handleList).Methods(http.MethodGet)
	api.HandleFunc("/create", f.handleCreate).Methods(http.MethodPost)
	api.HandleFunc("/update", f.handleUpdate).Methods(http.MethodPut)
	api.HandleFunc("/checked", f.handleSetCompleted(true)).Methods(http.MethodPost)
	api.HandleFunc("/uncheck", f.handleSetCompleted(false)).Methods(http.MethodPost)
	api.HandleFunc("/delete", f.handleDelete).Methods(http.MethodDelete)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake.
func (f *FakeRemote) URL() string { return f.Server.URL }

// AddUser registers an account directly.
func (f *FakeRemote) AddUser(email, username, password string, role service.Role) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[email] = &fakeUser{username: username, hash: hash, role: role}
}

// AddTodo stores a todo for email and returns its id.
func (f *FakeRemote) AddTodo(email, title, body string, completed bool) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addTodoLocked(email, title, body, completed)
}

func (f *FakeRemote) addTodoLocked(email, title, body string, completed bool) string {
	f.nextID++
	id := fmt.Sprintf("todo-%d", f.nextID)
	f.todos[email] = append(f.todos[email], fakeTodo{id: id, title: title, body: body, completed: completed})
	return id
}

// Fail makes every request to path answer with status until cleared with 0.
func (f *FakeRemote) Fail(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.failures, path)
		return
	}
	f.failures[path] = status
}

// RevokeAll invalidates every issued token and cookie.
func (f *FakeRemote) RevokeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rotateKeys()
}

// Requests returns "METHOD /path" for every request received.
func (f *FakeRemote) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// LastHeader returns the headers of the most recent request.
func (f *FakeRemote) LastHeader() http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.headers) == 0 {
		return nil
	}
	return f.headers[len(f.headers)-1]
}

func (f *FakeRemote) rotateKeys() {
	f.secret = []byte(fmt.Sprintf("secret-%d", time.Now().UnixNano()))
	f.cookies = sessions.NewCookieStore(append([]byte("cookie-"), f.secret...))
}

func (f *FakeRemote) recordAndInject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		f.headers = append(f.headers, r.Header.Clone())
		status := f.failures[r.URL.Path]
		f.mu.Unlock()

		if status != 0 {
			writeJSON(w, status, map[string]string{"error": "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeRemote) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, ok := f.authenticate(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
			return
		}
		r.Header.Set("X-Fake-Email", email)
		next.ServeHTTP(w, r)
	})
}

func (f *FakeRemote) authenticate(r *http.Request) (string, bool) {
	f.mu.Lock()
	secret := f.secret
	cookies := f.cookies
	f.mu.Unlock()

	if h := r.Header.Get("Authorization"); h != "" {
		raw, found := strings.CutPrefix(h, "Bearer ")
		if !found {
			return "", false
		}
		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return "", false
		}
		return claims.Subject, f.knownUser(claims.Subject)
	}

	sess, err := cookies.Get(r, fakeSessionName)
	if err != nil {
		return "", false
	}
	email, _ := sess.Values["email"].(string)
	return email, email != "" && f.knownUser(email)
}

func (f *FakeRemote) knownUser(email string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[email]
	return ok
}

func (f *FakeRemote) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" || req.Username == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "all fields are required"})
		return
	}
	f.mu.Lock()
	_, exists := f.users[req.Email]
	f.mu.Unlock()
	if exists {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "user already exists"})
		return
	}
	f.AddUser(req.Email, req.Username, req.Password, service.RoleUser)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "user registered"})
}

func (f *FakeRemote) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	f.mu.Lock()
	user, ok := f.users[req.Email]
	secret := f.secret
	cookies := f.cookies
	f.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(user.hash, []byte(req.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
		return
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   req.Email,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(secret)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	sess, _ := cookies.Get(r, fakeSessionName)
	sess.Values["email"] = req.Email
	if err := sess.Save(r, w); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "login successful", "token": token})
}

func (f *FakeRemote) handleRole(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	user := f.users[r.Header.Get("X-Fake-Email")]
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"role": string(user.role)})
}

func (f *FakeRemote) handleLoggedIn(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged in"})
}

func (f *FakeRemote) handleList(w http.ResponseWriter, r *http.Request) {
	type row struct {
		Key       string `json:"key"`
		Serial    int    `json:"serial"`
		Title     string `json:"title"`
		Desc      string `json:"desc"`
		Completed bool   `json:"completed"`
	}
	f.mu.Lock()
	todos := f.todos[r.Header.Get("X-Fake-Email")]
	rows := make([]row, 0, len(todos))
	for i, t := range todos {
		rows = append(rows, row{Key: t.id, Serial: i + 1, Title: t.title, Desc: t.body, Completed: t.completed})
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, rows)
}

type todoBody struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (f *FakeRemote) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req todoBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" || req.Body == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title and body are required"})
		return
	}
	f.mu.Lock()
	f.addTodoLocked(r.Header.Get("X-Fake-Email"), req.Title, req.Body, false)
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{"message": "todo created"})
}

func (f *FakeRemote) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req todoBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	f.withTodo(w, r, func(t *fakeTodo) {
		t.title = req.Title
		t.body = req.Body
	})
}

func (f *FakeRemote) handleSetCompleted(v bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.withTodo(w, r, func(t *fakeTodo) { t.completed = v })
	}
}

func (f *FakeRemote) handleDelete(w http.ResponseWriter, r *http.Request) {
	email := r.Header.Get("X-Fake-Email")
	id := r.URL.Query().Get("id")
	f.mu.Lock()
	defer f.mu.Unlock()
	todos := f.todos[email]
	for i := range todos {
		if todos[i].id == id {
			f.todos[email] = append(todos[:i], todos[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "todo deleted"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "todo not found"})
}

func (f *FakeRemote) withTodo(w http.ResponseWriter, r *http.Request, fn func(*fakeTodo)) {
	email := r.Header.Get("X-Fake-Email")
	id := r.URL.Query().Get("id")
	f.mu.Lock()
	defer f.mu.Unlock()
	todos := f.todos[email]
	for i := range todos {
		if todos[i].id == id {
			fn(&todos[i])
			writeJSON(w, http.StatusOK, map[string]string{"message": "todo updated"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "todo not found"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
