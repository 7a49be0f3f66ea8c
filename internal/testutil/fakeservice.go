// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"roletodo/internal/service"
)

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu     sync.Mutex
	tasks  []service.Task
	nextID int
	calls  map[string]int

	// Account returned by Login and Role.
	Token    string
	UserRole service.Role

	// Error injection for testing
	SignupErr       error
	LoginErr        error
	RoleErr         error
	CheckSessionErr error
	ListTasksErr    error
	CreateTaskErr   error
	UpdateTaskErr   error
	CompleteTaskErr error
	UncheckTaskErr  error
	DeleteTaskErr   error

	// Hooks run while a mutation is in flight, before the error is returned.
	OnComplete func(id string)
	OnDelete   func(id string)
}

// NewFakeService creates a FakeService holding a User account.
func NewFakeService() *FakeService {
	return &FakeService{
		Token:    "fake-token",
		UserRole: service.RoleUser,
		calls:    make(map[string]int),
	}
}

// AddTask appends a task with the next serial and returns its ID.
func (f *FakeService) AddTask(title, desc string, completed bool) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addLocked(title, desc, completed)
}

func (f *FakeService) addLocked(title, desc string, completed bool) string {
	f.nextID++
	id := fmt.Sprintf("t%d", f.nextID)
	f.tasks = append(f.tasks, service.Task{
		ID:          id,
		Serial:      len(f.tasks) + 1,
		Title:       title,
		Description: desc,
		Completed:   completed,
	})
	return id
}

// Tasks returns a copy of the server-side list.
func (f *FakeService) Tasks() []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// Calls returns how many times method was invoked.
func (f *FakeService) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// TotalCalls returns the number of invocations across all methods.
func (f *FakeService) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *FakeService) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
}

func (f *FakeService) find(id string) int {
	for i, t := range f.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func notFound(id string) error {
	return service.Errorf(service.KindNotFound, "task", "no task %s", id)
}

// Signup implements service.Service.
func (f *FakeService) Signup(ctx context.Context, creds service.Credentials) (string, error) {
	f.record("Signup")
	if f.SignupErr != nil {
		return "", f.SignupErr
	}
	return "user registered", nil
}

// Login implements service.Service.
func (f *FakeService) Login(ctx context.Context, creds service.Credentials) (service.LoginResult, error) {
	f.record("Login")
	if f.LoginErr != nil {
		return service.LoginResult{}, f.LoginErr
	}
	return service.LoginResult{Message: "login successful", Token: f.Token}, nil
}

// Role implements service.Service.
func (f *FakeService) Role(ctx context.Context) (service.Role, error) {
	f.record("Role")
	if f.RoleErr != nil {
		return "", f.RoleErr
	}
	return f.UserRole, nil
}

// CheckSession implements service.Service.
func (f *FakeService) CheckSession(ctx context.Context) error {
	f.record("CheckSession")
	return f.CheckSessionErr
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context) ([]service.Task, error) {
	f.record("ListTasks")
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	return f.Tasks(), nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, draft service.TaskDraft) error {
	f.record("CreateTask")
	if f.CreateTaskErr != nil {
		return f.CreateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addLocked(draft.Title, draft.Description, false)
	return nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, id string, draft service.TaskDraft) error {
	f.record("UpdateTask")
	if f.UpdateTaskErr != nil {
		return f.UpdateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(id)
	if i < 0 {
		return notFound(id)
	}
	f.tasks[i].Title = draft.Title
	f.tasks[i].Description = draft.Description
	return nil
}

// CompleteTask implements service.Service.
func (f *FakeService) CompleteTask(ctx context.Context, id string) error {
	f.record("CompleteTask")
	if f.OnComplete != nil {
		f.OnComplete(id)
	}
	if f.CompleteTaskErr != nil {
		return f.CompleteTaskErr
	}
	return f.setCompleted(id, true)
}

// UncheckTask implements service.Service.
func (f *FakeService) UncheckTask(ctx context.Context, id string) error {
	f.record("UncheckTask")
	if f.UncheckTaskErr != nil {
		return f.UncheckTaskErr
	}
	return f.setCompleted(id, false)
}

func (f *FakeService) setCompleted(id string, v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(id)
	if i < 0 {
		return notFound(id)
	}
	f.tasks[i].Completed = v
	return nil
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id string) error {
	f.record("DeleteTask")
	if f.OnDelete != nil {
		f.OnDelete(id)
	}
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(id)
	if i < 0 {
		return notFound(id)
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	for j := range f.tasks {
		f.tasks[j].Serial = j + 1
	}
	return nil
}
