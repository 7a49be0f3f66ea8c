package rest

import (
	"encoding/json"
	"fmt"
	"strings"

	"roletodo/internal/service"
)

// Request bodies.

type signupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type taskRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Response bodies. Each is validated before its data leaves the package.

type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (r messageResponse) text() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Error
}

type loginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

func (r loginResponse) validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return fmt.Errorf("login response has no token")
	}
	return nil
}

type roleResponse struct {
	Role string `json:"role"`
}

// taskRecord is one row of the task list. Older servers send the document
// id as "_id" and the description as "body".
type taskRecord struct {
	Key       string `json:"key"`
	ID        string `json:"_id"`
	Serial    int    `json:"serial"`
	Title     string `json:"title"`
	Desc      string `json:"desc"`
	Body      string `json:"body"`
	Completed bool   `json:"completed"`
}

func (r taskRecord) toTask() service.Task {
	id := r.Key
	if id == "" {
		id = r.ID
	}
	desc := r.Desc
	if desc == "" {
		desc = r.Body
	}
	return service.Task{
		ID:          id,
		Serial:      r.Serial,
		Title:       r.Title,
		Description: desc,
		Completed:   r.Completed,
	}
}

// decodeTasks parses a task list, accepting either a bare array or an
// object with a "todos" array, and checks that ids are present and unique.
func decodeTasks(data []byte) ([]service.Task, error) {
	var records []taskRecord
	if err := json.Unmarshal(data, &records); err != nil {
		var wrapped struct {
			Todos []taskRecord `json:"todos"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil || wrapped.Todos == nil {
			return nil, fmt.Errorf("decode task list: %w", err)
		}
		records = wrapped.Todos
	}

	tasks := make([]service.Task, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, rec := range records {
		task := rec.toTask()
		if task.ID == "" {
			return nil, fmt.Errorf("task %d has no id", i)
		}
		if seen[task.ID] {
			return nil, fmt.Errorf("duplicate task id %s", task.ID)
		}
		seen[task.ID] = true
		if task.Serial == 0 {
			task.Serial = i + 1
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
