package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"roletodo/internal/exitcode"
	"roletodo/internal/service"
	"roletodo/internal/taskstore"
)

// TaskRef identifies a task by its serial number or its server id.
type TaskRef struct {
	Serial int    // 1-based serial, 0 if ID is set
	ID     string // set for "id:<id>" references
}

func (r TaskRef) String() string {
	if r.ID != "" {
		return "id:" + r.ID
	}
	return "#" + strconv.Itoa(r.Serial)
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses the task reference in args.
//
// Accepted forms:
//
//	3       serial number
//	#3      serial number
//	id:abc  server id
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}
	if len(args) > 1 {
		return TaskRef{}, fmt.Errorf("unexpected argument: %s", args[1])
	}
	raw := args[0]

	if id, found := strings.CutPrefix(raw, "id:"); found {
		if strings.TrimSpace(id) == "" {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", raw)
		}
		return TaskRef{ID: id}, nil
	}

	digits := strings.TrimPrefix(raw, "#")
	if !isAllDigits(digits) {
		return TaskRef{}, fmt.Errorf("invalid task reference: %s", raw)
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return TaskRef{}, fmt.Errorf("invalid task reference: %s", raw)
	}
	return TaskRef{Serial: n}, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// resolveTask loads the task list and finds ref in it.
func resolveTask(ctx context.Context, tasks *taskstore.Store, ref TaskRef) (service.Task, error) {
	if err := tasks.FetchAll(ctx); err != nil {
		return service.Task{}, err
	}
	var (
		task  service.Task
		found bool
	)
	if ref.ID != "" {
		task, found = tasks.Find(ref.ID)
	} else {
		task, found = tasks.FindBySerial(ref.Serial)
	}
	if !found {
		return service.Task{}, service.Errorf(service.KindNotFound, "task", "task not found: %s", ref)
	}
	return task, nil
}

// parseRef parses args and reports failures; ok is false when the caller
// should return code.
func parseRef(args []string, errOut io.Writer) (ref TaskRef, code int, ok bool) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return TaskRef{}, exitcode.UserError, false
	}
	return ref, exitcode.Success, true
}
