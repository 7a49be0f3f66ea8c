// Package taskstore holds the local task list and keeps it consistent with
// the remote service under optimistic mutation.
package taskstore

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"roletodo/internal/service"
)

// Op names a store operation in error callbacks and metrics.
type Op string

const (
	OpFetch  Op = "fetch"
	OpToggle Op = "toggle"
	OpEdit   Op = "edit"
	OpCreate Op = "create"
	OpDelete Op = "delete"
)

var (
	// ErrIncompleteViaEdit is returned by ToggleComplete(id, false).
	// A task goes back to incomplete only through Edit with MarkIncomplete.
	ErrIncompleteViaEdit = &service.Error{
		Kind: service.KindValidation,
		Op:   string(OpToggle),
		Err:  errors.New("tasks can only be marked incomplete through edit"),
	}

	// ErrMutationInFlight is returned when a mutation on the same task is
	// still waiting for the server.
	ErrMutationInFlight = &service.Error{
		Kind: service.KindValidation,
		Err:  errors.New("another change to this task is in progress"),
	}
)

// Snapshot is the state delivered to subscribers.
type Snapshot struct {
	Tasks   []service.Task
	Loading bool
}

// Summary counts tasks by completion.
type Summary struct {
	Total     int
	Completed int
	Pending   int
}

// TaskEdit is the input of Edit.
type TaskEdit struct {
	Title          string
	Description    string
	MarkIncomplete bool
}

// ErrorFunc is notified after a failed operation's state transition is final.
type ErrorFunc func(op Op, id string, err error)

// Store is the in-memory task cache. It is safe for concurrent use; remote
// calls run without holding the lock.
type Store struct {
	svc     service.Service
	log     *logrus.Entry
	metrics *metrics

	mu       sync.Mutex
	tasks    []service.Task
	loading  int
	gen      uint64
	inflight map[string]uint64 // task id -> generation of the pending mutation
	subs     map[int]func(Snapshot)
	nextSub  int
	onError  ErrorFunc
}

// New creates an empty Store. reg may be nil.
func New(svc service.Service, log *logrus.Logger, reg prometheus.Registerer) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		svc:      svc,
		log:      log.WithField("component", "taskstore"),
		metrics:  newMetrics(reg),
		inflight: make(map[string]uint64),
		subs:     make(map[int]func(Snapshot)),
	}
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// OnError sets the failure notification callback.
func (s *Store) OnError(fn ErrorFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

// Tasks returns a copy of the current list.
func (s *Store) Tasks() []service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTasks(s.tasks)
}

// Loading reports whether a fetch is outstanding.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0
}

// Find returns the task with id.
func (s *Store) Find(id string) (service.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.tasks[i], true
	}
	return service.Task{}, false
}

// FindBySerial returns the task displayed with serial n.
func (s *Store) FindBySerial(n int) (service.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.Serial == n {
			return t, true
		}
	}
	return service.Task{}, false
}

// Summary counts the current list.
func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum Summary
	for _, t := range s.tasks {
		sum.Total++
		if t.Completed {
			sum.Completed++
		}
	}
	sum.Pending = sum.Total - sum.Completed
	return sum
}

// Reset empties the list. Operations still in flight from before the reset
// complete against the server but no longer touch local state.
func (s *Store) Reset() {
	s.mu.Lock()
	s.gen++
	s.tasks = nil
	s.inflight = make(map[string]uint64)
	s.unlockAndNotify()
}

// FetchAll replaces the local list with the server's list.
func (s *Store) FetchAll(ctx context.Context) error {
	s.mu.Lock()
	gen := s.gen
	s.loading++
	s.unlockAndNotify()

	tasks, err := s.svc.ListTasks(ctx)

	s.mu.Lock()
	s.loading--
	if err == nil && gen == s.gen {
		s.tasks = cloneTasks(tasks)
	}
	s.unlockAndNotify()

	if err != nil {
		s.fail(OpFetch, "", err)
		return err
	}
	s.log.WithField("count", len(tasks)).Debug("tasks fetched")
	return nil
}

// ToggleComplete sets the task's completed flag to target, optimistically.
// Only target == true is allowed; see ErrIncompleteViaEdit.
func (s *Store) ToggleComplete(ctx context.Context, id string, target bool) error {
	if !target {
		return ErrIncompleteViaEdit
	}

	s.mu.Lock()
	i, err := s.claimLocked(OpToggle, id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	prev := s.tasks[i].Completed
	if prev == target {
		delete(s.inflight, id)
		s.mu.Unlock()
		return nil
	}
	gen := s.gen
	s.tasks[i].Completed = target
	s.unlockAndNotify()

	err = s.svc.CompleteTask(ctx, id)

	s.mu.Lock()
	s.releaseLocked(id, gen)
	reverted := false
	if err != nil && gen == s.gen {
		if j := s.indexLocked(id); j >= 0 {
			s.tasks[j].Completed = prev
			reverted = true
		}
	}
	s.unlockAndNotify()

	if reverted {
		s.metrics.rollback(OpToggle)
	}
	if err != nil {
		s.fail(OpToggle, id, err)
		return err
	}
	s.metrics.ok(OpToggle)
	return nil
}

// Delete removes the task optimistically and reinserts it at its original
// index if the server call fails.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	i, err := s.claimLocked(OpDelete, id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	gen := s.gen
	removed := s.tasks[i]
	s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	s.unlockAndNotify()

	err = s.svc.DeleteTask(ctx, id)

	s.mu.Lock()
	s.releaseLocked(id, gen)
	reverted := false
	if err != nil && gen == s.gen && s.indexLocked(id) < 0 {
		at := min(i, len(s.tasks))
		s.tasks = append(s.tasks[:at:at], append([]service.Task{removed}, s.tasks[at:]...)...)
		reverted = true
	}
	s.unlockAndNotify()

	if reverted {
		s.metrics.rollback(OpDelete)
	}
	if err != nil {
		s.fail(OpDelete, id, err)
		return err
	}
	s.metrics.ok(OpDelete)
	return nil
}

// Edit sends the new title and description, then refetches. It is not
// optimistic: on failure the local list is untouched. MarkIncomplete on a
// completed task sends the uncheck call first; if that call succeeds and the
// update fails, the task is shown incomplete locally to match the server.
func (s *Store) Edit(ctx context.Context, id string, edit TaskEdit) error {
	draft := service.TaskDraft{Title: edit.Title, Description: edit.Description}
	if err := draft.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	i, err := s.claimLocked(OpEdit, id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	gen := s.gen
	wasCompleted := s.tasks[i].Completed
	s.mu.Unlock()

	unchecked, err := s.editRemote(ctx, id, draft, edit.MarkIncomplete && wasCompleted)

	s.mu.Lock()
	s.releaseLocked(id, gen)
	if err != nil && unchecked && gen == s.gen {
		if j := s.indexLocked(id); j >= 0 {
			s.tasks[j].Completed = false
		}
	}
	s.unlockAndNotify()

	if err != nil {
		s.fail(OpEdit, id, err)
		return err
	}
	s.metrics.ok(OpEdit)
	return s.FetchAll(ctx)
}

// editRemote reports whether the uncheck call went through, even when the
// update then fails.
func (s *Store) editRemote(ctx context.Context, id string, draft service.TaskDraft, uncheck bool) (bool, error) {
	if uncheck {
		if err := s.svc.UncheckTask(ctx, id); err != nil {
			return false, err
		}
	}
	return uncheck, s.svc.UpdateTask(ctx, id, draft)
}

// Create sends a new task, then refetches so the server-assigned id and
// serial are authoritative. Nothing is added locally on failure.
func (s *Store) Create(ctx context.Context, draft service.TaskDraft) error {
	if err := draft.Validate(); err != nil {
		return err
	}
	if err := s.svc.CreateTask(ctx, draft); err != nil {
		s.fail(OpCreate, "", err)
		return err
	}
	s.metrics.ok(OpCreate)
	return s.FetchAll(ctx)
}

// claimLocked finds id and marks it as having a mutation in flight.
func (s *Store) claimLocked(op Op, id string) (int, error) {
	i := s.indexLocked(id)
	if i < 0 {
		return -1, service.Errorf(service.KindNotFound, string(op), "no task %s", id)
	}
	if _, busy := s.inflight[id]; busy {
		return -1, ErrMutationInFlight
	}
	s.inflight[id] = s.gen
	return i, nil
}

func (s *Store) releaseLocked(id string, gen uint64) {
	if g, ok := s.inflight[id]; ok && g == gen {
		delete(s.inflight, id)
	}
}

func (s *Store) indexLocked(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// unlockAndNotify releases s.mu and delivers a snapshot to subscribers.
func (s *Store) unlockAndNotify() {
	snap := Snapshot{Tasks: cloneTasks(s.tasks), Loading: s.loading > 0}
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Store) fail(op Op, id string, err error) {
	s.log.WithFields(logrus.Fields{"op": op, "task": id}).WithError(err).Warn("task operation failed")
	s.mu.Lock()
	fn := s.onError
	s.mu.Unlock()
	if fn != nil {
		fn(op, id, err)
	}
}

func cloneTasks(in []service.Task) []service.Task {
	if in == nil {
		return nil
	}
	out := make([]service.Task, len(in))
	copy(out, in)
	return out
}
