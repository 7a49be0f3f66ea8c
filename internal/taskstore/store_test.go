package taskstore

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"roletodo/internal/service"
	"roletodo/internal/testutil"
)

var errBoom = service.Errorf(service.KindUnavailable, "remote", "server exploded")

// newLoadedStore returns a store fetched from a fake holding three tasks.
func newLoadedStore(t *testing.T) (*Store, *testutil.FakeService) {
	t.Helper()
	svc := testutil.NewFakeService()
	svc.AddTask("Buy milk", "2 litres", false)
	svc.AddTask("Write report", "Q3 numbers", true)
	svc.AddTask("Call mom", "Sunday", false)

	s := New(svc, nil, nil)
	if err := s.FetchAll(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	return s, svc
}

func TestFetchAll_ReplacesList(t *testing.T) {
	s, svc := newLoadedStore(t)

	if got := len(s.Tasks()); got != 3 {
		t.Fatalf("expected 3 tasks, got %d", got)
	}

	svc.AddTask("Fourth", "d", false)
	if err := s.FetchAll(context.Background()); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if err := s.FetchAll(context.Background()); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if !reflect.DeepEqual(s.Tasks(), svc.Tasks()) {
		t.Errorf("expected local list to equal server list\nlocal:  %+v\nserver: %+v", s.Tasks(), svc.Tasks())
	}
	if s.Loading() {
		t.Error("expected loading to be cleared")
	}
}

func TestFetchAll_LoadingTransitions(t *testing.T) {
	svc := testutil.NewFakeService()
	s := New(svc, nil, nil)

	var seen []bool
	unsubscribe := s.Subscribe(func(snap Snapshot) { seen = append(seen, snap.Loading) })
	defer unsubscribe()

	if err := s.FetchAll(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !reflect.DeepEqual(seen, []bool{true, false}) {
		t.Errorf("expected loading true then false, got %v", seen)
	}
}

func TestFetchAll_FailureKeepsListAndClearsLoading(t *testing.T) {
	s, svc := newLoadedStore(t)
	before := s.Tasks()
	svc.ListTasksErr = errBoom

	if err := s.FetchAll(context.Background()); !errors.Is(err, service.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if !reflect.DeepEqual(s.Tasks(), before) {
		t.Error("expected list to be unchanged after failed fetch")
	}
	if s.Loading() {
		t.Error("expected loading to be cleared after failure")
	}
}

func TestToggleComplete_OptimisticThenConfirmed(t *testing.T) {
	s, svc := newLoadedStore(t)
	id := svc.Tasks()[0].ID

	svc.OnComplete = func(string) {
		// local state is already updated while the call is in flight
		task, _ := s.Find(id)
		if !task.Completed {
			t.Error("expected optimistic completed=true during the remote call")
		}
	}

	if err := s.ToggleComplete(context.Background(), id, true); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	task, _ := s.Find(id)
	if !task.Completed {
		t.Error("expected task to stay completed after success")
	}
	if svc.Calls("ListTasks") != 1 {
		t.Error("toggle success must not refetch")
	}
}

func TestToggleComplete_FailureReverts(t *testing.T) {
	s, svc := newLoadedStore(t)
	id := svc.Tasks()[0].ID
	svc.CompleteTaskErr = errBoom

	var reported []Op
	s.OnError(func(op Op, taskID string, err error) {
		task, _ := s.Find(taskID)
		if task.Completed {
			t.Error("error callback must run after the revert")
		}
		reported = append(reported, op)
	})

	err := s.ToggleComplete(context.Background(), id, true)
	if !errors.Is(err, service.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	task, _ := s.Find(id)
	if task.Completed {
		t.Error("expected completed to be restored to false")
	}
	if !reflect.DeepEqual(reported, []Op{OpToggle}) {
		t.Errorf("expected one toggle error report, got %v", reported)
	}
}

func TestToggleComplete_IncompleteOnlyViaEdit(t *testing.T) {
	s, svc := newLoadedStore(t)
	id := svc.Tasks()[1].ID // completed

	err := s.ToggleComplete(context.Background(), id, false)
	if err != ErrIncompleteViaEdit {
		t.Fatalf("expected ErrIncompleteViaEdit, got %v", err)
	}
	if svc.Calls("UncheckTask")+svc.Calls("CompleteTask") != 0 {
		t.Error("no remote call expected")
	}
	task, _ := s.Find(id)
	if !task.Completed {
		t.Error("task must stay completed")
	}
}

func TestToggleComplete_AlreadyCompletedIsNoop(t *testing.T) {
	s, svc := newLoadedStore(t)
	id := svc.Tasks()[1].ID

	if err := s.ToggleComplete(context.Background(), id, true); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if svc.Calls("CompleteTask") != 0 {
		t.Error("expected no remote call for a completed task")
	}
	// the id must not stay claimed
	if err := s.Delete(context.Background(), id); err != nil {
		t.Errorf("expected follow-up mutation to succeed, got %v", err)
	}
}

func TestToggleComplete_UnknownID(t *testing.T) {
	s, svc := newLoadedStore(t)

	err := s.ToggleComplete(context.Background(), "missing", true)
	if !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if svc.Calls("CompleteTask") != 0 {
		t.Error("no remote call expected")
	}
}

func TestMutationInFlightIsRejected(t *testing.T) {
	s, svc := newLoadedStore(t)
	id := svc.Tasks()[0].ID

	var nested error
	svc.OnComplete = func(string) {
		nested = s.Delete(context.Background(), id)
	}

	if err := s.ToggleComplete(context.Background(), id, true); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if nested != ErrMutationInFlight {
		t.Errorf("expected ErrMutationInFlight for overlapping mutation, got %v", nested)
	}
	if svc.Calls("DeleteTask") != 0 {
		t.Error("overlapping delete must not reach the server")
	}

	// a different id is not blocked
	nested = nil
	other := svc.Tasks()[1].ID
	svc.OnComplete = func(string) {
		nested = s.Delete(context.Background(), other)
	}
	if err := s.ToggleComplete(context.Background(), svc.Tasks()[2].ID, true); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if nested != nil {
		t.Errorf("expected mutation on another id to succeed, got %v", nested)
	}
}

func TestDelete_OptimisticThenConfirmed(t *testing.T) {
	s, svc := newLoadedStore(t)
	id := svc.Tasks()[1].ID

	svc.OnDelete = func(string) {
		if _, ok := s.Find(id); ok {
			t.Error("expected task to be removed locally during the remote call")
		}
	}
	if err := s.Delete(context.Background(), id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(s.Tasks()) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(s.Tasks()))
	}
}

func TestDelete_FailureReinsertsAtOriginalIndex(t *testing.T) {
	for idx := 0; idx < 3; idx++ {
		s, svc := newLoadedStore(t)
		before := s.Tasks()
		svc.DeleteTaskErr = service.Errorf(service.KindNotFound, "delete", "gone")

		err := s.Delete(context.Background(), before[idx].ID)
		if !errors.Is(err, service.ErrNotFound) {
			t.Fatalf("index %d: expected not found, got %v", idx, err)
		}
		if !reflect.DeepEqual(s.Tasks(), before) {
			t.Errorf("index %d: expected list restored\nwant: %+v\ngot:  %+v", idx, before, s.Tasks())
		}
	}
}

func TestCreate_EmptyFieldsSendNothing(t *testing.T) {
	drafts := []service.TaskDraft{
		{Title: "", Description: "d"},
		{Title: "t", Description: ""},
		{Title: "   ", Description: "\n"},
	}
	for _, d := range drafts {
		svc := testutil.NewFakeService()
		s := New(svc, nil, nil)

		err := s.Create(context.Background(), d)
		if !errors.Is(err, service.ErrValidation) {
			t.Errorf("%+v: expected validation error, got %v", d, err)
		}
		if svc.TotalCalls() != 0 {
			t.Errorf("%+v: expected no remote calls, got %d", d, svc.TotalCalls())
		}
	}
}

func TestCreate_RefetchesServerAssignedFields(t *testing.T) {
	s, svc := newLoadedStore(t)

	if err := s.Create(context.Background(), service.TaskDraft{Title: "New", Description: "thing"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	tasks := s.Tasks()
	if len(tasks) != 4 {
		t.Fatalf("expected 4 tasks, got %d", len(tasks))
	}
	last := tasks[3]
	if last.ID == "" || last.Serial != 4 || last.Title != "New" {
		t.Errorf("unexpected created task %+v", last)
	}
	if svc.Calls("ListTasks") != 2 {
		t.Errorf("expected a refetch after create, got %d fetches", svc.Calls("ListTasks"))
	}
}

func TestCreate_FailureAddsNothing(t *testing.T) {
	s, svc := newLoadedStore(t)
	svc.CreateTaskErr = errBoom

	if err := s.Create(context.Background(), service.TaskDraft{Title: "New", Description: "thing"}); err == nil {
		t.Fatal("expected error")
	}
	if len(s.Tasks()) != 3 {
		t.Errorf("expected 3 tasks, got %d", len(s.Tasks()))
	}
}

func TestEdit_SuccessRefetches(t *testing.T) {
	s, svc := newLoadedStore(t)
	id := svc.Tasks()[0].ID

	if err := s.Edit(context.Background(), id, TaskEdit{Title: "x", Description: "y"}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if svc.Calls("ListTasks") != 2 {
		t.Errorf("expected fetchAll after edit, got %d fetches", svc.Calls("ListTasks"))
	}
	task, _ := s.Find(id)
	if task.Title != "x" || task.Description != "y" {
		t.Errorf("expected edited task, got %+v", task)
	}
}

func TestEdit_FailureLeavesListUntouched(t *testing.T) {
	s, svc := newLoadedStore(t)
	before := s.Tasks()
	svc.UpdateTaskErr = service.Errorf(service.KindNotFound, "update", "gone")

	err := s.Edit(context.Background(), before[0].ID, TaskEdit{Title: "x", Description: "y"})
	if !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !reflect.DeepEqual(s.Tasks(), before) {
		t.Error("expected list to be unchanged")
	}
	if svc.Calls("ListTasks") != 1 {
		t.Error("failed edit must not refetch")
	}
}

func TestEdit_MarkIncomplete(t *testing.T) {
	s, svc := newLoadedStore(t)
	id := svc.Tasks()[1].ID // completed

	err := s.Edit(context.Background(), id, TaskEdit{Title: "Write report", Description: "Q3 numbers", MarkIncomplete: true})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if svc.Calls("UncheckTask") != 1 {
		t.Errorf("expected one uncheck call, got %d", svc.Calls("UncheckTask"))
	}
	task, _ := s.Find(id)
	if task.Completed {
		t.Error("expected task to be incomplete after edit")
	}

	// an open task needs no uncheck call
	open := svc.Tasks()[0].ID
	if err := s.Edit(context.Background(), open, TaskEdit{Title: "a", Description: "b", MarkIncomplete: true}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if svc.Calls("UncheckTask") != 1 {
		t.Error("expected no uncheck call for an open task")
	}
}

func TestEdit_UpdateFailsAfterUncheck(t *testing.T) {
	s, svc := newLoadedStore(t)
	id := svc.Tasks()[1].ID // completed
	svc.UpdateTaskErr = errBoom

	err := s.Edit(context.Background(), id, TaskEdit{Title: "New title", Description: "Q3 numbers", MarkIncomplete: true})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected update error, got %v", err)
	}
	remote := svc.Tasks()[1]
	local, _ := s.Find(id)
	if local.Completed != remote.Completed {
		t.Errorf("expected local completed=%v to match server, got %v", remote.Completed, local.Completed)
	}
	if local.Completed {
		t.Error("expected task to be incomplete after the uncheck went through")
	}
	if local.Title != "Write report" {
		t.Errorf("expected title untouched, got %q", local.Title)
	}
}

func TestEdit_UncheckFailureLeavesTaskCompleted(t *testing.T) {
	s, svc := newLoadedStore(t)
	id := svc.Tasks()[1].ID
	svc.UncheckTaskErr = errBoom

	if err := s.Edit(context.Background(), id, TaskEdit{Title: "x", Description: "y", MarkIncomplete: true}); err == nil {
		t.Fatal("expected error")
	}
	if svc.Calls("UpdateTask") != 0 {
		t.Error("expected no update after a failed uncheck")
	}
	if local, _ := s.Find(id); !local.Completed {
		t.Error("expected task to stay completed")
	}
}

func TestEdit_ValidationSendsNothing(t *testing.T) {
	s, svc := newLoadedStore(t)
	calls := svc.TotalCalls()

	err := s.Edit(context.Background(), svc.Tasks()[0].ID, TaskEdit{Title: "", Description: "y"})
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if svc.TotalCalls() != calls {
		t.Error("expected no remote calls")
	}
}

func TestReset_DiscardsStaleRevert(t *testing.T) {
	s, svc := newLoadedStore(t)
	id := svc.Tasks()[0].ID
	svc.DeleteTaskErr = errBoom
	svc.OnDelete = func(string) { s.Reset() }

	if err := s.Delete(context.Background(), id); err == nil {
		t.Fatal("expected error")
	}
	if len(s.Tasks()) != 0 {
		t.Errorf("expected stale revert to be dropped after reset, got %+v", s.Tasks())
	}
	if got := promtest.ToFloat64(s.metrics.rollbacks.WithLabelValues("delete")); got != 0 {
		t.Errorf("expected no rollback counted for a dropped revert, got %v", got)
	}
}

func TestReset_StaleToggleFailureIsNotARollback(t *testing.T) {
	s, svc := newLoadedStore(t)
	id := svc.Tasks()[0].ID
	svc.CompleteTaskErr = errBoom
	svc.OnComplete = func(string) { s.Reset() }

	if err := s.ToggleComplete(context.Background(), id, true); err == nil {
		t.Fatal("expected error")
	}
	if got := promtest.ToFloat64(s.metrics.rollbacks.WithLabelValues("toggle")); got != 0 {
		t.Errorf("expected no rollback counted, got %v", got)
	}
}

func TestSummaryAndFindBySerial(t *testing.T) {
	s, _ := newLoadedStore(t)

	want := Summary{Total: 3, Completed: 1, Pending: 2}
	if got := s.Summary(); got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	task, ok := s.FindBySerial(3)
	if !ok || task.Title != "Call mom" {
		t.Errorf("expected serial 3 to be 'Call mom', got %+v %v", task, ok)
	}
	if _, ok := s.FindBySerial(9); ok {
		t.Error("expected serial 9 to be missing")
	}
}

func TestUnsubscribe(t *testing.T) {
	s, _ := newLoadedStore(t)
	calls := 0
	unsubscribe := s.Subscribe(func(Snapshot) { calls++ })
	unsubscribe()

	s.Reset()
	if calls != 0 {
		t.Errorf("expected no notifications after unsubscribe, got %d", calls)
	}
}

func TestMetrics(t *testing.T) {
	svc := testutil.NewFakeService()
	id := svc.AddTask("a", "b", false)
	reg := prometheus.NewRegistry()
	s := New(svc, nil, reg)
	if err := s.FetchAll(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	svc.CompleteTaskErr = errBoom
	_ = s.ToggleComplete(context.Background(), id, true)
	svc.CompleteTaskErr = nil
	if err := s.ToggleComplete(context.Background(), id, true); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	if got := promtest.ToFloat64(s.metrics.rollbacks.WithLabelValues("toggle")); got != 1 {
		t.Errorf("expected 1 rollback, got %v", got)
	}
	if got := promtest.ToFloat64(s.metrics.mutations.WithLabelValues("toggle")); got != 1 {
		t.Errorf("expected 1 confirmed mutation, got %v", got)
	}
}
