package bug

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/abduss/bugtrack/internal/apperr"
	"github.com/google/uuid"
)

func newTestService() (*Service, *MemoryStore) {
	store := NewMemoryStore()
	service := NewService(store, MaxLimit)
	clock := baseTime
	service.nowFunc = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return service, store
}

func validInput(title string) CreateInput {
	return CreateInput{
		Title:       title,
		Description: "Steps lead to a crash",
		ReportedBy:  "Dana",
	}
}

func fieldMessages(err error) map[string]string {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return nil
	}
	out := map[string]string{}
	for _, f := range appErr.Fields {
		out[f.Field] = f.Message
	}
	return out
}

func TestCreateAppliesDefaults(t *testing.T) {
	service, _ := newTestService()

	created, err := service.Create(context.Background(), CreateInput{
		Title:            "  Login fails  ",
		Description:      "Cannot log in",
		ReportedBy:       "Dana",
		StepsToReproduce: []string{" open page ", "", "click login"},
	})
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	if created.ID == uuid.Nil {
		t.Fatalf("expected id to be assigned")
	}
	if created.Title != "Login fails" {
		t.Fatalf("expected trimmed title, got %q", created.Title)
	}
	if created.Status != StatusOpen || created.Priority != PriorityMedium {
		t.Fatalf("expected open/medium defaults, got %s/%s", created.Status, created.Priority)
	}
	if created.AssignedTo != "Unassigned" {
		t.Fatalf("expected default assignee, got %q", created.AssignedTo)
	}
	if created.Environment != (Environment{OS: "Unknown", Browser: "Unknown", Version: "Unknown"}) {
		t.Fatalf("expected unknown environment, got %+v", created.Environment)
	}
	if len(created.StepsToReproduce) != 2 || created.StepsToReproduce[0] != "open page" {
		t.Fatalf("expected cleaned steps, got %q", created.StepsToReproduce)
	}
	if created.Seq != 1 {
		t.Fatalf("expected first sequence number, got %d", created.Seq)
	}
}

func TestCreateThenGetRoundTrip(t *testing.T) {
	service, _ := newTestService()

	created, err := service.Create(context.Background(), validInput("Round trip"))
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	fetched, err := service.Get(context.Background(), created.ID.String())
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}
	if fetched.Title != created.Title || fetched.Description != created.Description || !fetched.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("expected fetched bug to match created one: %+v vs %+v", fetched, created)
	}
}

func TestCreateValidation(t *testing.T) {
	service, store := newTestService()

	tests := []struct {
		name    string
		input   CreateInput
		field   string
		message string
	}{
		{name: "missing title", input: CreateInput{Description: "d", ReportedBy: "r"}, field: "title", message: "Title is required"},
		{name: "long title", input: CreateInput{Title: strings.Repeat("x", 101), Description: "d", ReportedBy: "r"}, field: "title", message: "Title cannot exceed 100 characters"},
		{name: "missing description", input: CreateInput{Title: "t", ReportedBy: "r"}, field: "description", message: "Description is required"},
		{name: "missing reporter", input: CreateInput{Title: "t", Description: "d"}, field: "reportedBy", message: "Reporter name is required"},
		{name: "long assignee", input: CreateInput{Title: "t", Description: "d", ReportedBy: "r", AssignedTo: strings.Repeat("a", 51)}, field: "assignedTo", message: "Assignee name cannot exceed 50 characters"},
		{name: "bad status", input: CreateInput{Title: "t", Description: "d", ReportedBy: "r", Status: "bogus"}, field: "status", message: "Invalid status. Must be one of: open, in-progress, resolved, closed"},
		{name: "bad priority", input: CreateInput{Title: "t", Description: "d", ReportedBy: "r", Priority: "urgent"}, field: "priority", message: "Invalid priority level. Must be one of: low, medium, high, critical"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Create(context.Background(), tt.input)
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if got := fieldMessages(err)[tt.field]; got != tt.message {
				t.Fatalf("expected %q for %s, got %q", tt.message, tt.field, got)
			}
		})
	}

	if len(store.bugs) != 0 {
		t.Fatalf("expected nothing stored, got %d bugs", len(store.bugs))
	}
}

func TestTitleLengthCountsCharacters(t *testing.T) {
	service, _ := newTestService()

	_, err := service.Create(context.Background(), validInput(strings.Repeat("é", 100)))
	if err != nil {
		t.Fatalf("expected 100 multi-byte characters to be accepted, got %v", err)
	}
}

func TestUpdateIsPartial(t *testing.T) {
	service, _ := newTestService()
	created, err := service.Create(context.Background(), validInput("Original"))
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	assignee := "Eve"
	os := "Linux"
	updated, err := service.Update(context.Background(), created.ID.String(), UpdateInput{
		AssignedTo:  &assignee,
		Environment: &EnvironmentInput{OS: &os},
	})
	if err != nil {
		t.Fatalf("update returned error: %v", err)
	}

	if updated.Title != "Original" || updated.AssignedTo != "Eve" {
		t.Fatalf("expected only assignee to change, got %+v", updated)
	}
	if updated.Environment.OS != "Linux" || updated.Environment.Browser != "Unknown" {
		t.Fatalf("expected environment merge, got %+v", updated.Environment)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("expected updatedAt to advance")
	}
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Fatalf("updatedAt must not precede createdAt")
	}
}

func TestUpdateStatusRejectsInvalidValue(t *testing.T) {
	service, _ := newTestService()
	created, err := service.Create(context.Background(), validInput("Status"))
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	for _, status := range []string{"bogus", ""} {
		_, err = service.UpdateStatus(context.Background(), created.ID.String(), status)
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("expected validation error for %q, got %v", status, err)
		}
	}

	current, err := service.Get(context.Background(), created.ID.String())
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}
	if current.Status != StatusOpen || !current.UpdatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("expected bug to be unchanged, got %+v", current)
	}
}

func TestUpdateStatusAndPriority(t *testing.T) {
	service, _ := newTestService()
	created, err := service.Create(context.Background(), validInput("Flow"))
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	if _, err := service.UpdateStatus(context.Background(), created.ID.String(), "resolved"); err != nil {
		t.Fatalf("update status returned error: %v", err)
	}
	updated, err := service.UpdatePriority(context.Background(), created.ID.String(), "critical")
	if err != nil {
		t.Fatalf("update priority returned error: %v", err)
	}
	if updated.Status != StatusResolved || updated.Priority != PriorityCritical {
		t.Fatalf("expected resolved/critical, got %s/%s", updated.Status, updated.Priority)
	}
}

func TestMissingBugIsNotFound(t *testing.T) {
	service, _ := newTestService()
	missing := uuid.NewString()

	checks := map[string]error{}
	_, checks["get"] = service.Get(context.Background(), missing)
	_, checks["get malformed"] = service.Get(context.Background(), "not-a-uuid")
	_, checks["status"] = service.UpdateStatus(context.Background(), missing, "open")
	checks["delete"] = service.Delete(context.Background(), missing)

	for name, err := range checks {
		if !errors.Is(err, ErrBugNotFound) || apperr.KindOf(err) != apperr.KindNotFound {
			t.Fatalf("%s: expected not found, got %v", name, err)
		}
	}
}

func TestDeleteTwice(t *testing.T) {
	service, _ := newTestService()
	created, err := service.Create(context.Background(), validInput("Gone"))
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	if err := service.Delete(context.Background(), created.ID.String()); err != nil {
		t.Fatalf("delete returned error: %v", err)
	}
	if err := service.Delete(context.Background(), created.ID.String()); !errors.Is(err, ErrBugNotFound) {
		t.Fatalf("expected second delete to be not found, got %v", err)
	}
}

func TestListClampsToServiceLimit(t *testing.T) {
	store := NewMemoryStore()
	service := NewService(store, 2)
	for i := 0; i < 3; i++ {
		if _, err := service.Create(context.Background(), validInput("bug")); err != nil {
			t.Fatalf("create returned error: %v", err)
		}
	}

	page, err := service.List(context.Background(), Build(FilterInput{Limit: intPtr(50)}))
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if page.Pagination.Limit != 2 || len(page.Bugs) != 2 || page.Pagination.Pages != 2 {
		t.Fatalf("expected page size capped at 2, got %+v", page.Pagination)
	}
}

type failingStore struct {
	*MemoryStore
	err error
}

func (f failingStore) List(context.Context, Descriptor) (Page, error) { return Page{}, f.err }
func (f failingStore) Stats(context.Context) (Summary, error)        { return Summary{}, f.err }

func TestStoreFailuresAreServerErrors(t *testing.T) {
	boom := errors.New("connection reset")
	service := NewService(failingStore{MemoryStore: NewMemoryStore(), err: boom}, MaxLimit)

	_, err := service.List(context.Background(), Build(FilterInput{}))
	if !errors.Is(err, boom) || apperr.KindOf(err) != apperr.KindServer {
		t.Fatalf("expected wrapped server error, got %v", err)
	}
	_, err = service.Stats(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped stats error, got %v", err)
	}
}
