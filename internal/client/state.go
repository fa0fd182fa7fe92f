package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/abduss/bugtrack/internal/bug"
)

// State is the lifecycle of a store's last fetch.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BugAPI is the part of Client the stores depend on.
type BugAPI interface {
	ListBugs(ctx context.Context, filter bug.FilterInput) (bug.Page, error)
	Stats(ctx context.Context) (bug.Summary, error)
	CreateBug(ctx context.Context, draft BugDraft) (bug.Bug, error)
	UpdateStatus(ctx context.Context, id, status string) (bug.Bug, error)
	DeleteBug(ctx context.Context, id string) error
}

// latest tracks the newest in-flight request of a store. Callers hold the store's lock.
type latest struct {
	seq    uint64
	cancel context.CancelFunc
}

// begin starts a new request, cancelling the previous one.
func (l *latest) begin(ctx context.Context) (context.Context, uint64) {
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	reqCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	return reqCtx, l.seq
}

// finish reports whether seq is still the newest request and releases its context if so.
func (l *latest) finish(seq uint64) bool {
	if seq != l.seq {
		return false
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	return true
}

// ListSnapshot is a consistent copy of a ListStore.
type ListSnapshot struct {
	State  State
	Filter bug.FilterInput
	Page   bug.Page
	Err    error
}

// ListStore holds the filter and page state of a bug list and the last page fetched for it.
// A fetch overtaken by a newer one is discarded. On failure the previous page is cleared.
type ListStore struct {
	api       BugAPI
	dashboard *DashboardStore

	mu      sync.Mutex
	initial bug.FilterInput
	filter  bug.FilterInput
	page    bug.Page
	state   State
	err     error
	req     latest
}

// NewListStore creates an idle ListStore. dashboard may be nil; when set it is refreshed
// after every mutation made through the store.
func NewListStore(api BugAPI, initial bug.FilterInput, dashboard *DashboardStore) *ListStore {
	return &ListStore{
		api:       api,
		dashboard: dashboard,
		initial:   initial.Clone(),
		filter:    initial.Clone(),
	}
}

// Snapshot returns the current state. The filter is a deep copy; changing it does not
// affect later fetches.
func (s *ListStore) Snapshot() ListSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ListSnapshot{State: s.state, Filter: s.filter.Clone(), Page: s.page, Err: s.err}
}

// SetFilter sets one filter by its query parameter name, returns to the first page and
// fetches. An empty value removes the filter.
func (s *ListStore) SetFilter(ctx context.Context, key, value string) error {
	s.mu.Lock()
	target, err := s.filterField(key)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if value == "" {
		*target = nil
	} else {
		*target = &value
	}
	s.filter.Page = pageRef(bug.DefaultPage)
	s.mu.Unlock()

	return s.Refresh(ctx)
}

// ClearFilters restores the initial filters on the first page and fetches.
func (s *ListStore) ClearFilters(ctx context.Context) error {
	s.mu.Lock()
	limit := s.filter.Limit
	s.filter = s.initial.Clone()
	s.filter.Limit = limit
	s.filter.Page = pageRef(bug.DefaultPage)
	s.mu.Unlock()

	return s.Refresh(ctx)
}

// GoToPage moves to page and fetches.
func (s *ListStore) GoToPage(ctx context.Context, page int) error {
	s.mu.Lock()
	s.filter.Page = pageRef(page)
	s.mu.Unlock()

	return s.Refresh(ctx)
}

// SetLimit changes the page size, returns to the first page and fetches.
func (s *ListStore) SetLimit(ctx context.Context, limit int) error {
	s.mu.Lock()
	s.filter.Limit = pageRef(limit)
	s.filter.Page = pageRef(bug.DefaultPage)
	s.mu.Unlock()

	return s.Refresh(ctx)
}

// Refresh fetches the page for the current state. It returns ErrSuperseded when a newer
// fetch was started before this one completed; the store then reflects the newer fetch.
func (s *ListStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	reqCtx, seq := s.req.begin(ctx)
	filter := s.filter.Clone()
	s.state = StateLoading
	s.err = nil
	s.mu.Unlock()

	page, err := s.api.ListBugs(reqCtx, filter)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.req.finish(seq) {
		return ErrSuperseded
	}
	if err != nil {
		s.state = StateFailed
		s.err = err
		s.page = bug.Page{}
		return err
	}
	s.state = StateLoaded
	s.page = page
	return nil
}

// Create reports a bug, then refreshes the list and the dashboard. A failed create leaves
// the store untouched so the caller can keep the draft.
func (s *ListStore) Create(ctx context.Context, draft BugDraft) (bug.Bug, error) {
	created, err := s.api.CreateBug(ctx, draft)
	if err != nil {
		return bug.Bug{}, err
	}
	s.afterMutation(ctx)
	return created, nil
}

// UpdateStatus changes a bug's status, then refreshes the list and the dashboard.
func (s *ListStore) UpdateStatus(ctx context.Context, id, status string) (bug.Bug, error) {
	updated, err := s.api.UpdateStatus(ctx, id, status)
	if err != nil {
		return bug.Bug{}, err
	}
	s.afterMutation(ctx)
	return updated, nil
}

// Delete removes a bug, then refreshes the list and the dashboard.
func (s *ListStore) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteBug(ctx, id); err != nil {
		return err
	}
	s.afterMutation(ctx)
	return nil
}

// afterMutation refetches. Fetch failures are recorded in the stores' state.
func (s *ListStore) afterMutation(ctx context.Context) {
	_ = s.Refresh(ctx)
	if s.dashboard != nil {
		_ = s.dashboard.Refresh(ctx)
	}
}

func (s *ListStore) filterField(key string) (**string, error) {
	switch key {
	case bug.ParamStatus:
		return &s.filter.Status, nil
	case bug.ParamPriority:
		return &s.filter.Priority, nil
	case bug.ParamSearch:
		return &s.filter.Search, nil
	case bug.ParamReportedBy:
		return &s.filter.ReportedBy, nil
	case bug.ParamAssignedTo:
		return &s.filter.AssignedTo, nil
	case bug.ParamSort:
		return &s.filter.Sort, nil
	}
	return nil, fmt.Errorf("unknown filter %q", key)
}

func pageRef(n int) *int {
	return &n
}

// DashboardSnapshot is a consistent copy of a DashboardStore.
type DashboardSnapshot struct {
	State   State
	Summary *bug.Summary
	Err     error
}

// DashboardStore holds the last fetched summary, with the same state machine and
// failure policy as ListStore.
type DashboardStore struct {
	api BugAPI

	mu      sync.Mutex
	summary *bug.Summary
	state   State
	err     error
	req     latest
}

// NewDashboardStore creates an idle DashboardStore.
func NewDashboardStore(api BugAPI) *DashboardStore {
	return &DashboardStore{api: api}
}

// Snapshot returns the current state.
func (d *DashboardStore) Snapshot() DashboardSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DashboardSnapshot{State: d.state, Summary: d.summary, Err: d.err}
}

// Refresh fetches the summary. It returns ErrSuperseded when a newer fetch overtook it.
func (d *DashboardStore) Refresh(ctx context.Context) error {
	d.mu.Lock()
	reqCtx, seq := d.req.begin(ctx)
	d.state = StateLoading
	d.err = nil
	d.mu.Unlock()

	summary, err := d.api.Stats(reqCtx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.req.finish(seq) {
		return ErrSuperseded
	}
	if err != nil {
		d.state = StateFailed
		d.err = err
		d.summary = nil
		return err
	}
	d.state = StateLoaded
	d.summary = &summary
	return nil
}
