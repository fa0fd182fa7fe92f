package bug

import (
	"time"

	"github.com/google/uuid"
)

// Status is the workflow state of a bug.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// AllStatuses returns every valid status in workflow order.
func AllStatuses() []Status {
	return []Status{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}
}

// IsValid reports whether s is one of the enumerated statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	default:
		return false
	}
}

// Priority is the urgency of a bug.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// AllPriorities returns every valid priority from least to most urgent.
func AllPriorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
}

// IsValid reports whether p is one of the enumerated priorities.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Weight is the numeric value used when averaging priorities; unknown values count as medium.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// Environment describes where a bug was observed.
type Environment struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Version string `json:"version"`
}

// Bug is a tracked defect.
type Bug struct {
	ID               uuid.UUID   `json:"id"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Status           Status      `json:"status"`
	Priority         Priority    `json:"priority"`
	ReportedBy       string      `json:"reportedBy"`
	AssignedTo       string      `json:"assignedTo"`
	StepsToReproduce []string    `json:"stepsToReproduce"`
	Environment      Environment `json:"environment"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`

	// Seq is the store-assigned creation sequence used as the final sort tie-breaker.
	Seq int64 `json:"-"`
}

func (b Bug) clone() Bug {
	steps := make([]string, len(b.StepsToReproduce))
	copy(steps, b.StepsToReproduce)
	b.StepsToReproduce = steps
	return b
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// NewPagination computes the page count for total matches; there is always at least one page.
func NewPagination(page, limit int, total int64) Pagination {
	pages := 1
	if limit > 0 && total > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// Page is one slice of query results.
type Page struct {
	Bugs       []Bug      `json:"data"`
	Pagination Pagination `json:"pagination"`
}
