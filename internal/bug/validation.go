package bug

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/abduss/bugtrack/internal/apperr"
)

const (
	maxTitleLength       = 100
	maxDescriptionLength = 1000
	maxPersonNameLength  = 50

	defaultAssignee    = "Unassigned"
	defaultEnvironment = "Unknown"

	validationFailed = "Validation failed"
)

// EnvironmentInput carries optional environment fields; nil or empty fields become "Unknown".
type EnvironmentInput struct {
	OS      *string
	Browser *string
	Version *string
}

// CreateInput is the payload for reporting a new bug. Empty Status and Priority take their defaults.
type CreateInput struct {
	Title            string
	Description      string
	Status           Status
	Priority         Priority
	ReportedBy       string
	AssignedTo       string
	StepsToReproduce []string
	Environment      EnvironmentInput
}

// UpdateInput is a partial edit; nil fields are left unchanged.
type UpdateInput struct {
	Title            *string
	Description      *string
	Status           *Status
	Priority         *Priority
	ReportedBy       *string
	AssignedTo       *string
	StepsToReproduce *[]string
	Environment      *EnvironmentInput
}

type fieldErrors []apperr.FieldError

func (f *fieldErrors) add(field, message string) {
	*f = append(*f, apperr.FieldError{Field: field, Message: message})
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperr.Validation(validationFailed, f...)
}

func checkText(errs *fieldErrors, field, value, label string, limit int, required bool) {
	if required && value == "" {
		errs.add(field, label+" is required")
		return
	}
	if utf8.RuneCountInString(value) > limit {
		errs.add(field, label+" cannot exceed "+strconv.Itoa(limit)+" characters")
	}
}

func checkStatus(errs *fieldErrors, s Status) {
	if !s.IsValid() {
		errs.add("status", "Invalid status. Must be one of: "+statusChoices())
	}
}

func checkPriority(errs *fieldErrors, p Priority) {
	if !p.IsValid() {
		errs.add("priority", "Invalid priority level. Must be one of: "+priorityChoices())
	}
}

// toBug validates the input and applies defaults. Identity and timestamps are left to the caller.
func (in CreateInput) toBug() (Bug, error) {
	b := Bug{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Status:      in.Status,
		Priority:    in.Priority,
		ReportedBy:  strings.TrimSpace(in.ReportedBy),
		AssignedTo:  strings.TrimSpace(in.AssignedTo),
	}
	if b.Status == "" {
		b.Status = StatusOpen
	}
	if b.Priority == "" {
		b.Priority = PriorityMedium
	}
	if b.AssignedTo == "" {
		b.AssignedTo = defaultAssignee
	}
	b.StepsToReproduce = cleanSteps(in.StepsToReproduce)
	b.Environment = Environment{
		OS:      orUnknown(in.Environment.OS),
		Browser: orUnknown(in.Environment.Browser),
		Version: orUnknown(in.Environment.Version),
	}

	var errs fieldErrors
	checkText(&errs, "title", b.Title, "Title", maxTitleLength, true)
	checkText(&errs, "description", b.Description, "Description", maxDescriptionLength, true)
	checkText(&errs, "reportedBy", b.ReportedBy, "Reporter name", maxPersonNameLength, true)
	checkText(&errs, "assignedTo", b.AssignedTo, "Assignee name", maxPersonNameLength, false)
	checkStatus(&errs, b.Status)
	checkPriority(&errs, b.Priority)

	return b, errs.err()
}

// applyTo validates the supplied fields and writes them onto b.
// b is left untouched when validation fails.
func (in UpdateInput) applyTo(b *Bug) error {
	next := b.clone()
	var errs fieldErrors

	if in.Title != nil {
		next.Title = strings.TrimSpace(*in.Title)
		checkText(&errs, "title", next.Title, "Title", maxTitleLength, true)
	}
	if in.Description != nil {
		next.Description = strings.TrimSpace(*in.Description)
		checkText(&errs, "description", next.Description, "Description", maxDescriptionLength, true)
	}
	if in.ReportedBy != nil {
		next.ReportedBy = strings.TrimSpace(*in.ReportedBy)
		checkText(&errs, "reportedBy", next.ReportedBy, "Reporter name", maxPersonNameLength, true)
	}
	if in.AssignedTo != nil {
		next.AssignedTo = strings.TrimSpace(*in.AssignedTo)
		if next.AssignedTo == "" {
			next.AssignedTo = defaultAssignee
		}
		checkText(&errs, "assignedTo", next.AssignedTo, "Assignee name", maxPersonNameLength, false)
	}
	if in.Status != nil {
		next.Status = *in.Status
		checkStatus(&errs, next.Status)
	}
	if in.Priority != nil {
		next.Priority = *in.Priority
		checkPriority(&errs, next.Priority)
	}
	if in.StepsToReproduce != nil {
		next.StepsToReproduce = cleanSteps(*in.StepsToReproduce)
	}
	if env := in.Environment; env != nil {
		if env.OS != nil {
			next.Environment.OS = orUnknown(env.OS)
		}
		if env.Browser != nil {
			next.Environment.Browser = orUnknown(env.Browser)
		}
		if env.Version != nil {
			next.Environment.Version = orUnknown(env.Version)
		}
	}

	if err := errs.err(); err != nil {
		return err
	}
	*b = next
	return nil
}

func cleanSteps(steps []string) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func orUnknown(v *string) string {
	if v == nil {
		return defaultEnvironment
	}
	if s := strings.TrimSpace(*v); s != "" {
		return s
	}
	return defaultEnvironment
}

func parseStatus(raw string) (Status, error) {
	if raw == "" {
		return "", apperr.Validation(validationFailed, apperr.FieldError{Field: "status", Message: "Status is required"})
	}
	var errs fieldErrors
	checkStatus(&errs, Status(raw))
	return Status(raw), errs.err()
}

func parsePriority(raw string) (Priority, error) {
	if raw == "" {
		return "", apperr.Validation(validationFailed, apperr.FieldError{Field: "priority", Message: "Priority is required"})
	}
	var errs fieldErrors
	checkPriority(&errs, Priority(raw))
	return Priority(raw), errs.err()
}
