package bug

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abduss/bugtrack/internal/apperr"
)

// ErrBugNotFound signals that no bug has the requested id.
var ErrBugNotFound = errors.New("bug not found")

func notFound(id string) error {
	return apperr.New(apperr.KindNotFound, fmt.Sprintf("Bug not found with id of %s", id)).Wrap(ErrBugNotFound)
}

func statusChoices() string {
	names := make([]string, 0, len(AllStatuses()))
	for _, s := range AllStatuses() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

func priorityChoices() string {
	names := make([]string, 0, len(AllPriorities()))
	for _, p := range AllPriorities() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}
