package bug

import (
	"cmp"
	"slices"
	"strings"
)

// Matches reports whether b satisfies every filter present in d.
func (d Descriptor) Matches(b Bug) bool {
	if d.Status != nil && b.Status != *d.Status {
		return false
	}
	if d.Priority != nil && b.Priority != *d.Priority {
		return false
	}
	if d.Search != nil && !containsFold(b.Title, *d.Search) && !containsFold(b.Description, *d.Search) {
		return false
	}
	if d.ReportedBy != nil && !containsFold(b.ReportedBy, *d.ReportedBy) {
		return false
	}
	if d.AssignedTo != nil && !containsFold(b.AssignedTo, *d.AssignedTo) {
		return false
	}
	return true
}

// Execute filters, sorts and paginates bugs. The input slice is not modified.
func Execute(bugs []Bug, d Descriptor) Page {
	matched := make([]Bug, 0, len(bugs))
	for _, b := range bugs {
		if d.Matches(b) {
			matched = append(matched, b)
		}
	}
	SortBugs(matched, d.Sort)

	total := len(matched)
	start := d.Skip()
	if start < 0 || start > total {
		start = total
	}
	end := min(start+d.Limit, total)

	out := make([]Bug, 0, end-start)
	for _, b := range matched[start:end] {
		out = append(out, b.clone())
	}
	return Page{
		Bugs:       out,
		Pagination: NewPagination(d.Page, d.Limit, int64(total)),
	}
}

// SortBugs orders bugs by keys, falling back to creation sequence so the order is total.
func SortBugs(bugs []Bug, keys []SortKey) {
	slices.SortFunc(bugs, func(a, b Bug) int {
		for _, k := range keys {
			c := compareField(a, b, k.Field)
			if k.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
}

// compareField compares a single sortable field. Unknown fields compare equal.
func compareField(a, b Bug, field string) int {
	switch field {
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "description":
		return strings.Compare(a.Description, b.Description)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "priority":
		return strings.Compare(string(a.Priority), string(b.Priority))
	case "reportedBy":
		return strings.Compare(a.ReportedBy, b.ReportedBy)
	case "assignedTo":
		return strings.Compare(a.AssignedTo, b.AssignedTo)
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "id", "_id":
		return cmp.Compare(a.Seq, b.Seq)
	default:
		return 0
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
