package bug

import (
	"cmp"
	"slices"
)

// GroupCount is the number of bugs sharing one status or priority value.
// AvgPriority is only set on status groups.
type GroupCount struct {
	ID          string   `json:"_id"`
	Count       int64    `json:"count"`
	AvgPriority *float64 `json:"avgPriority,omitempty"`
}

// Summary is the collection-wide dashboard aggregate.
type Summary struct {
	TotalBugs            int64        `json:"totalBugs"`
	OpenBugs             int64        `json:"openBugs"`
	ResolvedBugs         int64        `json:"resolvedBugs"`
	StatusDistribution   []GroupCount `json:"statusDistribution"`
	PriorityDistribution []GroupCount `json:"priorityDistribution"`
}

// Summarize aggregates bugs in memory.
func Summarize(bugs []Bug) Summary {
	type acc struct {
		count  int64
		weight float64
	}
	byStatus := map[string]*acc{}
	byPriority := map[string]int64{}

	for _, b := range bugs {
		a, ok := byStatus[string(b.Status)]
		if !ok {
			a = &acc{}
			byStatus[string(b.Status)] = a
		}
		a.count++
		a.weight += b.Priority.Weight()
		byPriority[string(b.Priority)]++
	}

	statusGroups := make([]GroupCount, 0, len(byStatus))
	for id, a := range byStatus {
		avg := a.weight / float64(a.count)
		statusGroups = append(statusGroups, GroupCount{ID: id, Count: a.count, AvgPriority: &avg})
	}
	priorityGroups := make([]GroupCount, 0, len(byPriority))
	for id, n := range byPriority {
		priorityGroups = append(priorityGroups, GroupCount{ID: id, Count: n})
	}
	return NewSummary(statusGroups, priorityGroups)
}

// NewSummary derives the totals from the status groups and orders both distributions.
// Zero-count groups are dropped.
func NewSummary(statusGroups, priorityGroups []GroupCount) Summary {
	s := Summary{
		StatusDistribution:   orderGroups(statusGroups),
		PriorityDistribution: orderGroups(priorityGroups),
	}
	for _, g := range s.StatusDistribution {
		s.TotalBugs += g.Count
		switch Status(g.ID) {
		case StatusOpen:
			s.OpenBugs = g.Count
		case StatusResolved:
			s.ResolvedBugs = g.Count
		}
	}
	return s
}

func orderGroups(groups []GroupCount) []GroupCount {
	out := make([]GroupCount, 0, len(groups))
	for _, g := range groups {
		if g.Count > 0 {
			out = append(out, g)
		}
	}
	slices.SortFunc(out, func(a, b GroupCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
