package bug

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float(v float64) *float64 { return &v }

func TestSummarizeFourBugs(t *testing.T) {
	s := Summarize(fourBugs())

	want := Summary{
		TotalBugs:    4,
		OpenBugs:     2,
		ResolvedBugs: 1,
		StatusDistribution: []GroupCount{
			{ID: "open", Count: 2, AvgPriority: float(2)},
			{ID: "closed", Count: 1, AvgPriority: float(4)},
			{ID: "resolved", Count: 1, AvgPriority: float(3)},
		},
		PriorityDistribution: []GroupCount{
			{ID: "high", Count: 2},
			{ID: "critical", Count: 1},
			{ID: "low", Count: 1},
		},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Fatalf("Summarize mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)

	assert.Equal(t, int64(0), s.TotalBugs)
	require.NotNil(t, s.StatusDistribution)
	require.NotNil(t, s.PriorityDistribution)
	assert.Empty(t, s.StatusDistribution)
	assert.Empty(t, s.PriorityDistribution)
}

func TestDistributionsSumToTotal(t *testing.T) {
	bugs := append(fourBugs(),
		fixture(5, "E", StatusInProgress, PriorityMedium),
		fixture(6, "F", StatusOpen, PriorityCritical),
	)
	s := Summarize(bugs)

	var byStatus, byPriority int64
	for _, g := range s.StatusDistribution {
		byStatus += g.Count
	}
	for _, g := range s.PriorityDistribution {
		byPriority += g.Count
	}
	assert.Equal(t, int64(len(bugs)), s.TotalBugs)
	assert.Equal(t, s.TotalBugs, byStatus)
	assert.Equal(t, s.TotalBugs, byPriority)
}

func TestNewSummaryDropsEmptyGroups(t *testing.T) {
	s := NewSummary(
		[]GroupCount{{ID: "open", Count: 0}, {ID: "resolved", Count: 3}},
		[]GroupCount{{ID: "low", Count: 3}, {ID: "high", Count: 0}},
	)

	assert.Equal(t, int64(3), s.TotalBugs)
	assert.Equal(t, int64(0), s.OpenBugs)
	assert.Equal(t, int64(3), s.ResolvedBugs)
	assert.Len(t, s.StatusDistribution, 1)
	assert.Len(t, s.PriorityDistribution, 1)
}

func TestPriorityWeight(t *testing.T) {
	assert.Equal(t, 4.0, PriorityCritical.Weight())
	assert.Equal(t, 3.0, PriorityHigh.Weight())
	assert.Equal(t, 2.0, PriorityMedium.Weight())
	assert.Equal(t, 1.0, PriorityLow.Weight())
	assert.Equal(t, 2.0, Priority("urgent").Weight())
}
