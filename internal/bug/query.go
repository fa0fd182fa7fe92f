package bug

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	DefaultSort  = "-createdAt"

	// MaxPage keeps (page-1)*limit inside int for any limit up to MaxLimit.
	MaxPage = math.MaxInt / MaxLimit
)

// Query parameter names shared by the HTTP handler and the client.
const (
	ParamStatus     = "status"
	ParamPriority   = "priority"
	ParamSearch     = "search"
	ParamReportedBy = "reportedBy"
	ParamAssignedTo = "assignedTo"
	ParamSort       = "sort"
	ParamPage       = "page"
	ParamLimit      = "limit"
)

// FilterInput is the raw, optional list query. A nil field is absent.
type FilterInput struct {
	Status     *string
	Priority   *string
	Search     *string
	ReportedBy *string
	AssignedTo *string
	Sort       *string
	Page       *int
	Limit      *int
}

// SortKey orders results by one field.
type SortKey struct {
	Field string
	Desc  bool
}

func (k SortKey) String() string {
	if k.Desc {
		return "-" + k.Field
	}
	return k.Field
}

// Descriptor is a normalized list query. Every field has a concrete value except the
// optional filters, which are nil when absent.
type Descriptor struct {
	Status     *Status
	Priority   *Priority
	Search     *string
	ReportedBy *string
	AssignedTo *string
	Sort       []SortKey
	Page       int
	Limit      int
}

// Build normalizes a FilterInput. It never fails: out-of-range paging values are clamped,
// blank strings count as absent, invalid UTF-8 is replaced and unknown enum or sort values
// pass through unchanged.
func Build(in FilterInput) Descriptor {
	d := Descriptor{
		Search:     present(in.Search),
		ReportedBy: present(in.ReportedBy),
		AssignedTo: present(in.AssignedTo),
		Page:       DefaultPage,
		Limit:      DefaultLimit,
	}
	if s := present(in.Status); s != nil {
		status := Status(*s)
		d.Status = &status
	}
	if p := present(in.Priority); p != nil {
		priority := Priority(*p)
		d.Priority = &priority
	}
	if in.Page != nil && *in.Page >= 1 {
		d.Page = min(*in.Page, MaxPage)
	}
	if in.Limit != nil && *in.Limit >= 1 {
		d.Limit = *in.Limit
	}
	d = d.Clamp(MaxLimit)

	sort := DefaultSort
	if s := present(in.Sort); s != nil {
		sort = *s
	}
	d.Sort = ParseSort(sort)
	if len(d.Sort) == 0 {
		d.Sort = ParseSort(DefaultSort)
	}
	return d
}

// Clamp caps the page size at maxLimit.
func (d Descriptor) Clamp(maxLimit int) Descriptor {
	if maxLimit > 0 && d.Limit > maxLimit {
		d.Limit = maxLimit
	}
	return d
}

// Skip is the number of matching records before the requested page. It saturates at
// math.MaxInt for descriptors built without Build.
func (d Descriptor) Skip() int {
	if d.Page <= 1 || d.Limit <= 0 {
		return 0
	}
	if d.Page-1 > math.MaxInt/d.Limit {
		return math.MaxInt
	}
	return (d.Page - 1) * d.Limit
}

// ParseSort reads a comma separated sort expression such as "-priority,title".
func ParseSort(raw string) []SortKey {
	var keys []SortKey
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		part = strings.TrimSpace(strings.TrimPrefix(part, "-"))
		if part == "" {
			continue
		}
		keys = append(keys, SortKey{Field: part, Desc: desc})
	}
	return keys
}

// SortString renders the sort keys back into their wire form.
func (d Descriptor) SortString() string {
	parts := make([]string, 0, len(d.Sort))
	for _, k := range d.Sort {
		parts = append(parts, k.String())
	}
	return strings.Join(parts, ",")
}

// Values encodes the descriptor as query parameters. Absent filters are omitted.
func (d Descriptor) Values() url.Values {
	v := url.Values{}
	if d.Status != nil {
		v.Set(ParamStatus, string(*d.Status))
	}
	if d.Priority != nil {
		v.Set(ParamPriority, string(*d.Priority))
	}
	if d.Search != nil {
		v.Set(ParamSearch, *d.Search)
	}
	if d.ReportedBy != nil {
		v.Set(ParamReportedBy, *d.ReportedBy)
	}
	if d.AssignedTo != nil {
		v.Set(ParamAssignedTo, *d.AssignedTo)
	}
	if len(d.Sort) > 0 {
		v.Set(ParamSort, d.SortString())
	}
	v.Set(ParamPage, strconv.Itoa(d.Page))
	v.Set(ParamLimit, strconv.Itoa(d.Limit))
	return v
}

// ParseValues reads query parameters into a FilterInput. Non-numeric page or limit values
// are treated as absent.
func ParseValues(v url.Values) FilterInput {
	return FilterInput{
		Status:     param(v, ParamStatus),
		Priority:   param(v, ParamPriority),
		Search:     param(v, ParamSearch),
		ReportedBy: param(v, ParamReportedBy),
		AssignedTo: param(v, ParamAssignedTo),
		Sort:       param(v, ParamSort),
		Page:       intParam(v, ParamPage),
		Limit:      intParam(v, ParamLimit),
	}
}

func param(v url.Values, key string) *string {
	values, ok := v[key]
	if !ok || len(values) == 0 {
		return nil
	}
	s := values[0]
	return &s
}

func intParam(v url.Values, key string) *int {
	s := param(v, key)
	if s == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(*s))
	if err != nil {
		return nil
	}
	return &n
}

func present(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(strings.ToValidUTF8(*s, "\uFFFD"))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Clone returns a copy that shares no pointers with in.
func (in FilterInput) Clone() FilterInput {
	return FilterInput{
		Status:     cloneRef(in.Status),
		Priority:   cloneRef(in.Priority),
		Search:     cloneRef(in.Search),
		ReportedBy: cloneRef(in.ReportedBy),
		AssignedTo: cloneRef(in.AssignedTo),
		Sort:       cloneRef(in.Sort),
		Page:       cloneRef(in.Page),
		Limit:      cloneRef(in.Limit),
	}
}

func cloneRef[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
