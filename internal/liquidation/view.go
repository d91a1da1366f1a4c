package liquidation

import (
	"sort"
	"strings"
	"time"
)

const filterAll = "all"

type DateSpan string

const (
	DateAll     DateSpan = "all"
	DateToday   DateSpan = "today"
	DateWeek    DateSpan = "week"
	DateMonth   DateSpan = "month"
	DateQuarter DateSpan = "quarter"
)

func ParseDateSpan(s string) (DateSpan, error) {
	switch DateSpan(s) {
	case "", DateAll:
		return DateAll, nil
	case DateToday, DateWeek, DateMonth, DateQuarter:
		return DateSpan(s), nil
	}
	return "", ErrInvalidDateSpan
}

// Since returns the inclusive lower bound of the span relative to now.
func (d DateSpan) Since(now time.Time) (time.Time, bool) {
	switch d {
	case DateToday:
		y, m, day := now.Date()
		return time.Date(y, m, day, 0, 0, 0, 0, now.Location()), true
	case DateWeek:
		return now.AddDate(0, 0, -7), true
	case DateMonth:
		return now.AddDate(0, -1, 0), true
	case DateQuarter:
		return now.AddDate(0, -3, 0), true
	}
	return time.Time{}, false
}

// Filter holds the independent list predicates. Empty or "all" disables a
// predicate.
type Filter struct {
	Search   string   `json:"search"`
	Status   string   `json:"status"`
	Category string   `json:"category"`
	Date     DateSpan `json:"date"`
}

func (f Filter) Match(r *Request, now time.Time) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !containsFold(q, r.Title, r.Description, r.Category, r.Requester.FullName) {
			return false
		}
	}
	if f.Status != "" && f.Status != filterAll && string(r.Status) != f.Status {
		return false
	}
	if f.Category != "" && f.Category != filterAll && r.Category != f.Category {
		return false
	}
	if since, ok := f.Date.Since(now); ok && r.SubmittedDate.Before(since) {
		return false
	}
	return true
}

func containsFold(q string, fields ...string) bool {
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

type SortKey string

const (
	SortSubmittedDate SortKey = "submitted_date"
	SortTitle         SortKey = "title"
	SortTotalAmount   SortKey = "total_amount"
	SortStatus        SortKey = "status"
	SortCategory      SortKey = "category"
	SortCurrency      SortKey = "currency"
	// SortUserName orders by requester display name.
	SortUserName SortKey = "user_name"
)

var sortKeys = []SortKey{SortSubmittedDate, SortTitle, SortTotalAmount, SortStatus, SortCategory, SortCurrency, SortUserName}

type Sort struct {
	Key  SortKey `json:"key"`
	Desc bool    `json:"desc"`
}

var DefaultSort = Sort{Key: SortSubmittedDate, Desc: true}

// ParseSort reads a key and an "asc"/"desc" order. An empty key yields the
// default sort; an empty order means descending.
func ParseSort(key, order string) (Sort, error) {
	if key == "" {
		key = string(DefaultSort.Key)
	}
	s := Sort{Key: SortKey(key), Desc: true}
	valid := false
	for _, k := range sortKeys {
		if k == s.Key {
			valid = true
			break
		}
	}
	if !valid {
		return Sort{}, ErrInvalidSortKey
	}
	switch strings.ToLower(order) {
	case "", "desc":
	case "asc":
		s.Desc = false
	default:
		return Sort{}, ErrInvalidSortKey
	}
	return s, nil
}

func compareRequests(a, b *Request, key SortKey) int {
	switch key {
	case SortTitle:
		return compareFold(a.Title, b.Title)
	case SortTotalAmount:
		return a.TotalAmount.Cmp(b.TotalAmount)
	case SortStatus:
		return compareFold(string(a.Status), string(b.Status))
	case SortCategory:
		return compareFold(a.Category, b.Category)
	case SortCurrency:
		return compareFold(a.Currency, b.Currency)
	case SortUserName:
		return compareFold(a.RequesterName(), b.RequesterName())
	default:
		return a.SubmittedDate.Compare(b.SubmittedDate)
	}
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// Apply returns the rows matching the filter in sort order. The input slice
// is not modified.
func Apply(rows []*Request, filter Filter, s Sort, now time.Time) []*Request {
	visible := make([]*Request, 0, len(rows))
	for _, r := range rows {
		if filter.Match(r, now) {
			visible = append(visible, r)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		c := compareRequests(visible[i], visible[j], s.Key)
		if s.Desc {
			return c > 0
		}
		return c < 0
	})
	return visible
}

// Categories lists the distinct non-empty categories of the row set.
func Categories(rows []*Request) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range rows {
		if r.Category == "" {
			continue
		}
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	sort.Strings(out)
	return out
}

// Selection is an ordered set of selected row ids.
type Selection struct {
	ids   []string
	index map[string]struct{}
}

func NewSelection() *Selection {
	return &Selection{index: make(map[string]struct{})}
}

func (s *Selection) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *Selection) Add(id string) {
	if s.Has(id) {
		return
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
}

// Toggle flips one id and reports whether it is now selected.
func (s *Selection) Toggle(id string) bool {
	if !s.Has(id) {
		s.Add(id)
		return true
	}
	delete(s.index, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	return false
}

func (s *Selection) Clear() {
	s.ids = nil
	s.index = make(map[string]struct{})
}

func (s *Selection) IDs() []string {
	return append([]string(nil), s.ids...)
}

func (s *Selection) Len() int {
	return len(s.ids)
}

// EditableFields are the columns accepted by inline editing. Status is
// further restricted to reviewers.
var EditableFields = []string{"title", "description", "category", "notes", "currency", "total_amount", "status"}

func isEditable(field string) bool {
	for _, f := range EditableFields {
		if f == field {
			return true
		}
	}
	return false
}

// EditSession is the single open inline edit.
type EditSession struct {
	RowID string `json:"row_id"`
	Field string `json:"field"`
	Value string `json:"value"`
}
