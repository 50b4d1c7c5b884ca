package orders

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SortBy selects the ordering applied by Classify.
type SortBy string

const (
	SortByDate   SortBy = "date"
	SortByStatus SortBy = "status"
)

// SortDir selects ascending or descending order.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// Filter narrows and orders a snapshot.
type Filter struct {
	Tab     Tab
	Status  Status
	Search  string
	SortBy  SortBy
	SortDir SortDir
}

// Counts holds per-tab totals.
type Counts struct {
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}

// Count tallies orders per tab in one pass.
func Count(orders []Order) Counts {
	var c Counts
	for _, o := range orders {
		switch TabOf(o.Status) {
		case TabActive:
			c.Active++
		case TabCompleted:
			c.Completed++
		case TabCancelled:
			c.Cancelled++
		}
	}
	c.Total = c.Active + c.Completed + c.Cancelled
	return c
}

// StatusOptions lists the statuses offered as a secondary filter within tab.
func StatusOptions(tab Tab) []Status {
	var out []Status
	for _, s := range allStatuses {
		if TabOf(s) == tab {
			out = append(out, s)
		}
	}
	return out
}

// Classify returns the orders of f.Tab, optionally narrowed to f.Status and
// f.Search, sorted per f. The input slice is never modified.
func Classify(orders []Order, f Filter) []Order {
	tab := f.Tab
	if tab == "" {
		tab = TabActive
	}
	needle := fold(f.Search)

	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if TabOf(o.Status) != tab {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if needle != "" && !matches(o, needle) {
			continue
		}
		out = append(out, o.Clone())
	}

	sortBy, dir := normaliseSort(f.SortBy, f.SortDir)
	var less func(a, b Order) bool
	switch sortBy {
	case SortByStatus:
		less = func(a, b Order) bool { return SortIndex(a.Status) < SortIndex(b.Status) }
	default:
		less = func(a, b Order) bool { return a.RequestDate.Before(b.RequestDate) }
	}
	sort.SliceStable(out, func(i, j int) bool {
		if dir == SortDesc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func normaliseSort(by SortBy, dir SortDir) (SortBy, SortDir) {
	if by != SortByStatus {
		by = SortByDate
	}
	if dir != SortAsc && dir != SortDesc {
		if by == SortByDate {
			dir = SortDesc
		} else {
			dir = SortAsc
		}
	}
	return by, dir
}

func matches(o Order, needle string) bool {
	return strings.Contains(fold(o.RequesterName), needle) || strings.Contains(fold(o.Subdistrict), needle)
}

// fold lowercases s and strips combining marks so "São" matches "sao".
func fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}
