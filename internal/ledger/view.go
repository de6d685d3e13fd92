package ledger

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// StatusFilter selects which statuses are visible.
type StatusFilter string

const (
	FilterAll        StatusFilter = "All"
	FilterDepleted   StatusFilter = "Depleted"
	FilterRunningLow StatusFilter = "Running Low"

	// FilterCart shows everything still to buy: depleted plus
	// running low.
	FilterCart StatusFilter = "Shopping Cart"
)

// ValidStatusFilter reports whether f is one of the selectable
// filters.
func ValidStatusFilter(f StatusFilter) bool {
	switch f {
	case FilterAll, FilterDepleted, FilterRunningLow, FilterCart:
		return true
	}
	return false
}

func (f StatusFilter) matches(s Status) bool {
	switch f {
	case FilterAll, "":
		return true
	case FilterCart:
		return s == StatusDepleted || s == StatusRunningLow
	default:
		return Status(f) == s
	}
}

// SortField selects the sort key for the visible list.
type SortField string

const (
	SortByName     SortField = "name"
	SortByCategory SortField = "category"
	SortByStatus   SortField = "status"
	SortByPrice    SortField = "cheapestPrice"
	SortByStore    SortField = "store"
)

// ValidSortField reports whether f is a known sort key.
func ValidSortField(f SortField) bool {
	switch f {
	case SortByName, SortByCategory, SortByStatus, SortByPrice, SortByStore:
		return true
	}
	return false
}

// Direction orders a sort ascending or descending.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ViewMode is either a status filter or a sort order, never both.
// Selecting one replaces the other, so the rule that picking a sort
// resets the filter to All (and vice versa) holds by construction.
type ViewMode struct {
	filter StatusFilter
	sorted bool
	field  SortField
	dir    Direction
}

// FilterMode selects a status filter; any active sort is discarded.
func FilterMode(f StatusFilter) ViewMode {
	return ViewMode{filter: f}
}

// SortMode selects a sort order; the status filter resets to All.
func SortMode(field SortField, dir Direction) ViewMode {
	if dir != Descending {
		dir = Ascending
	}
	return ViewMode{filter: FilterAll, sorted: true, field: field, dir: dir}
}

// DefaultView shows everything, unsorted.
func DefaultView() ViewMode {
	return FilterMode(FilterAll)
}

// Sort returns the active sort order, if any.
func (m ViewMode) Sort() (SortField, Direction, bool) {
	return m.field, m.dir, m.sorted
}

// Filter returns the active status filter. A zero ViewMode filters
// nothing.
func (m ViewMode) Filter() StatusFilter {
	if m.filter == "" {
		return FilterAll
	}
	return m.filter
}

// Label describes the view for stamping onto logged receipts.
func (m ViewMode) Label(search string) string {
	label := string(m.Filter())
	if m.sorted {
		label = fmt.Sprintf("sort:%s-%s", m.field, m.dir)
	}
	if term := strings.TrimSpace(search); term != "" {
		label = fmt.Sprintf("%s search:%q", label, term)
	}
	return label
}

// Projection is the visible slice of the item list plus the
// aggregates derived from exactly that slice.
type Projection struct {
	Items          []Item  `json:"items"`
	VisibleCount   int     `json:"visibleCount"`
	EstimatedTotal float64 `json:"estimatedTotal"`
}

// ApplyView derives the visible projection from raw items: search
// substring first, status filter second, stable sort last when the
// mode carries one. Items without a usable price cost 0 toward the
// total but sort as infinitely expensive.
func ApplyView(items []Item, search string, mode ViewMode) Projection {
	term := strings.ToLower(strings.TrimSpace(search))
	visible := make([]Item, 0, len(items))
	for _, item := range items {
		if term != "" && !strings.Contains(strings.ToLower(item.Name), term) {
			continue
		}
		if !mode.Filter().matches(item.Status) {
			continue
		}
		visible = append(visible, item)
	}

	if field, dir, ok := mode.Sort(); ok {
		sign := 1
		if dir == Descending {
			sign = -1
		}
		sort.SliceStable(visible, func(i, j int) bool {
			return sign*compareItems(visible[i], visible[j], field) < 0
		})
	}

	total := 0.0
	for _, item := range visible {
		cost, _ := lineCost(item)
		total += cost
	}
	return Projection{Items: visible, VisibleCount: len(visible), EstimatedTotal: total}
}

func compareItems(a, b Item, field SortField) int {
	switch field {
	case SortByCategory:
		return compareFold(a.Category, b.Category)
	case SortByStatus:
		return statusRank[a.Status] - statusRank[b.Status]
	case SortByPrice:
		return compareFloat(sortCost(a), sortCost(b))
	case SortByStore:
		return compareFold(CheapestOption(a).StoreName, CheapestOption(b).StoreName)
	default:
		return compareFold(a.Name, b.Name)
	}
}

// sortCost is lineCost with missing prices pushed to the end of an
// ascending sort.
func sortCost(item Item) float64 {
	if cost, ok := lineCost(item); ok {
		return cost
	}
	return math.Inf(1)
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
