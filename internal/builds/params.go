package builds

import "fmt"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ValidationError reports malformed pagination or filter input. It is
// raised before any cache or store access and surfaced to the caller
// verbatim.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PaginationParams selects one page of a result set.
type PaginationParams struct {
	Page int
	Size int
}

// DefaultPagination returns the first page at the default size.
func DefaultPagination() PaginationParams {
	return PaginationParams{Page: 1, Size: DefaultPageSize}
}

// Validate rejects out-of-bounds values rather than clamping them; a
// silently clamped request would claim to be the page the caller asked for.
func (p PaginationParams) Validate() error {
	if p.Page < 1 {
		return &ValidationError{Field: "page", Reason: "must be >= 1"}
	}
	if p.Size < 1 || p.Size > MaxPageSize {
		return &ValidationError{Field: "size", Reason: fmt.Sprintf("must be between 1 and %d", MaxPageSize)}
	}
	return nil
}

// Offset is the index of the first record on the page.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Size
}

// SortKey is a sortable Build field.
type SortKey string

const (
	SortNone         SortKey = ""
	SortByName       SortKey = "name"
	SortByDifficulty SortKey = "difficulty"
	SortByBuildType  SortKey = "build_type"
	SortByFeudalTime SortKey = "feudal_age_time"
	SortByCastleTime SortKey = "castle_age_time"
)

// ParseSortKey validates a raw sort_by value. Empty means insertion order.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case SortNone, SortByName, SortByDifficulty, SortByBuildType, SortByFeudalTime, SortByCastleTime:
		return SortKey(s), nil
	}
	return "", &ValidationError{Field: "sort_by", Reason: fmt.Sprintf("unknown sort key %q", s)}
}

// SortDir is the sort direction; ascending when unset.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// ParseSortDir validates a raw sort_order value.
func ParseSortDir(s string) (SortDir, error) {
	switch SortDir(s) {
	case "", SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	}
	return "", &ValidationError{Field: "sort_order", Reason: fmt.Sprintf("must be %q or %q", SortAsc, SortDesc)}
}

// FilterParams are the combinable query constraints. Nil fields impose no
// constraint; set fields compose with logical AND. Query distinguishes
// "absent" (nil) from "empty string": both match everything, but they are
// different requests and must derive different cache keys.
type FilterParams struct {
	BuildType  *BuildType
	Difficulty *Difficulty
	Query      *string
	SortKey    SortKey
	SortDir    SortDir
}

// PaginatedResponse is one page of query results plus the metadata needed
// to walk the full set.
type PaginatedResponse struct {
	Items      []Build `json:"items"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	Size       int     `json:"size"`
	TotalPages int     `json:"total_pages"`
	Cached     bool    `json:"cached"`
}

// NewPaginatedResponse slices the filtered records into the requested page.
// A page past the end yields empty items with accurate totals; that is a
// valid result, not an error.
func NewPaginatedResponse(matched []Build, p PaginationParams) PaginatedResponse {
	total := len(matched)
	totalPages := (total + p.Size - 1) / p.Size

	items := []Build{}
	if start := p.Offset(); start < total {
		end := start + p.Size
		if end > total {
			end = total
		}
		items = append(items, matched[start:end]...)
	}

	return PaginatedResponse{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		Size:       p.Size,
		TotalPages: totalPages,
	}
}
