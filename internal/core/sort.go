// Package core provides sorting of delay test results.
package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jmylchreest/clashui/internal/model"
)

// SortField represents a field to sort by.
type SortField string

const (
	SortByName  SortField = "name"
	SortByDelay SortField = "delay"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField // Field to sort by
	Order SortOrder // Sort order (asc/desc)
}

// DefaultSortOptions returns default sort options (fastest first).
func DefaultSortOptions() SortOptions {
	return SortOptions{
		Field: SortByDelay,
		Order: SortAsc,
	}
}

// SortDelays sorts delay results in place. Failed delay tests always go last,
// keeping their relative order.
func SortDelays(results []model.DelayResult, opts SortOptions) {
	if len(results) == 0 {
		return
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if (a.Delay == nil) != (b.Delay == nil) {
			return a.Delay != nil
		}
		if a.Delay == nil {
			return false
		}

		var less, greater bool
		switch opts.Field {
		case SortByName:
			less = strings.ToLower(a.Name) < strings.ToLower(b.Name)
			greater = strings.ToLower(a.Name) > strings.ToLower(b.Name)
		default:
			less = a.Delay.Delay < b.Delay.Delay
			greater = a.Delay.Delay > b.Delay.Delay
		}

		if opts.Order == SortDesc {
			return greater
		}
		return less
	})
}

// ParseSortField parses a sort field string.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "delay", "d", "":
		return SortByDelay, nil
	case "name", "n":
		return SortByName, nil
	default:
		return "", fmt.Errorf("unknown sort field %q (valid: delay, name)", s)
	}
}

// ParseSortOrder parses a sort order string.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending", "a", "":
		return SortAsc, nil
	case "desc", "descending", "d":
		return SortDesc, nil
	default:
		return "", fmt.Errorf("unknown sort order %q (valid: asc, desc)", s)
	}
}
