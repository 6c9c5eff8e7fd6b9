package issueview

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
)

// SortKey selects the ordering of an issue list.
type SortKey string

const (
	SortNewest   SortKey = "newest"
	SortOldest   SortKey = "oldest"
	SortPriority SortKey = "priority"
	// SortStatus orders by the raw status string, not by workflow stage.
	SortStatus SortKey = "status"
)

// DefaultSort is used when no key is supplied.
const DefaultSort = SortNewest

var sortKeys = []SortKey{SortNewest, SortOldest, SortPriority, SortStatus}

// SortKeys lists the supported keys.
func SortKeys() []SortKey {
	out := make([]SortKey, len(sortKeys))
	copy(out, sortKeys)
	return out
}

// ParseSortKey validates a sort key from user input. Empty input yields DefaultSort.
func ParseSortKey(raw string) (SortKey, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return DefaultSort, nil
	}
	for _, key := range sortKeys {
		if string(key) == trimmed {
			return key, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported sort key %q (want one of %s)", raw, sortKeyList()))
}

func sortKeyList() string {
	keys := SortKeys()
	names := make([]string, len(keys))
	for i, key := range keys {
		names[i] = string(key)
	}
	return strings.Join(names, ", ")
}

// Sort returns a stably sorted copy of issues. An unknown key returns the
// copy in input order.
func Sort(issues []models.Issue, key SortKey) []models.Issue {
	out := clone(issues)
	var less func(a, b models.Issue) bool
	switch key {
	case SortNewest:
		less = func(a, b models.Issue) bool { return a.CreatedAt.After(b.CreatedAt) }
	case SortOldest:
		less = func(a, b models.Issue) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortPriority:
		less = func(a, b models.Issue) bool { return a.Priority > b.Priority }
	case SortStatus:
		less = func(a, b models.Issue) bool { return a.Status < b.Status }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
