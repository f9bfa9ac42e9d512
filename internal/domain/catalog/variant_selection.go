package catalog

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// VariantSelection maps a variant group id to the chosen variant ids.
// The order of ids within a group carries no meaning.
type VariantSelection map[uuid.UUID][]uuid.UUID

// Equal compares two selections as order-independent sets per group.
// Empty groups are ignored, so {g: []} equals {}.
func (s VariantSelection) Equal(other VariantSelection) bool {
	return s.Key() == other.Key()
}

// Key returns a canonical string for the selection, stable under reordering
func (s VariantSelection) Key() string {
	groups := make([]string, 0, len(s))
	for groupID, ids := range s {
		if len(ids) == 0 {
			continue
		}
		values := make([]string, len(ids))
		for i, id := range ids {
			values[i] = id.String()
		}
		sort.Strings(values)
		groups = append(groups, groupID.String()+"="+strings.Join(dedupSorted(values), ","))
	}
	sort.Strings(groups)
	return strings.Join(groups, ";")
}

// Clone returns a deep copy
func (s VariantSelection) Clone() VariantSelection {
	if s == nil {
		return nil
	}
	out := make(VariantSelection, len(s))
	for k, v := range s {
		out[k] = append([]uuid.UUID(nil), v...)
	}
	return out
}

func dedupSorted(values []string) []string {
	out := values[:0]
	for i, v := range values {
		if i == 0 || v != values[i-1] {
			out = append(out, v)
		}
	}
	return out
}
