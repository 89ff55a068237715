// file: internal/orchestrator/ordering.go
// version: 1.0.0
// guid: 6f3d8a1b-c027-4e95-b4a6-0e9c2d7f5b18

package orchestrator

import (
	"cmp"
	"slices"

	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
)

// orderCandidates sorts ds, which arrive in registration order. Named
// providers come first in list order; the rest keep registration order.
// With freeFirst the provider type is the primary key.
func orderCandidates(ds []provider.Descriptor, priority []string, freeFirst bool) []provider.Descriptor {
	out := slices.Clone(ds)
	if len(priority) == 0 && !freeFirst {
		return out
	}
	rank := make(map[string]int, len(priority))
	for i, name := range priority {
		if _, dup := rank[name]; !dup {
			rank[name] = i
		}
	}
	position := func(d provider.Descriptor) int {
		if i, ok := rank[d.Name]; ok {
			return i
		}
		return len(priority)
	}
	slices.SortStableFunc(out, func(a, b provider.Descriptor) int {
		if freeFirst {
			if c := cmp.Compare(a.Type.Rank(), b.Type.Rank()); c != 0 {
				return c
			}
		}
		return cmp.Compare(position(a), position(b))
	})
	return out
}
