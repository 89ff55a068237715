// file: internal/quota/priority.go
// version: 1.0.0
// guid: 3f9a2c6e-81b4-4d07-9e5a-c2d8f71b4a90

package quota

import "strings"

// Priority is the caller tier used for soft-ceiling admission.
type Priority int

// Priority levels. The zero value is the most conservative tier.
const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// ParsePriority maps a metadata tag onto a Priority. Anything unrecognised,
// including an empty tag, is treated as low.
func ParsePriority(tag string) Priority {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "high", "critical", "interactive":
		return PriorityHigh
	case "medium", "normal":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}
