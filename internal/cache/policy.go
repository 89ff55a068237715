// file: internal/cache/policy.go
// version: 1.0.0
// guid: 7a3e5c91-0b2d-4f86-a4c7-d91e6b2f0a38

package cache

import "fmt"

// Policy controls whether a request may read from and write to a cache.
type Policy string

const (
	PolicyReadWrite Policy = "read-write"
	PolicyReadOnly  Policy = "read-only"
	PolicyWriteOnly Policy = "write-only"
	PolicyDisabled  Policy = "disabled"
)

// ParsePolicy validates a policy name. An empty string means read-write.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case "":
		return PolicyReadWrite, nil
	case PolicyReadWrite, PolicyReadOnly, PolicyWriteOnly, PolicyDisabled:
		return p, nil
	default:
		return PolicyDisabled, fmt.Errorf("unknown cache policy %q", s)
	}
}

// CanRead reports whether cached values may be served.
func (p Policy) CanRead() bool {
	return p == PolicyReadWrite || p == PolicyReadOnly
}

// CanWrite reports whether fresh values may be stored.
func (p Policy) CanWrite() bool {
	return p == PolicyReadWrite || p == PolicyWriteOnly
}
