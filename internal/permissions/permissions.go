// Package permissions models the capability grants a manager principal holds.
//
// A Set is an immutable value: mutating operations return a new Set. The
// full-access override masks every individual flag on read and is cleared by
// any individual flag write, so a narrowed grant never keeps the broader one
// alive by accident.
package permissions

import (
	"encoding/json"
	"fmt"
)

// Capability names a single permission flag a manager may hold.
type Capability string

// Capability vocabulary. New capabilities must be added here and to All.
const (
	ManageCourses       Capability = "manage_courses"
	ManageInternships   Capability = "manage_internships"
	ApproveApplications Capability = "approve_applications"
	RejectApplications  Capability = "reject_applications"
	ViewAllApplications Capability = "view_all_applications"
	ManageNotifications Capability = "manage_notifications"
)

// All lists every known capability.
func All() []Capability {
	return []Capability{
		ManageCourses,
		ManageInternships,
		ApproveApplications,
		RejectApplications,
		ViewAllApplications,
		ManageNotifications,
	}
}

// ErrInvalidCapability reports an unrecognised capability name.
type ErrInvalidCapability struct {
	Name string
}

func (e ErrInvalidCapability) Error() string {
	return fmt.Sprintf("permissions: invalid capability %q", e.Name)
}

// Valid reports whether c belongs to the capability vocabulary.
func (c Capability) Valid() bool {
	for _, known := range All() {
		if c == known {
			return true
		}
	}
	return false
}

// Set is a value type holding capability flags plus the full-access override.
type Set struct {
	full  bool
	flags map[Capability]bool
}

// New returns an empty Set granting nothing.
func New() Set {
	return Set{}
}

// WithFullAccess returns a Set with the full-access override enabled.
func WithFullAccess() Set {
	return Set{full: true}
}

// FromFlags builds a Set from explicit flag values, rejecting unknown names.
func FromFlags(flags map[Capability]bool) (Set, error) {
	s := Set{flags: make(map[Capability]bool, len(flags))}
	for c, v := range flags {
		if !c.Valid() {
			return Set{}, ErrInvalidCapability{Name: string(c)}
		}
		s.flags[c] = v
	}
	return s, nil
}

// Has reports whether the capability is granted. Full access masks every
// individual flag; absent flags default to false.
func (s Set) Has(c Capability) bool {
	if s.full {
		return true
	}
	return s.flags[c]
}

// FullAccess reports whether the override is enabled.
func (s Set) FullAccess() bool {
	return s.full
}

// GrantFullAccess returns a copy with the full-access override enabled. The
// stored individual flags are kept as-is; Has masks through them while the
// override holds.
func (s Set) GrantFullAccess() Set {
	out := s.clone()
	out.full = true
	return out
}

// SetFlag returns a copy with one capability flag changed. Writing any
// individual flag clears the full-access override.
func (s Set) SetFlag(c Capability, value bool) (Set, error) {
	if !c.Valid() {
		return Set{}, ErrInvalidCapability{Name: string(c)}
	}
	out := s.clone()
	out.full = false
	if out.flags == nil {
		out.flags = make(map[Capability]bool, 1)
	}
	out.flags[c] = value
	return out, nil
}

// Flags returns a copy of the stored individual flags, unmasked.
func (s Set) Flags() map[Capability]bool {
	out := make(map[Capability]bool, len(s.flags))
	for c, v := range s.flags {
		out[c] = v
	}
	return out
}

func (s Set) clone() Set {
	out := Set{full: s.full}
	if s.flags != nil {
		out.flags = make(map[Capability]bool, len(s.flags))
		for c, v := range s.flags {
			out.flags[c] = v
		}
	}
	return out
}

type setJSON struct {
	FullAccess   bool                `json:"full_access"`
	Capabilities map[Capability]bool `json:"capabilities,omitempty"`
}

// MarshalJSON encodes the set for jsonb storage and request payloads.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(setJSON{FullAccess: s.full, Capabilities: s.flags})
}

// UnmarshalJSON decodes a stored set, rejecting unknown capability names.
func (s *Set) UnmarshalJSON(data []byte) error {
	var raw setJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := FromFlags(raw.Capabilities)
	if err != nil {
		return err
	}
	decoded.full = raw.FullAccess
	*s = decoded
	return nil
}
