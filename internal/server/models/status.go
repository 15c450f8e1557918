package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the lifecycle state of an account.
//
//	Unverified -> Active      email verification
//	Active    <-> Blocked     administrative block/unblock
type Status int16

const (
	StatusUnverified Status = iota
	StatusActive
	StatusBlocked
)

var statusNames = [...]string{
	StatusUnverified: "unverified",
	StatusActive:     "active",
	StatusBlocked:    "blocked",
}

func (s Status) String() string {
	if s.Valid() {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int16(s))
}

// Valid reports whether s is one of the defined states.
func (s Status) Valid() bool {
	return s >= StatusUnverified && s <= StatusBlocked
}

// ParseStatus is the inverse of String, case-insensitive.
func ParseStatus(v string) (Status, error) {
	for i, name := range statusNames {
		if strings.EqualFold(v, name) {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", v)
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := ParseStatus(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// StatusFilter selects accounts by status, either equal to Status or, with
// Negate set, different from it.
type StatusFilter struct {
	Status Status
	Negate bool
}

// StatusIs matches accounts whose status equals s.
func StatusIs(s Status) StatusFilter { return StatusFilter{Status: s} }

// StatusIsNot matches accounts whose status differs from s.
func StatusIsNot(s Status) StatusFilter { return StatusFilter{Status: s, Negate: true} }

// Match applies the filter to s.
func (f StatusFilter) Match(s Status) bool {
	return (s == f.Status) != f.Negate
}
