package models

import (
	"fmt"
	"strings"
)

// LinkMatchMode decides when a navigation item counts as active for the current URL
type LinkMatchMode string

const (
	LinkMatchExact  LinkMatchMode = "Exact"  // Active only when the URL equals the link
	LinkMatchPrefix LinkMatchMode = "Prefix" // Active for any URL under the link
)

// String implements fmt.Stringer for logging
func (m LinkMatchMode) String() string {
	if m == "" {
		return "unset"
	}
	return string(m)
}

// IsValid returns true if the mode is a known value
func (m LinkMatchMode) IsValid() bool {
	switch m {
	case LinkMatchExact, LinkMatchPrefix:
		return true
	}
	return false
}

// ParseLinkMatchMode parses a mode name case-insensitively.
// "All" is accepted as the legacy name for Exact.
func ParseLinkMatchMode(s string) (LinkMatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact", "all":
		return LinkMatchExact, nil
	case "prefix":
		return LinkMatchPrefix, nil
	}
	return "", fmt.Errorf("unknown link match mode %q (want Exact or Prefix)", s)
}
