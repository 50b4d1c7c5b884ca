// Package orders implements the order-request workflow: lifecycle rules,
// dual-path status mutation, snapshot repository and tab classification.
package orders

import (
	"fmt"
	"strings"
)

// Status represents the lifecycle of an order request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDelivered Status = "delivered"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

// allStatuses is the canonical order used when sorting by status.
var allStatuses = [...]Status{StatusPending, StatusApproved, StatusDelivered, StatusReceived, StatusCancelled}

// AllStatuses returns every status in canonical order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses[:])
	return out
}

// ParseStatus maps raw input onto the closed status set.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(strings.ToLower(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
	}
	return s, nil
}

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDelivered, StatusReceived, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusReceived || s == StatusCancelled
}

// CanDelete reports whether an order in status s may be deleted.
func (s Status) CanDelete() bool {
	return s == StatusPending
}

// SortIndex returns the position of s in the canonical ordering.
// Unknown statuses sort last.
func SortIndex(s Status) int {
	for i, candidate := range allStatuses {
		if candidate == s {
			return i
		}
	}
	return len(allStatuses)
}

// Tab groups statuses by coarse lifecycle phase.
type Tab string

const (
	TabActive    Tab = "active"
	TabCompleted Tab = "completed"
	TabCancelled Tab = "cancelled"
)

// Tabs returns every tab in display order.
func Tabs() []Tab {
	return []Tab{TabActive, TabCompleted, TabCancelled}
}

// ParseTab maps raw input onto a tab. Empty input selects the active tab.
func ParseTab(raw string) (Tab, error) {
	switch Tab(strings.TrimSpace(strings.ToLower(raw))) {
	case "", TabActive:
		return TabActive, nil
	case TabCompleted:
		return TabCompleted, nil
	case TabCancelled:
		return TabCancelled, nil
	default:
		return "", fmt.Errorf("%w: unknown tab %q", ErrValidation, raw)
	}
}

// TabOf returns the tab an order in status s belongs to.
func TabOf(s Status) Tab {
	switch s {
	case StatusPending, StatusApproved:
		return TabActive
	case StatusDelivered, StatusReceived:
		return TabCompleted
	case StatusCancelled:
		return TabCancelled
	default:
		return ""
	}
}
