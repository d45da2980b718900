package domain

import "strings"

// UrgencyLevel is a stock severity tier. Critical is the most severe.
type UrgencyLevel string

const (
	UrgencyCritical UrgencyLevel = "Critical"
	UrgencyHigh     UrgencyLevel = "High"
	UrgencyMedium   UrgencyLevel = "Medium"
	UrgencyWatch    UrgencyLevel = "Watch"
	UrgencyGood     UrgencyLevel = "Good"
)

var urgencyPriorities = map[UrgencyLevel]int{
	UrgencyCritical: 1,
	UrgencyHigh:     2,
	UrgencyMedium:   3,
	UrgencyWatch:    4,
	UrgencyGood:     5,
}

// Priority returns 1 for Critical through 5 for Good, and 5 for unknown levels.
func (l UrgencyLevel) Priority() int {
	if p, ok := urgencyPriorities[l]; ok {
		return p
	}

	return urgencyPriorities[UrgencyGood]
}

// NeedsReorder reports whether the level produces an alert.
func (l UrgencyLevel) NeedsReorder() bool {
	switch l {
	case UrgencyCritical, UrgencyHigh, UrgencyMedium, UrgencyWatch:
		return true
	}
	return false
}

// ParseUrgencyLevel returns the level for a given label (case-insensitive).
func ParseUrgencyLevel(label string) (UrgencyLevel, bool) {
	for level := range urgencyPriorities {
		if strings.EqualFold(string(level), strings.TrimSpace(label)) {
			return level, true
		}
	}

	return "", false
}
