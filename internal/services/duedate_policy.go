package services

import (
	"strings"

	"planner/internal/core"
)

// EffectiveAmount applies due-date zeroing: a planned amount whose due date
// has passed counts as zero unless (entityID, dueDate) was overridden. It
// is evaluated at read time and never written back.
func EffectiveAmount(value core.Money, dueDate *core.Date, today core.Date, entityID string, overrides core.OverrideSet) core.Money {
	if dueDate == nil || dueDate.IsZero() {
		return value
	}
	if overrides.Has(core.OverrideKey{EntityID: entityID, Date: *dueDate}) {
		return value
	}
	if today.After(*dueDate) {
		return core.Money{}
	}
	return value
}

// ParseDueDate parses an ISO date and returns nil for empty or unparseable
// input, which EffectiveAmount treats as "no due date".
func ParseDueDate(s string) *core.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if len(s) > 10 {
		s = s[:10]
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return nil
	}
	return &d
}
