// Package escalation tracks outreach to unresponsive contacts. The
// unresponsive flag is an axis orthogonal to event status: marking, updating,
// or resolving never touches the status field.
package escalation

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/sandwichproject/coordinator/pkg/core/model"
)

// DefaultFollowUpDelay is used when no follow-up cadence rule is configured.
const DefaultFollowUpDelay = 7 * 24 * time.Hour

// MarkInput describes one failed contact attempt.
type MarkInput struct {
	Reason model.UnresponsiveReason
	Notes  string
	// ScheduleFollowUp opts in to computing NextFollowUpDate.
	ScheduleFollowUp bool
}

// Tracker applies escalation actions to event requests. A configured RRULE
// overrides the default now+7d follow-up cadence.
type Tracker struct {
	followUpRule *rrule.RRule
	now          func() time.Time
}

// NewTracker creates a tracker. rule may be nil.
func NewTracker(rule *rrule.RRule) *Tracker {
	return &Tracker{followUpRule: rule, now: time.Now}
}

// Mark flags the contact as unresponsive: increments the attempt counter,
// stamps the attempt time, and records the reason and notes. Returns the
// changed fields as a patch for one store update.
func (t *Tracker) Mark(e *model.EventRequest, in MarkInput) (map[string]any, error) {
	if !in.Reason.IsValid() {
		return nil, &model.ValidationError{Action: "escalation:mark", Fields: []string{"unresponsiveReason"}}
	}

	now := t.now()
	esc := &e.Escalation
	esc.IsUnresponsive = true
	esc.ContactAttempts++
	esc.LastContactAttempt = &now
	esc.UnresponsiveReason = in.Reason
	esc.UnresponsiveNotes = in.Notes
	if in.ScheduleFollowUp {
		next := t.nextFollowUp(now)
		esc.NextFollowUpDate = &next
	}
	return map[string]any{"escalation": *esc}, nil
}

// Update edits the reason and notes of an existing escalation without
// counting another contact attempt.
func (t *Tracker) Update(e *model.EventRequest, reason model.UnresponsiveReason, notes string) (map[string]any, error) {
	if !reason.IsValid() {
		return nil, &model.ValidationError{Action: "escalation:update", Fields: []string{"unresponsiveReason"}}
	}
	esc := &e.Escalation
	esc.UnresponsiveReason = reason
	esc.UnresponsiveNotes = notes
	return map[string]any{"escalation": *esc}, nil
}

// Resolve clears the unresponsive flag. Historical counters and timestamps
// are preserved.
func (t *Tracker) Resolve(e *model.EventRequest) map[string]any {
	esc := &e.Escalation
	esc.IsUnresponsive = false
	esc.NextFollowUpDate = nil
	return map[string]any{"escalation": *esc}
}

// nextFollowUp picks the next occurrence of the configured cadence rule, or
// now+7d when none is configured or the rule has no future occurrence.
func (t *Tracker) nextFollowUp(now time.Time) time.Time {
	if t.followUpRule != nil {
		next := t.followUpRule.After(now, false)
		if !next.IsZero() {
			return next
		}
	}
	return now.Add(DefaultFollowUpDelay)
}
