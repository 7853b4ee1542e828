// Package status governs the event request lifecycle. All status changes go
// through one transition table with named guards, so no call site compares
// status strings by hand. A transition commits as a single atomic patch and
// is never retried automatically.
package status

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sandwichproject/coordinator/pkg/core/model"
)

// Action is an operator intent against the state machine. The followed-up and
// contact-completed actions double as the transient markers older records
// carried between statuses.
type Action string

const (
	ActionToolkitSent   Action = "toolkit_sent"
	ActionFollowedUp    Action = "followed_up"
	ActionCallCompleted Action = "contact_completed"
	ActionDeclined      Action = "declined"
	ActionCompleted     Action = "completed"
)

// Input carries the data a guarded transition needs.
type Input struct {
	Now               time.Time
	CallDetails       *model.CallDetails
	CompletionDetails *model.CompletionDetails
}

// Patch is the set of record fields a transition changed, keyed by their
// wire names. The whole patch commits as one update request.
type Patch map[string]any

// InvalidTransitionError reports an (status, action) pair the table does not
// allow.
type InvalidTransitionError struct {
	From   model.Status
	Action Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("action %q is not allowed from status %q", e.Action, e.From)
}

type guardFunc func(in *Input) error

type applyFunc func(e *model.EventRequest, in *Input, patch Patch)

type transition struct {
	from  []model.Status // empty means any status
	to    model.Status
	guard guardFunc
	apply applyFunc
}

var validate = validator.New()

var transitions = map[Action]transition{
	ActionToolkitSent: {
		from:  []model.Status{model.StatusNew},
		to:    model.StatusInProcess,
		apply: stampToolkitSent,
	},
	ActionFollowedUp: {
		from:  []model.Status{model.StatusNew},
		to:    model.StatusInProcess,
		apply: stampFollowUp,
	},
	ActionCallCompleted: {
		from:  []model.Status{model.StatusInProcess},
		to:    model.StatusScheduled,
		guard: guardCallDetails,
		apply: mergeCallDetails,
	},
	ActionDeclined: {
		to: model.StatusDeclined,
	},
	ActionCompleted: {
		from:  []model.Status{model.StatusScheduled, model.StatusCompleted},
		to:    model.StatusCompleted,
		guard: guardCompletionDetails,
		apply: mergeCompletionDetails,
	},
}

// Apply runs the transition for action against the event request. The record
// is mutated in place to the expected post-transition shape and the returned
// patch holds every changed field for a single store update. Guard failures
// return a *model.ValidationError; pairs missing from the table return an
// *InvalidTransitionError. Neither contacts the store.
func Apply(e *model.EventRequest, action Action, in Input) (Patch, error) {
	tr, ok := transitions[action]
	if !ok {
		return nil, &InvalidTransitionError{From: e.Status, Action: action}
	}
	if len(tr.from) > 0 && !statusIn(e.Status, tr.from) {
		return nil, &InvalidTransitionError{From: e.Status, Action: action}
	}

	if tr.guard != nil {
		if err := tr.guard(&in); err != nil {
			return nil, err
		}
	}
	if in.Now.IsZero() {
		in.Now = time.Now()
	}

	patch := Patch{"status": tr.to}
	e.Status = tr.to
	if tr.apply != nil {
		tr.apply(e, &in, patch)
	}
	return patch, nil
}

// CanApply reports whether action is allowed from the event's current status,
// ignoring guard data. Drives UI affordance only.
func CanApply(e *model.EventRequest, action Action) bool {
	tr, ok := transitions[action]
	if !ok {
		return false
	}
	return len(tr.from) == 0 || statusIn(e.Status, tr.from)
}

func statusIn(s model.Status, list []model.Status) bool {
	for _, candidate := range list {
		if s == candidate {
			return true
		}
	}
	return false
}

func stampToolkitSent(e *model.EventRequest, in *Input, patch Patch) {
	ts := in.Now
	e.ToolkitSentDate = &ts
	patch["toolkitSentDate"] = ts
}

func stampFollowUp(e *model.EventRequest, in *Input, patch Patch) {
	ts := in.Now
	e.FollowUpDate = &ts
	patch["followUpDate"] = ts
}

func guardCallDetails(in *Input) error {
	if in.CallDetails == nil {
		return &model.ValidationError{
			Action: string(ActionCallCompleted),
			Fields: []string{"callDetails"},
		}
	}
	return validationError(string(ActionCallCompleted), validate.Struct(in.CallDetails))
}

// mergeCallDetails folds the call bundle into the record alongside the status
// change: the bundle itself, the desired date, and the per-role capacities.
func mergeCallDetails(e *model.EventRequest, in *Input, patch Patch) {
	cd := *in.CallDetails
	e.CallDetails = &cd
	e.DesiredEventDate = cd.EventDate

	// The guard has already required both counts.
	drivers, speakers := *cd.DriversNeeded, *cd.SpeakersNeeded
	e.Role(model.RoleDriver).Needed = &drivers
	e.Role(model.RoleSpeaker).Needed = &speakers

	patch["callDetails"] = &cd
	patch["desiredEventDate"] = cd.EventDate
	patch["roles"] = e.Roles
}

func guardCompletionDetails(in *Input) error {
	if in.CompletionDetails == nil {
		return &model.ValidationError{
			Action: string(ActionCompleted),
			Fields: []string{"completionDetails"},
		}
	}
	return validationError(string(ActionCompleted), validate.Struct(in.CompletionDetails))
}

func mergeCompletionDetails(e *model.EventRequest, in *Input, patch Patch) {
	cd := *in.CompletionDetails
	e.CompletionDetails = &cd
	patch["completionDetails"] = &cd
}

// validationError converts validator output into the domain taxonomy.
func validationError(action string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate %s input: %w", action, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &model.ValidationError{Action: action, Fields: fields}
}
