package model

import "time"

// Status is the lifecycle state of an event request.
type Status string

const (
	StatusNew       Status = "new"
	StatusInProcess Status = "in_process"
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusDeclined  Status = "declined"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusInProcess, StatusScheduled, StatusCompleted, StatusDeclined:
		return true
	}
	return false
}

// PersonRole identifies one of the assignable roles on an event request.
type PersonRole string

const (
	RoleDriver    PersonRole = "driver"
	RoleSpeaker   PersonRole = "speaker"
	RoleVolunteer PersonRole = "volunteer"
)

// Roles lists every assignable role in a stable order.
var Roles = []PersonRole{RoleDriver, RoleSpeaker, RoleVolunteer}

func (r PersonRole) IsValid() bool {
	return r == RoleDriver || r == RoleSpeaker || r == RoleVolunteer
}

// AssignmentDetail records how a person came to hold a role on an event.
type AssignmentDetail struct {
	PersonID     string    `json:"personId"`
	Name         string    `json:"name"`
	AssignedAt   time.Time `json:"assignedAt"`
	AssignedBy   string    `json:"assignedBy"`
	SelfAssigned bool      `json:"selfAssigned"`
}

// RoleState holds the three mirrored assignment structures for one role.
// The id set and the detail map always cover the same people; LegacyNames is
// a display-name array kept in sync for backward compatibility with older
// records. The assignment engine is the only writer.
type RoleState struct {
	// Needed is the capacity for this role. Nil means unbounded.
	Needed      *int                        `json:"needed,omitempty"`
	AssignedIDs []string                    `json:"assignedIds"`
	Details     map[string]AssignmentDetail `json:"details"`
	LegacyNames []string                    `json:"assignments"`
}

// Transportation holds the stored fields of all three delivery plan shapes.
// Shapes are resolved by priority at read time; writing one shape never
// clears another's fields.
type Transportation struct {
	OvernightStorageRequired bool   `json:"overnightStorageRequired"`
	StorageLocation          string `json:"storageLocation,omitempty"`
	TransportDriver1         string `json:"transportDriver1,omitempty"`
	TransportDriver2         string `json:"transportDriver2,omitempty"`
	FinalRecipientOrg        string `json:"finalRecipientOrg,omitempty"`
	FinalDeliveryMethod      string `json:"finalDeliveryMethod,omitempty"`
	PickupOrganization       string `json:"pickupOrganization,omitempty"`
}

// UnresponsiveReason is an enumerated code for why a contact is unresponsive.
type UnresponsiveReason string

const (
	ReasonNoAnswer     UnresponsiveReason = "no_answer"
	ReasonVoicemail    UnresponsiveReason = "voicemail_full"
	ReasonEmailBounced UnresponsiveReason = "email_bounced"
	ReasonWrongContact UnresponsiveReason = "wrong_contact"
	ReasonOther        UnresponsiveReason = "other"
)

func (r UnresponsiveReason) IsValid() bool {
	switch r {
	case ReasonNoAnswer, ReasonVoicemail, ReasonEmailBounced, ReasonWrongContact, ReasonOther:
		return true
	}
	return false
}

// Escalation tracks unresponsive-contact outreach, independent of Status.
type Escalation struct {
	IsUnresponsive     bool               `json:"isUnresponsive"`
	ContactAttempts    int                `json:"contactAttempts"`
	LastContactAttempt *time.Time         `json:"lastContactAttempt,omitempty"`
	UnresponsiveReason UnresponsiveReason `json:"unresponsiveReason,omitempty"`
	UnresponsiveNotes  string             `json:"unresponsiveNotes,omitempty"`
	NextFollowUpDate   *time.Time         `json:"nextFollowUpDate,omitempty"`
}

// CallDetails is the bundle a "call completed" transition must supply.
// All fields are required for the in_process -> scheduled transition.
type CallDetails struct {
	EventDate        string `json:"eventDate" validate:"required"`
	AttendeeEstimate int    `json:"attendeeEstimate" validate:"required,min=1"`
	SandwichEstimate int    `json:"sandwichEstimate" validate:"required,min=1"`
	DriversNeeded    *int   `json:"driversNeeded" validate:"required,min=0"`
	SpeakersNeeded   *int   `json:"speakersNeeded" validate:"required,min=0"`
	HasRefrigeration *bool  `json:"hasRefrigeration" validate:"required"`
	Address          string `json:"address" validate:"required"`
}

// CompletionDetails records the actual outcome of a held event.
type CompletionDetails struct {
	ActualDate    string `json:"actualDate" validate:"required"`
	AttendeeCount int    `json:"attendeeCount" validate:"min=0"`
	Notes         string `json:"notes,omitempty"`
}

// EventRequest is the record every component operates on.
type EventRequest struct {
	ID int64 `json:"id"`

	// Contact fields
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`

	DesiredEventDate string `json:"desiredEventDate,omitempty"`
	Status           Status `json:"status"`

	// Per-role assignment state; absent roles are treated as empty.
	Roles map[PersonRole]*RoleState `json:"roles"`

	Transportation Transportation `json:"transportation"`
	Escalation     Escalation     `json:"escalation"`

	// Stamped by status transitions
	ToolkitSentDate   *time.Time         `json:"toolkitSentDate,omitempty"`
	FollowUpDate      *time.Time         `json:"followUpDate,omitempty"`
	CallDetails       *CallDetails       `json:"callDetails,omitempty"`
	CompletionDetails *CompletionDetails `json:"completionDetails,omitempty"`

	PlanningNotes string `json:"planningNotes,omitempty"`
}

// Role returns the assignment state for a role, creating an empty state on
// the record if it does not exist yet.
func (e *EventRequest) Role(role PersonRole) *RoleState {
	if e.Roles == nil {
		e.Roles = make(map[PersonRole]*RoleState)
	}
	rs, ok := e.Roles[role]
	if !ok {
		rs = &RoleState{}
		e.Roles[role] = rs
	}
	if rs.Details == nil {
		rs.Details = make(map[string]AssignmentDetail)
	}
	// Empty arrays must stay arrays on the wire; a null assignedIds breaks
	// the store's conditional count check.
	if rs.AssignedIDs == nil {
		rs.AssignedIDs = []string{}
	}
	if rs.LegacyNames == nil {
		rs.LegacyNames = []string{}
	}
	return rs
}

// Clone returns a deep copy of the event request. The optimistic cache uses
// clones as pre-mutation snapshots.
func (e *EventRequest) Clone() *EventRequest {
	if e == nil {
		return nil
	}
	out := *e

	out.Roles = make(map[PersonRole]*RoleState, len(e.Roles))
	for role, rs := range e.Roles {
		cp := &RoleState{}
		if rs.Needed != nil {
			n := *rs.Needed
			cp.Needed = &n
		}
		cp.AssignedIDs = cloneStrings(rs.AssignedIDs)
		cp.LegacyNames = cloneStrings(rs.LegacyNames)
		cp.Details = make(map[string]AssignmentDetail, len(rs.Details))
		for id, d := range rs.Details {
			cp.Details[id] = d
		}
		out.Roles[role] = cp
	}

	out.ToolkitSentDate = cloneTime(e.ToolkitSentDate)
	out.FollowUpDate = cloneTime(e.FollowUpDate)
	out.Escalation.LastContactAttempt = cloneTime(e.Escalation.LastContactAttempt)
	out.Escalation.NextFollowUpDate = cloneTime(e.Escalation.NextFollowUpDate)

	if e.CallDetails != nil {
		cd := *e.CallDetails
		if e.CallDetails.HasRefrigeration != nil {
			b := *e.CallDetails.HasRefrigeration
			cd.HasRefrigeration = &b
		}
		cd.DriversNeeded = cloneInt(e.CallDetails.DriversNeeded)
		cd.SpeakersNeeded = cloneInt(e.CallDetails.SpeakersNeeded)
		out.CallDetails = &cd
	}
	if e.CompletionDetails != nil {
		cd := *e.CompletionDetails
		out.CompletionDetails = &cd
	}

	return &out
}

// cloneStrings keeps nil and empty distinct so a clone's wire form matches
// the original's ([] stays [], never null).
func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneInt(n *int) *int {
	if n == nil {
		return nil
	}
	cp := *n
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
