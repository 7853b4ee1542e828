package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sandwichproject/coordinator/pkg/core/model"
)

// patchColumns maps wire field names accepted by PatchEventRequest onto
// table columns. jsonb columns take their value marshalled.
var patchColumns = map[string]struct {
	column string
	jsonb  bool
}{
	"name":              {column: "name"},
	"email":             {column: "email"},
	"phone":             {column: "phone"},
	"organization":      {column: "organization"},
	"desiredEventDate":  {column: "desired_event_date"},
	"status":            {column: "status"},
	"planningNotes":     {column: "planning_notes"},
	"toolkitSentDate":   {column: "toolkit_sent_date"},
	"followUpDate":      {column: "follow_up_date"},
	"roles":             {column: "roles", jsonb: true},
	"transportation":    {column: "transportation", jsonb: true},
	"escalation":        {column: "escalation", jsonb: true},
	"callDetails":       {column: "call_details", jsonb: true},
	"completionDetails": {column: "completion_details", jsonb: true},
}

const eventRequestColumns = `
	id, name, email, phone, organization, desired_event_date, status,
	roles, transportation, escalation,
	toolkit_sent_date, follow_up_date, call_details, completion_details,
	planning_notes
`

// GetEventRequests retrieves every event request record.
func (d *DB) GetEventRequests(ctx context.Context) ([]*model.EventRequest, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+eventRequestColumns+` FROM event_request ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query event requests: %w", err)
	}
	defer rows.Close()

	var events []*model.EventRequest
	for rows.Next() {
		e, err := scanEventRequest(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event requests: %w", err)
	}
	return events, nil
}

// GetEventRequest retrieves one record by id.
func (d *DB) GetEventRequest(ctx context.Context, id int64) (*model.EventRequest, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+eventRequestColumns+` FROM event_request WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query event request %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to query event request %d: %w", id, err)
		}
		return nil, model.ErrNotFound
	}
	return scanEventRequest(rows)
}

// InsertEventRequest creates a record. When the record carries a non-zero id
// (intake assigns them), the id is preserved.
func (d *DB) InsertEventRequest(ctx context.Context, e *model.EventRequest) error {
	roles, transportation, escalation, callDetails, completionDetails, err := marshalJSONColumns(e)
	if err != nil {
		return err
	}

	if e.ID != 0 {
		_, err = d.pool.Exec(ctx, `
			INSERT INTO event_request (
				id, name, email, phone, organization, desired_event_date, status,
				roles, transportation, escalation,
				toolkit_sent_date, follow_up_date, call_details, completion_details,
				planning_notes
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`, e.ID, e.Name, e.Email, e.Phone, e.Organization, e.DesiredEventDate, e.Status,
			roles, transportation, escalation,
			e.ToolkitSentDate, e.FollowUpDate, callDetails, completionDetails,
			e.PlanningNotes)
		if err != nil {
			return fmt.Errorf("failed to insert event request: %w", err)
		}
		return nil
	}

	err = d.pool.QueryRow(ctx, `
		INSERT INTO event_request (
			name, email, phone, organization, desired_event_date, status,
			roles, transportation, escalation,
			toolkit_sent_date, follow_up_date, call_details, completion_details,
			planning_notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`, e.Name, e.Email, e.Phone, e.Organization, e.DesiredEventDate, e.Status,
		roles, transportation, escalation,
		e.ToolkitSentDate, e.FollowUpDate, callDetails, completionDetails,
		e.PlanningNotes).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to insert event request: %w", err)
	}
	return nil
}

// ReplaceEventRequest overwrites the full record.
func (d *DB) ReplaceEventRequest(ctx context.Context, e *model.EventRequest) error {
	roles, transportation, escalation, callDetails, completionDetails, err := marshalJSONColumns(e)
	if err != nil {
		return err
	}

	tag, err := d.pool.Exec(ctx, `
		UPDATE event_request SET
			name = $2, email = $3, phone = $4, organization = $5,
			desired_event_date = $6, status = $7,
			roles = $8, transportation = $9, escalation = $10,
			toolkit_sent_date = $11, follow_up_date = $12,
			call_details = $13, completion_details = $14,
			planning_notes = $15
		WHERE id = $1
	`, e.ID, e.Name, e.Email, e.Phone, e.Organization,
		e.DesiredEventDate, e.Status,
		roles, transportation, escalation,
		e.ToolkitSentDate, e.FollowUpDate,
		callDetails, completionDetails,
		e.PlanningNotes)
	if err != nil {
		return fmt.Errorf("failed to replace event request %d: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// PatchEventRequest merges the field map into the record as one UPDATE.
// Field names are wire names; unknown fields are rejected.
func (d *DB) PatchEventRequest(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	setClauses := make([]string, 0, len(fields))
	args := []any{id}
	for field, value := range fields {
		spec, ok := patchColumns[field]
		if !ok {
			return fmt.Errorf("cannot patch unknown field %q", field)
		}
		if spec.jsonb && value != nil {
			raw, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("failed to marshal field %q: %w", field, err)
			}
			value = raw
		}
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", spec.column, len(args)))
	}

	query := fmt.Sprintf(`UPDATE event_request SET %s WHERE id = $1`, strings.Join(setClauses, ", "))
	tag, err := d.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to patch event request %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// UpdateRolesIfCountMatches writes the roles column only while the stored
// assignee count for role still equals expectedCount. A moved count means
// another signup won the slot, surfaced as model.ErrCapacityExceeded.
func (d *DB) UpdateRolesIfCountMatches(
	ctx context.Context,
	id int64,
	role model.PersonRole,
	expectedCount int,
	roles map[model.PersonRole]*model.RoleState,
) error {
	raw, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("failed to marshal roles: %w", err)
	}

	// jsonb_typeof guards against records whose assignedIds was stored as a
	// jsonb null; jsonb_array_length raises on non-arrays and COALESCE only
	// covers SQL NULL from a missing key.
	tag, err := d.pool.Exec(ctx, `
		UPDATE event_request
		SET roles = $1
		WHERE id = $2
		  AND CASE
			WHEN jsonb_typeof(roles -> $3 -> 'assignedIds') = 'array'
			THEN jsonb_array_length(roles -> $3 -> 'assignedIds')
			ELSE 0
		  END = $4
	`, raw, id, string(role), expectedCount)
	if err != nil {
		return fmt.Errorf("failed to update roles for event request %d: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Distinguish a lost race from a missing record.
	var exists bool
	if err := d.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM event_request WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check event request %d: %w", id, err)
	}
	if !exists {
		return model.ErrNotFound
	}
	return model.ErrCapacityExceeded
}

// DeleteEventRequests hard-deletes the given records in one statement.
func (d *DB) DeleteEventRequests(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := d.pool.Exec(ctx, `DELETE FROM event_request WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("failed to delete event requests: %w", err)
	}
	return nil
}

func scanEventRequest(rows pgx.Rows) (*model.EventRequest, error) {
	var (
		e                                model.EventRequest
		rolesRaw, transportRaw, escRaw   []byte
		callDetailsRaw, completionRaw    []byte
		toolkitSentDate, followUpDate    *time.Time
		desiredEventDate, planningNotes  string
		name, email, phone, organization string
		status                           string
	)
	err := rows.Scan(
		&e.ID, &name, &email, &phone, &organization, &desiredEventDate, &status,
		&rolesRaw, &transportRaw, &escRaw,
		&toolkitSentDate, &followUpDate, &callDetailsRaw, &completionRaw,
		&planningNotes,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan event request: %w", err)
	}

	e.Name, e.Email, e.Phone, e.Organization = name, email, phone, organization
	e.DesiredEventDate = desiredEventDate
	e.Status = model.Status(status)
	e.ToolkitSentDate = toolkitSentDate
	e.FollowUpDate = followUpDate
	e.PlanningNotes = planningNotes

	if err := unmarshalColumn(rolesRaw, &e.Roles); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(transportRaw, &e.Transportation); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(escRaw, &e.Escalation); err != nil {
		return nil, err
	}
	if len(callDetailsRaw) > 0 {
		e.CallDetails = &model.CallDetails{}
		if err := unmarshalColumn(callDetailsRaw, e.CallDetails); err != nil {
			return nil, err
		}
	}
	if len(completionRaw) > 0 {
		e.CompletionDetails = &model.CompletionDetails{}
		if err := unmarshalColumn(completionRaw, e.CompletionDetails); err != nil {
			return nil, err
		}
	}
	return &e, nil
}

func unmarshalColumn(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to unmarshal event request column: %w", err)
	}
	return nil
}

func marshalJSONColumns(e *model.EventRequest) (roles, transportation, escalation, callDetails, completionDetails []byte, err error) {
	if roles, err = json.Marshal(e.Roles); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("failed to marshal roles: %w", err)
	}
	if transportation, err = json.Marshal(e.Transportation); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("failed to marshal transportation: %w", err)
	}
	if escalation, err = json.Marshal(e.Escalation); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("failed to marshal escalation: %w", err)
	}
	if e.CallDetails != nil {
		if callDetails, err = json.Marshal(e.CallDetails); err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("failed to marshal call details: %w", err)
		}
	}
	if e.CompletionDetails != nil {
		if completionDetails, err = json.Marshal(e.CompletionDetails); err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("failed to marshal completion details: %w", err)
		}
	}
	return roles, transportation, escalation, callDetails, completionDetails, nil
}
