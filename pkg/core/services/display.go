package services

import (
	"context"
	"fmt"

	"github.com/sandwichproject/coordinator/pkg/clients/directory"
	"github.com/sandwichproject/coordinator/pkg/core/model"
	"github.com/sandwichproject/coordinator/pkg/core/transportplan"
)

// RoleSummary is a render-ready view of one role's assignments.
type RoleSummary struct {
	Role     model.PersonRole
	Needed   *int
	Assigned []string // display names in assignment order
}

// EventSummary is a render-ready view of one event request.
type EventSummary struct {
	Event         *model.EventRequest
	RoleSummaries []RoleSummary
	Plan          transportplan.Plan
	PlanText      string
}

// SummarizeEventRequest resolves assignee display names through the
// directory and the transportation plan by priority, producing the view the
// CLI renders.
func SummarizeEventRequest(
	ctx context.Context,
	dir directory.Client,
	e *model.EventRequest,
) (*EventSummary, error) {
	var allIDs []string
	for _, role := range model.Roles {
		allIDs = append(allIDs, e.Role(role).AssignedIDs...)
	}

	resolved, err := dir.GetPeople(ctx, allIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve assignees: %w", err)
	}

	summaries := make([]RoleSummary, 0, len(model.Roles))
	for _, role := range model.Roles {
		rs := e.Role(role)
		names := make([]string, len(rs.AssignedIDs))
		for i, id := range rs.AssignedIDs {
			names[i] = directory.DisplayName(resolved, id)
		}
		summaries = append(summaries, RoleSummary{
			Role:     role,
			Needed:   rs.Needed,
			Assigned: names,
		})
	}

	plan := transportplan.Resolve(e)
	return &EventSummary{
		Event:         e,
		RoleSummaries: summaries,
		Plan:          plan,
		PlanText:      transportplan.Describe(plan),
	}, nil
}
