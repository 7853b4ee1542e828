package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sandwichproject/coordinator/pkg/core/model"
	"github.com/sandwichproject/coordinator/pkg/core/services"
	"github.com/sandwichproject/coordinator/pkg/core/status"
)

func parseEventID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("event id must be a number: %w", err)
	}
	return id, nil
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all event requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := services.RefreshEventRequests(app.ctx, app.database, app.col, app.logger)
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d event requests:\n\n", len(events))
			for _, e := range events {
				flag := ""
				if e.Escalation.IsUnresponsive {
					flag = " [unresponsive]"
				}
				fmt.Printf("  %4d  %-12s %-24s %s%s\n", e.ID, e.Status, e.Organization, e.DesiredEventDate, flag)
			}
			fmt.Println()
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <event_id>",
		Short: "Show one event request in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			e, err := services.GetEventRequest(app.ctx, app.database, app.col, app.logger, id)
			if err != nil {
				return err
			}
			summary, err := services.SummarizeEventRequest(app.ctx, app.dir, e)
			if err != nil {
				return err
			}

			fmt.Printf("\nEvent request %d - %s\n", e.ID, e.Organization)
			fmt.Printf("  Status:   %s\n", e.Status)
			fmt.Printf("  Contact:  %s <%s> %s\n", e.Name, e.Email, e.Phone)
			if date := displayValue(e, "desiredEventDate"); date != nil {
				fmt.Printf("  Date:     %v\n", date)
			}
			for _, rs := range summary.RoleSummaries {
				capacity := "unbounded"
				if rs.Needed != nil {
					capacity = strconv.Itoa(*rs.Needed)
				}
				fmt.Printf("  %-10s %d assigned (capacity %s)\n", rs.Role+"s:", len(rs.Assigned), capacity)
				for _, name := range rs.Assigned {
					fmt.Printf("    - %s\n", name)
				}
			}
			fmt.Printf("  Transport: %s\n", summary.PlanText)
			if e.Escalation.IsUnresponsive {
				fmt.Printf("  Unresponsive: %s after %d attempts\n",
					e.Escalation.UnresponsiveReason, e.Escalation.ContactAttempts)
			}
			if notes := displayValue(e, "planningNotes"); notes != nil && notes != "" {
				fmt.Printf("  Notes: %v\n", notes)
			}
			if app.stager.HasPending(e.ID) {
				fmt.Printf("  (unsaved staged edits pending)\n")
			}
			fmt.Println()
			return nil
		},
	}
}

// displayValue prefers a staged edit over the committed value.
func displayValue(e *model.EventRequest, field string) any {
	return app.stager.GetDisplayValue(e, field)
}

func createCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a new intake submission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			phone, _ := cmd.Flags().GetString("phone")
			org, _ := cmd.Flags().GetString("org")
			date, _ := cmd.Flags().GetString("date")

			if _, err := services.RefreshEventRequests(app.ctx, app.database, app.col, app.logger); err != nil {
				return err
			}
			e, err := services.CreateEventRequest(app.ctx, app.database, app.col, app.logger, &model.EventRequest{
				Name:             name,
				Email:            email,
				Phone:            phone,
				Organization:     org,
				DesiredEventDate: date,
			})
			if err != nil {
				return err
			}
			fmt.Printf("\nCreated event request %d\n\n", e.ID)
			return nil
		},
	}
	cmd.Flags().String("name", "", "Contact name")
	cmd.Flags().String("email", "", "Contact email")
	cmd.Flags().String("phone", "", "Contact phone")
	cmd.Flags().String("org", "", "Organization")
	cmd.Flags().String("date", "", "Desired event date (YYYY-MM-DD)")
	return cmd
}

// ensureLoaded fills the collection cache once per session.
func ensureLoaded() error {
	if app.col.Len() > 0 {
		return nil
	}
	_, err := services.RefreshEventRequests(app.ctx, app.database, app.col, app.logger)
	return err
}

func transition(eventID int64, action status.Action, in status.Input) error {
	if err := ensureLoaded(); err != nil {
		return err
	}
	return services.TransitionStatus(app.ctx, app.database, app.col, app.auth, app.logger,
		app.cfg.OperatorID, eventID, action, in)
}

func sendToolkitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send-toolkit <event_id>",
		Short: "Mark the toolkit sent (new -> in_process)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			if err := transition(id, status.ActionToolkitSent, status.Input{}); err != nil {
				return err
			}
			fmt.Printf("\nEvent %d moved to in_process (toolkit sent stamped)\n\n", id)
			return nil
		},
	}
}

func followUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "follow-up <event_id>",
		Short: "Record a follow-up (new -> in_process)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			if err := transition(id, status.ActionFollowedUp, status.Input{}); err != nil {
				return err
			}
			fmt.Printf("\nEvent %d moved to in_process (follow-up stamped)\n\n", id)
			return nil
		},
	}
}

func completeCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete-call <event_id>",
		Short: "Record the planning call (in_process -> scheduled); all detail flags are required",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}

			eventDate, _ := cmd.Flags().GetString("event-date")
			attendees, _ := cmd.Flags().GetInt("attendees")
			sandwiches, _ := cmd.Flags().GetInt("sandwiches")
			drivers, _ := cmd.Flags().GetInt("drivers")
			speakers, _ := cmd.Flags().GetInt("speakers")
			address, _ := cmd.Flags().GetString("address")
			refrigeration, _ := cmd.Flags().GetBool("refrigeration")

			details := &model.CallDetails{
				EventDate:        eventDate,
				AttendeeEstimate: attendees,
				SandwichEstimate: sandwiches,
				Address:          address,
			}
			// Omitted flags stay nil so the transition guard reports them
			// as missing instead of recording a default answer.
			if cmd.Flags().Changed("drivers") {
				details.DriversNeeded = &drivers
			}
			if cmd.Flags().Changed("speakers") {
				details.SpeakersNeeded = &speakers
			}
			if cmd.Flags().Changed("refrigeration") {
				details.HasRefrigeration = &refrigeration
			}
			if err := transition(id, status.ActionCallCompleted, status.Input{CallDetails: details}); err != nil {
				return err
			}
			fmt.Printf("\nEvent %d scheduled for %s\n\n", id, eventDate)
			return nil
		},
	}
	cmd.Flags().String("event-date", "", "Confirmed event date (YYYY-MM-DD)")
	cmd.Flags().Int("attendees", 0, "Estimated attendee count")
	cmd.Flags().Int("sandwiches", 0, "Estimated sandwich count")
	cmd.Flags().Int("drivers", 0, "Drivers needed")
	cmd.Flags().Int("speakers", 0, "Speakers needed")
	cmd.Flags().String("address", "", "Event address")
	cmd.Flags().Bool("refrigeration", false, "Refrigeration available on site")
	return cmd
}

func declineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decline <event_id>",
		Short: "Decline an event request (allowed from any status)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			if err := transition(id, status.ActionDeclined, status.Input{}); err != nil {
				return err
			}
			fmt.Printf("\nEvent %d declined\n\n", id)
			return nil
		},
	}
}

func completeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <event_id>",
		Short: "Record the actual event outcome (scheduled -> completed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			actualDate, _ := cmd.Flags().GetString("actual-date")
			attendees, _ := cmd.Flags().GetInt("attendees")
			notes, _ := cmd.Flags().GetString("notes")

			details := &model.CompletionDetails{
				ActualDate:    actualDate,
				AttendeeCount: attendees,
				Notes:         notes,
			}
			if err := transition(id, status.ActionCompleted, status.Input{CompletionDetails: details}); err != nil {
				return err
			}
			fmt.Printf("\nEvent %d completed\n\n", id)
			return nil
		},
	}
	cmd.Flags().String("actual-date", "", "Date the event actually took place")
	cmd.Flags().Int("attendees", 0, "Actual attendee count")
	cmd.Flags().String("notes", "", "Outcome notes")
	return cmd
}
