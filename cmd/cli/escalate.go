package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandwichproject/coordinator/pkg/core/dedupe"
	"github.com/sandwichproject/coordinator/pkg/core/escalation"
	"github.com/sandwichproject/coordinator/pkg/core/model"
	"github.com/sandwichproject/coordinator/pkg/core/services"
)

func parseReason(arg string) (model.UnresponsiveReason, error) {
	reason := model.UnresponsiveReason(arg)
	if !reason.IsValid() {
		return "", fmt.Errorf("unknown reason %q (expected no_answer, voicemail_full, email_bounced, wrong_contact or other)", arg)
	}
	return reason, nil
}

func escalateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "escalate",
		Short: "Track unresponsive contacts (mark, update, resolve)",
	}
	cmd.AddCommand(escalateMarkCmd())
	cmd.AddCommand(escalateUpdateCmd())
	cmd.AddCommand(escalateResolveCmd())
	return cmd
}

func escalateMarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mark <event_id> <reason>",
		Short: "Record a failed contact attempt; status is left untouched",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			reason, err := parseReason(args[1])
			if err != nil {
				return err
			}
			notes, _ := cmd.Flags().GetString("notes")
			scheduleFollowUp, _ := cmd.Flags().GetBool("schedule-follow-up")

			if err := ensureLoaded(); err != nil {
				return err
			}
			err = services.MarkUnresponsive(app.ctx, app.database, app.col, app.tracker, app.auth,
				app.logger, app.cfg.OperatorID, id, escalation.MarkInput{
					Reason:           reason,
					Notes:            notes,
					ScheduleFollowUp: scheduleFollowUp,
				})
			if err != nil {
				return err
			}
			fmt.Printf("\nEvent %d marked unresponsive (%s)\n\n", id, reason)
			return nil
		},
	}
	cmd.Flags().String("notes", "", "Free-form notes about the attempt")
	cmd.Flags().Bool("schedule-follow-up", false, "Compute the next follow-up date")
	return cmd
}

func escalateUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <event_id> <reason>",
		Short: "Correct the reason or notes without counting a new attempt",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			reason, err := parseReason(args[1])
			if err != nil {
				return err
			}
			notes, _ := cmd.Flags().GetString("notes")

			if err := ensureLoaded(); err != nil {
				return err
			}
			err = services.UpdateEscalation(app.ctx, app.database, app.col, app.tracker, app.auth,
				app.logger, app.cfg.OperatorID, id, reason, notes)
			if err != nil {
				return err
			}
			fmt.Printf("\nEscalation updated on event %d\n\n", id)
			return nil
		},
	}
	cmd.Flags().String("notes", "", "Free-form notes about the attempt")
	return cmd
}

func escalateResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <event_id>",
		Short: "Clear the unresponsive flag; attempt history is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			if err := ensureLoaded(); err != nil {
				return err
			}
			err = services.ResolveEscalation(app.ctx, app.database, app.col, app.tracker, app.auth,
				app.logger, app.cfg.OperatorID, id)
			if err != nil {
				return err
			}
			fmt.Printf("\nEscalation resolved on event %d\n\n", id)
			return nil
		},
	}
}

func cleanupDuplicatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-duplicates <result_file>",
		Short: "Delete the entries a duplicate-detection result file slates for removal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read detection result: %w", err)
			}
			result, err := dedupe.ParseResult(data)
			if err != nil {
				return err
			}

			targets := dedupe.DeletionTargets(result)
			fmt.Printf("\nDetection result: %d duplicate groups, %d near duplicates, %d entries slated for deletion\n",
				len(result.DuplicateGroups), len(result.NearDuplicateEntries), len(targets))
			if len(targets) == 0 {
				fmt.Println()
				return nil
			}

			deleted, err := services.CleanupDuplicates(app.ctx, app.database, app.col, app.auth,
				app.logger, app.cfg.OperatorID, result)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d event requests: %v\n\n", len(deleted), deleted)
			return nil
		},
	}
}
