package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandwichproject/coordinator/pkg/core/services"
	"github.com/sandwichproject/coordinator/pkg/core/transportplan"
)

func setTransportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-transport <event_id> <shape>",
		Short: "Store a transportation plan shape (pickup_by_recipient, overnight_storage or direct_delivery)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			pickupOrg, _ := cmd.Flags().GetString("pickup-org")
			storage, _ := cmd.Flags().GetString("storage-location")
			driver1, _ := cmd.Flags().GetString("driver1")
			driver2, _ := cmd.Flags().GetString("driver2")
			recipient, _ := cmd.Flags().GetString("recipient-org")

			plan := transportplan.Plan{
				Shape:              transportplan.Shape(args[1]),
				PickupOrganization: pickupOrg,
				StorageLocation:    storage,
				TransportDriver1:   driver1,
				TransportDriver2:   driver2,
				FinalRecipientOrg:  recipient,
			}
			if err := ensureLoaded(); err != nil {
				return err
			}
			err = services.SetTransportPlan(app.ctx, app.database, app.col, app.auth, app.logger,
				app.cfg.OperatorID, id, plan)
			if err != nil {
				return err
			}
			fmt.Printf("\nTransportation plan stored: %s\n\n", transportplan.Describe(plan))
			return nil
		},
	}
	cmd.Flags().String("pickup-org", "", "Organization collecting from the event site")
	cmd.Flags().String("storage-location", "", "Overnight storage location")
	cmd.Flags().String("driver1", "", "Driver for the first (or only) leg")
	cmd.Flags().String("driver2", "", "Driver for the second leg")
	cmd.Flags().String("recipient-org", "", "Final recipient organization")
	return cmd
}

func autosaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "autosave <event_id> <field> <value>",
		Short: "Save one field immediately; prints an undo token valid for a few seconds",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			if err := ensureLoaded(); err != nil {
				return err
			}
			token, err := services.AutosaveField(app.ctx, app.database, app.col, app.undo, app.auth,
				app.logger, app.cfg.OperatorID, id, args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Printf("\nSaved %s on event %d\n", args[1], id)
			fmt.Printf("Undo token (valid until %s): %s\n\n",
				token.ExpiresAt.Format("15:04:05"), token.ID)
			return nil
		},
	}
}

func undoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo <token>",
		Short: "Undo an autosaved edit within its window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := services.UndoAutosave(app.ctx, app.database, app.col, app.undo, app.logger, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("\nEdit undone\n\n")
			return nil
		},
	}
}

func stageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stage <event_id> <field> <value>",
		Short: "Stage a field edit locally without saving",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			app.stager.Stage(id, args[1], args[2])
			fmt.Printf("\nStaged %s on event %d (%d fields pending)\n\n",
				args[1], id, len(app.stager.Pending(id)))
			return nil
		},
	}
}

func saveStagedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save-staged <event_id>",
		Short: "Commit all staged edits for an event in one save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			pending := len(app.stager.Pending(id))
			if pending == 0 {
				fmt.Printf("\nNothing staged for event %d\n\n", id)
				return nil
			}
			if err := ensureLoaded(); err != nil {
				return err
			}
			err = services.SaveStaged(app.ctx, app.database, app.col, app.stager, app.auth,
				app.logger, app.cfg.OperatorID, id)
			if err != nil {
				return err
			}
			fmt.Printf("\nSaved %d staged fields on event %d\n\n", pending, id)
			return nil
		},
	}
}

func discardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard <event_id>",
		Short: "Throw away all staged edits for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			app.stager.Discard(id)
			fmt.Printf("\nDiscarded staged edits for event %d\n\n", id)
			return nil
		},
	}
}
