package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandwichproject/coordinator/pkg/core/assignment"
	"github.com/sandwichproject/coordinator/pkg/core/model"
	"github.com/sandwichproject/coordinator/pkg/core/services"
)

func parseRole(arg string) (model.PersonRole, error) {
	role := model.PersonRole(arg)
	if !role.IsValid() {
		return "", fmt.Errorf("unknown role %q (expected driver, speaker or volunteer)", arg)
	}
	return role, nil
}

func assignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <event_id> <role> <person_id>",
		Short: "Assign a person to a role (administrative path)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			role, err := parseRole(args[1])
			if err != nil {
				return err
			}
			if err := ensureLoaded(); err != nil {
				return err
			}
			err = services.AssignRole(app.ctx, app.database, app.col, app.dir, app.auth, app.logger,
				app.cfg.OperatorID, id, role, args[2])
			if err != nil {
				return err
			}
			fmt.Printf("\nAssigned %s to %s on event %d\n\n", args[2], role, id)
			return nil
		},
	}
}

func unassignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unassign <event_id> <role> <person_id>",
		Short: "Remove a person from a role",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			role, err := parseRole(args[1])
			if err != nil {
				return err
			}
			if err := ensureLoaded(); err != nil {
				return err
			}
			err = services.UnassignRole(app.ctx, app.database, app.col, app.auth, app.logger,
				app.cfg.OperatorID, id, role, args[2])
			if err != nil {
				return err
			}
			fmt.Printf("\nUnassigned %s from %s on event %d\n\n", args[2], role, id)
			return nil
		},
	}
}

func bulkAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-assign <event_id> <role> <person_id>...",
		Short: "Assign several people to a role at once (capacity is not enforced)",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			role, err := parseRole(args[1])
			if err != nil {
				return err
			}
			if err := ensureLoaded(); err != nil {
				return err
			}
			personIDs := args[2:]
			err = services.BulkAssignRoles(app.ctx, app.database, app.col, app.dir, app.auth, app.logger,
				app.cfg.OperatorID, id, role, personIDs)
			if err != nil {
				return err
			}
			fmt.Printf("\nAssigned %d people to %s on event %d\n\n", len(personIDs), role, id)
			return nil
		},
	}
}

func selfSignupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "self-signup <event_id> <role>",
		Short: "Sign yourself up for a role; capacity is re-checked on the server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			role, err := parseRole(args[1])
			if err != nil {
				return err
			}
			userID, _ := cmd.Flags().GetString("as")
			if userID == "" {
				userID = app.cfg.OperatorID
			}
			if err := ensureLoaded(); err != nil {
				return err
			}

			resolved, err := app.dir.GetPeople(app.ctx, []string{userID})
			if err != nil {
				return err
			}
			// Persist the raw id when the directory has no entry; the
			// "User not found" fallback is display-only.
			user := assignment.Person{ID: userID, Name: userID}
			if p, ok := resolved[userID]; ok && p.Name != "" {
				user.Name = p.Name
			}

			err = services.SelfSignup(app.ctx, app.database, app.col, app.auth, app.logger, user, id, role)
			if err != nil {
				return err
			}
			fmt.Printf("\n%s signed up as %s on event %d\n\n", user.Name, role, id)
			return nil
		},
	}
	cmd.Flags().String("as", "", "Sign up as this person id instead of the configured operator")
	return cmd
}
