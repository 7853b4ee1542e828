package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sandwichproject/coordinator/internal/config"
	"github.com/sandwichproject/coordinator/pkg/clients/directory"
	"github.com/sandwichproject/coordinator/pkg/core/authz"
	"github.com/sandwichproject/coordinator/pkg/core/cache"
	"github.com/sandwichproject/coordinator/pkg/core/escalation"
	"github.com/sandwichproject/coordinator/pkg/core/staging"
	"github.com/sandwichproject/coordinator/pkg/postgres"
	"github.com/sandwichproject/coordinator/pkg/utils/logging"
)

// App holds the application dependencies
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	database *postgres.DB
	col      *cache.Collection
	stager   *staging.Stager
	undo     *staging.UndoRegistry
	tracker  *escalation.Tracker
	dir      directory.Client
	auth     authz.Authorizer
	ctx      context.Context
}

var (
	env     string
	verbose bool
	app     *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "coordinator",
		Short: "Sandwich Project coordinator - manage event requests",
		Long:  `A CLI tool for coordinating sandwich-making event requests: lifecycle status, role assignments, transportation plans, edits, and contact escalation.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				if app.database != nil {
					app.database.Close()
				}
				if app.logger != nil {
					app.logger.Sync()
				}
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at info level on the console")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(createCmd())
	rootCmd.AddCommand(sendToolkitCmd())
	rootCmd.AddCommand(followUpCmd())
	rootCmd.AddCommand(completeCallCmd())
	rootCmd.AddCommand(declineCmd())
	rootCmd.AddCommand(completeCmd())
	rootCmd.AddCommand(assignCmd())
	rootCmd.AddCommand(unassignCmd())
	rootCmd.AddCommand(bulkAssignCmd())
	rootCmd.AddCommand(selfSignupCmd())
	rootCmd.AddCommand(setTransportCmd())
	rootCmd.AddCommand(autosaveCmd())
	rootCmd.AddCommand(undoCmd())
	rootCmd.AddCommand(stageCmd())
	rootCmd.AddCommand(saveStagedCmd())
	rootCmd.AddCommand(discardCmd())
	rootCmd.AddCommand(escalateCmd())
	rootCmd.AddCommand(cleanupDuplicatesCmd())
	rootCmd.AddCommand(interactiveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, directory client, database, and the
// client-session state (collection cache, stager, undo registry).
func initApp() error {
	var err error
	app = &App{
		ctx: context.Background(),
	}

	app.logger, err = logging.InitLogger(env, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger.Info("Starting application", zap.String("environment", env))

	app.cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app.database, err = postgres.NewDB(app.ctx, app.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := app.database.RunMigrations(app.ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	app.logger.Info("Database initialized successfully")

	people := make([]directory.Person, len(app.cfg.People))
	for i, p := range app.cfg.People {
		people[i] = directory.Person{ID: p.ID, Name: p.Name, Email: p.Email, Role: p.Role}
	}
	cacheTTL := time.Duration(app.cfg.DirectoryCacheTTLMinutes) * time.Minute
	app.dir = directory.NewCachedClient(directory.NewStaticClient(people), cacheTTL, app.logger)

	followUpRule, err := app.cfg.FollowUpRule()
	if err != nil {
		return err
	}
	app.tracker = escalation.NewTracker(followUpRule)

	app.col = cache.NewCollection(app.logger)
	app.stager = staging.NewStager()
	app.undo = staging.NewUndoRegistry(time.Duration(app.cfg.UndoWindowSeconds) * time.Second)
	app.auth = authz.AllowAll{}

	return nil
}

func interactiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Start an interactive session (staged edits and undo stay live between commands)",
		Long: `Start an interactive session where you can run multiple commands against one
client session. Staged edits accumulate until save-staged, and autosave undo
tokens stay usable within their window.

Type 'help' to see available commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("\nStarting interactive session...")
			fmt.Println("Type 'help' for available commands, 'exit' or 'quit' to leave")

			rootCmd := cmd.Parent()
			commands := make(map[string]*cobra.Command)
			for _, subCmd := range rootCmd.Commands() {
				if subCmd.Name() != "interactive" && subCmd.Name() != "completion" && subCmd.Name() != "help" {
					commands[subCmd.Name()] = subCmd
				}
			}

			scanner := bufio.NewScanner(os.Stdin)

			for {
				fmt.Print("> ")

				if !scanner.Scan() {
					break
				}

				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}

				parts := strings.Fields(line)
				cmdName := parts[0]
				cmdArgs := parts[1:]

				if cmdName == "exit" || cmdName == "quit" {
					return nil
				}

				if cmdName == "help" {
					printInteractiveHelp(commands)
					continue
				}

				targetCmd, exists := commands[cmdName]
				if !exists {
					fmt.Printf("Unknown command: %s (type 'help' for available commands)\n\n", cmdName)
					continue
				}

				// Reset flags so repeated invocations start clean
				targetCmd.Flags().VisitAll(func(flag *pflag.Flag) {
					flag.Changed = false
					flag.Value.Set(flag.DefValue)
				})

				// Run the command's RunE directly so PersistentPreRunE does
				// not rebuild the session state
				if err := targetCmd.ParseFlags(cmdArgs); err != nil {
					fmt.Printf("Error parsing flags: %v\n\n", err)
					continue
				}

				cmdArgs = targetCmd.Flags().Args()

				if err := targetCmd.Args(targetCmd, cmdArgs); err != nil {
					fmt.Printf("Error: %v\n\n", err)
					continue
				}

				if targetCmd.RunE != nil {
					if err := targetCmd.RunE(targetCmd, cmdArgs); err != nil {
						fmt.Printf("Error: %v\n\n", err)
					}
				}
			}

			if err := scanner.Err(); err != nil {
				return fmt.Errorf("error reading input: %w", err)
			}

			return nil
		},
	}
}

func printInteractiveHelp(commands map[string]*cobra.Command) {
	fmt.Println("\nAvailable commands:")
	for _, cmd := range commands {
		fmt.Printf("  %-40s %s\n", cmd.Use, cmd.Short)
	}
	fmt.Println("\n  help                                     Show this help message")
	fmt.Println("  exit, quit                               Exit the interactive session")
}
