// Command tuitionlift drives the scholarship coaching workflow engine and
// its reconciliation sweep against a local SQLite database.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	coach "github.com/wesleylhandy/tuition-lift-sub001"
	"github.com/wesleylhandy/tuition-lift-sub001/nodes"
	"github.com/wesleylhandy/tuition-lift-sub001/reconcile"
	"github.com/wesleylhandy/tuition-lift-sub001/sqlite"
)

var (
	dbPath   string
	planFile string
	verbose  bool
	jsonLogs bool
)

func main() {
	root := &cobra.Command{
		Use:          "tuitionlift",
		Short:        "Scholarship coaching workflow engine",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath(), "path to the SQLite database")
	root.PersistentFlags().StringVar(&planFile, "plan", "", "optional YAML plan file (defaults to the built-in plan)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "write logs as JSON")

	root.AddCommand(newAdvanceCmd())
	root.AddCommand(newReconcileCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newThreadsCmd())
	root.AddCommand(newSeedCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "tuitionlift.db"
	}
	return filepath.Join(homeDir, ".tuitionlift", "tuitionlift.db")
}

func newLogger() *slog.Logger {
	if jsonLogs {
		return coach.NewJSONLogger()
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return coach.NewLogger(level)
}

func openStore() (*sqlite.Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return sqlite.Open(dbPath)
}

func buildEngine(store *sqlite.Store, logger *slog.Logger) (*coach.Engine, error) {
	registry := coach.NewRegistry()
	if err := nodes.RegisterDefault(registry, nodes.Deps{
		Profiles:     store,
		Applications: store,
		Obligations:  store,
	}); err != nil {
		return nil, err
	}

	var plan *coach.Plan
	var err error
	if planFile != "" {
		plan, err = coach.LoadPlanFile(planFile)
	} else {
		plan, err = nodes.DefaultPlan()
	}
	if err != nil {
		return nil, err
	}

	return coach.NewEngine(coach.EngineOptions{
		Plan:        plan,
		Registry:    registry,
		Checkpoints: store,
		Logger:      logger,
	})
}

func newAdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance <thread-id>",
		Short: "Advance a coaching thread through its pending nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			engine, err := buildEngine(store, newLogger())
			if err != nil {
				return err
			}

			result, err := engine.Advance(cmd.Context(), args[0])
			if err != nil {
				var nodeErr *coach.NodeExecutionError
				if errors.As(err, &nodeErr) {
					color.Red("Thread halted at node %q: %v", nodeErr.Node, nodeErr.Err)
					if coach.IsRetryable(err) {
						color.Yellow("The failure is retryable; run advance again to re-execute the node.")
					}
					return err
				}
				return err
			}

			switch result.Halt {
			case coach.HaltTerminal:
				color.Green("Workflow pass completed in %d step(s).", result.Steps)
			case coach.HaltSuspended:
				color.Cyan("Thread suspended at %q waiting on an external event.", result.PendingNode)
			case coach.HaltYield:
				color.Cyan("Thread yielded; next node is %q.", result.PendingNode)
			case coach.HaltStepBudget:
				color.Yellow("Step budget exhausted at %q; advance again to continue.", result.PendingNode)
			}
			color.White("version=%d steps=%d", result.Version, result.Steps)
			return nil
		},
	}
}

func newReconcileCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Create check-in obligations the event path missed",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			logger := newLogger()
			job, err := reconcile.NewJob(reconcile.JobOptions{
				Applications: store,
				Obligations:  store,
				Logger:       logger,
			})
			if err != nil {
				return err
			}

			if interval > 0 {
				runner, err := reconcile.NewRunner(reconcile.RunnerOptions{
					Job:      job,
					Interval: interval,
					Logger:   logger,
				})
				if err != nil {
					return err
				}
				color.Blue("Sweeping every %s; press Ctrl-C to stop.", interval)
				return runner.Run(cmd.Context())
			}

			result, err := job.Run(cmd.Context())
			if err != nil {
				return err
			}
			color.Green("Sweep complete: created=%d skipped=%d", result.Created, result.Skipped)
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "run continuously on this cadence (0 runs once)")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history <thread-id>",
		Short: "Show the node execution history for a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			checkpoint, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(checkpoint.State.History, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			color.Cyan("Thread %s (version %d, pending %s)", checkpoint.ThreadID, checkpoint.Version, checkpoint.PendingNode)
			for _, entry := range checkpoint.State.History {
				line := fmt.Sprintf("%s  %-20s %s", entry.Timestamp.Format(time.RFC3339), entry.Node, entry.Outcome)
				switch entry.Outcome {
				case coach.OutcomeFailed:
					color.Red("%s  %s", line, entry.Detail)
				case coach.OutcomeSuspended:
					color.Yellow("%s", line)
				default:
					color.White("%s", line)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print history as JSON")
	return cmd
}

func newThreadsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "threads",
		Short: "List checkpointed threads",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ids, err := store.ListThreads(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load a demo profile and submitted application",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			userID := coach.NewThreadID()
			index := 4200
			if err := store.PutProfile(cmd.Context(), coach.Profile{
				UserID:          userID,
				Name:            "Demo Student",
				Major:           "Biology",
				State:           "NC",
				GPA:             3.4,
				FinancialIndex:  &index,
				PellStatus:      coach.PellStatusEligible,
				HouseholdSize:   4,
				NumberInCollege: 2,
				UpdatedAt:       time.Now(),
			}); err != nil {
				return err
			}
			if err := store.PutApplication(cmd.Context(), coach.Application{
				ID:          "app-demo-1",
				UserID:      userID,
				Program:     "State Need Award",
				Status:      coach.ApplicationStatusSubmitted,
				SubmittedAt: time.Now().Add(-coach.CheckinWindow),
			}); err != nil {
				return err
			}
			color.Green("Seeded demo user; advance the thread with:")
			fmt.Printf("  tuitionlift advance %s\n", userID)
			return nil
		},
	}
}
