package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/nbousseta/atelier/internal/models"
	"github.com/nbousseta/atelier/internal/workflow"
	"github.com/spf13/cobra"
)

func newActionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "action",
		Short: "Action commands",
	}

	cmd.AddCommand(newActionStartCmd())
	cmd.AddCommand(newActionCompleteCmd())
	cmd.AddCommand(newActionPauseCmd())
	cmd.AddCommand(newActionResumeCmd())
	cmd.AddCommand(newActionAddCmd())
	cmd.AddCommand(newActionProgressCmd())
	cmd.AddCommand(newActionNoteCmd())
	cmd.AddCommand(newActionReadyCmd())
	cmd.AddCommand(newActionDepCmd())
	return cmd
}

func newActionStartCmd() *cobra.Command {
	var (
		configPath string
		assignee   string
	)

	cmd := &cobra.Command{
		Use:   "start <action-id>",
		Short: "Start an action",
		Long:  "Moves an action to in_progress. Fails while any blocking dependency is incomplete.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			// Gate pending actions on their dependencies before transitioning.
			var current models.MaintenanceAction
			if err := gormDB.First(&current, "id = ?", args[0]).Error; err == nil && current.Status == workflow.StatusPending {
				ready, err := workflow.ReadyActions(gormDB, current.WorkflowID)
				if err != nil {
					return err
				}
				isReady := false
				for _, r := range ready {
					if r.ID == current.ID {
						isReady = true
						break
					}
				}
				if !isReady {
					return fmt.Errorf("action %s is waiting on incomplete dependencies; see 'atl action ready %s'",
						current.ID, current.WorkflowID)
				}
			}

			action, err := workflow.Start(gormDB, args[0], assignee)
			if err != nil {
				return err
			}
			printActionResult(cmd, action)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assign the action while starting it")
	return cmd
}

func newActionCompleteCmd() *cobra.Command {
	var (
		configPath string
		note       string
	)

	cmd := &cobra.Command{
		Use:   "complete <action-id>",
		Short: "Complete an action",
		Long:  "Marks an action completed. Fails while any mandatory checkpoint is still open.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			// Mandatory checkpoints gate completion.
			var current models.MaintenanceAction
			if err := gormDB.Preload("Checkpoints").First(&current, "id = ?", args[0]).Error; err == nil {
				if open := workflow.MandatoryOpen(current); len(open) > 0 {
					return fmt.Errorf("action %s has %d open mandatory checkpoint(s); check them first",
						current.ID, len(open))
				}
			}

			action, err := workflow.Complete(gormDB, args[0], note)
			if err != nil {
				return err
			}
			printActionResult(cmd, action)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().StringVarP(&note, "note", "n", "", "completion note")
	return cmd
}

func newActionPauseCmd() *cobra.Command {
	var (
		configPath string
		reason     string
	)

	cmd := &cobra.Command{
		Use:   "pause <action-id>",
		Short: "Pause an action (marks it blocked)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			action, err := workflow.Pause(gormDB, args[0], reason)
			if err != nil {
				return err
			}
			printActionResult(cmd, action)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "why the action is blocked")
	return cmd
}

func newActionResumeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "resume <action-id>",
		Short: "Resume a blocked action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			action, err := workflow.Resume(gormDB, args[0])
			if err != nil {
				return err
			}
			printActionResult(cmd, action)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	return cmd
}

func newActionAddCmd() *cobra.Command {
	var (
		configPath string
		def        workflow.ActionDef
		due        string
	)

	cmd := &cobra.Command{
		Use:   "add <workflow-id>",
		Short: "Append an action to a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if due != "" {
				t, err := parseDue(due)
				if err != nil {
					return err
				}
				def.DueAt = &t
			}

			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			action, err := workflow.AddAction(gormDB, args[0], def)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added action %s at position %d (%s)\n",
				action.ID, action.Position, action.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().StringVar(&def.Title, "title", "", "action title")
	cmd.Flags().StringVar(&def.Description, "description", "", "action description")
	cmd.Flags().StringVar(&def.Type, "type", "", "action type (diagnosis, preparation, execution, verification, documentation, preventive)")
	cmd.Flags().StringVarP(&def.Priority, "priority", "p", "", "action priority")
	cmd.Flags().IntVar(&def.EstimatedDuration, "duration", 0, "estimated duration in minutes")
	cmd.Flags().BoolVar(&def.IsBlocking, "blocking", false, "dependents must wait for this action")
	cmd.Flags().StringVar(&due, "due", "", "due date (2006-01-02 or RFC 3339)")
	cmd.MarkFlagRequired("title")
	return cmd
}

// parseDue accepts a bare date or a full RFC 3339 timestamp.
func parseDue(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q, want 2006-01-02 or RFC 3339", s)
	}
	return t, nil
}

func newActionProgressCmd() *cobra.Command {
	var (
		configPath string
		percentage int
	)

	cmd := &cobra.Command{
		Use:   "progress <action-id>",
		Short: "Record reported progress on an action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			action, err := workflow.SetProgress(gormDB, args[0], percentage)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Action %s at %d%%\n", action.ID, action.ProgressPercentage)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().IntVar(&percentage, "percent", 0, "progress percentage 0-100")
	cmd.MarkFlagRequired("percent")
	return cmd
}

func newActionNoteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "note <action-id> <text>",
		Short: "Append a note to an action",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			content := strings.Join(args[1:], " ")
			if err := workflow.AddNote(gormDB, args[0], content); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Noted on action %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	return cmd
}

func newActionReadyCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "ready <workflow-id>",
		Short: "List actions that can start now",
		Long:  "Lists pending actions whose blocking dependencies are all completed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			actions, err := workflow.ReadyActions(gormDB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(actions) == 0 {
				fmt.Fprintln(out, "No actions are ready.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "POS\tID\tTITLE\tTYPE\tPRIORITY\tESTIMATE")
			for _, a := range actions {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					a.Position, a.ID, truncate(a.Title, 40), a.Type, a.Priority,
					workflow.FormatDuration(a.EstimatedDuration))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	return cmd
}

func newActionDepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep",
		Short: "Action dependency commands",
	}

	cmd.AddCommand(newActionDepAddCmd())
	cmd.AddCommand(newActionDepRemoveCmd())
	cmd.AddCommand(newActionDepListCmd())
	return cmd
}

func newActionDepAddCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "add <action-id> <depends-on-id>",
		Short: "Make one action wait on another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			if err := workflow.AddDep(gormDB, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Action %s now waits on %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	return cmd
}

func newActionDepRemoveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "remove <action-id> <depends-on-id>",
		Short: "Remove a dependency between two actions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			if err := workflow.RemoveDep(gormDB, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Action %s no longer waits on %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	return cmd
}

func newActionDepListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list <action-id>",
		Short: "List what an action waits on and what waits on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			blockers, dependents, err := workflow.ListDeps(gormDB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(blockers) == 0 && len(dependents) == 0 {
				fmt.Fprintf(out, "Action %s has no dependencies.\n", args[0])
				return nil
			}

			if len(blockers) > 0 {
				fmt.Fprintln(out, "Waits on:")
				for _, d := range blockers {
					fmt.Fprintf(out, "  %s\n", d.DependsOn)
				}
			}
			if len(dependents) > 0 {
				fmt.Fprintln(out, "Blocks:")
				for _, d := range dependents {
					fmt.Fprintf(out, "  %s\n", d.ActionID)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	return cmd
}

// printActionResult is the shared confirmation line for action mutations.
func printActionResult(cmd *cobra.Command, action *models.MaintenanceAction) {
	fmt.Fprintf(cmd.OutOrStdout(), "Action %s (%s) is now %s\n",
		action.ID, truncate(action.Title, 40), workflow.GetStatusConfig(action.Status).Label)
}
