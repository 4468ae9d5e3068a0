package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/nbousseta/atelier/internal/models"
	"github.com/nbousseta/atelier/internal/workflow"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newWorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Workflow commands",
	}

	cmd.AddCommand(newWorkflowCreateCmd())
	cmd.AddCommand(newWorkflowListCmd())
	cmd.AddCommand(newWorkflowShowCmd())
	cmd.AddCommand(newWorkflowUpdateCmd())
	cmd.AddCommand(newWorkflowDeleteCmd())
	cmd.AddCommand(newWorkflowAnalyticsCmd())
	return cmd
}

func newWorkflowCreateCmd() *cobra.Command {
	var (
		configPath string
		anomalyID  string
		templateID string
		title      string
		priority   string
		actionFile string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workflow for an anomaly",
		Long: `Creates a workflow from a template (--template) or from a YAML file of
action definitions (--title plus --actions). An anomaly carries at most one
workflow; creating a second one replaces the first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if templateID == "" && actionFile == "" {
				return fmt.Errorf("either --template or --actions is required")
			}
			if templateID != "" && actionFile != "" {
				return fmt.Errorf("--template and --actions are mutually exclusive")
			}

			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			var result *workflow.CreateResult
			if templateID != "" {
				result, err = workflow.CreateFromTemplate(gormDB, anomalyID, templateID)
			} else {
				if title == "" {
					return fmt.Errorf("--title is required with --actions")
				}
				var defs []workflow.ActionDef
				defs, err = loadActionDefs(actionFile)
				if err != nil {
					return err
				}
				result, err = workflow.CreateCustom(gormDB, anomalyID, title, priority, defs)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Replaced != nil {
				fmt.Fprintf(out, "Replaced workflow %s (%s)\n", result.Replaced.ID, result.Replaced.Title)
			}
			wf := result.Workflow
			fmt.Fprintf(out, "Created workflow %s for anomaly %s with %d actions (estimate %s)\n",
				wf.ID, wf.AnomalyID, len(wf.Actions), workflow.FormatDuration(wf.EstimatedDuration))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().StringVarP(&anomalyID, "anomaly", "a", "", "anomaly ID the workflow belongs to")
	cmd.Flags().StringVarP(&templateID, "template", "t", "", "template ID to instantiate")
	cmd.Flags().StringVar(&title, "title", "", "workflow title (custom workflows)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "workflow priority (custom workflows)")
	cmd.Flags().StringVar(&actionFile, "actions", "", "YAML file of action definitions (custom workflows)")
	cmd.MarkFlagRequired("anomaly")
	return cmd
}

// loadActionDefs reads a YAML file holding a list of action definitions.
func loadActionDefs(path string) ([]workflow.ActionDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read actions file: %w", err)
	}
	var defs []workflow.ActionDef
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse actions file %s: %w", path, err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("actions file %s defines no actions", path)
	}
	return defs, nil
}

func newWorkflowListCmd() *cobra.Command {
	var (
		configPath string
		filters    workflow.Filters
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			workflows, err := workflow.List(gormDB, filters)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(workflows) == 0 {
				fmt.Fprintln(out, "No workflows found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tANOMALY\tTITLE\tSTATUS\tPRIORITY\tASSIGNEE\tESTIMATE")
			for _, wf := range workflows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					wf.ID, wf.AnomalyID, truncate(wf.Title, 40),
					workflow.GetStatusConfig(wf.Status).Label, wf.Priority,
					dash(wf.AssignedTo), workflow.FormatDuration(wf.EstimatedDuration))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().StringVarP(&filters.Status, "status", "s", "", "filter by status")
	cmd.Flags().StringVarP(&filters.Priority, "priority", "p", "", "filter by priority")
	cmd.Flags().StringVar(&filters.AssignedTo, "assignee", "", "filter by assignee")
	cmd.Flags().StringVarP(&filters.TemplateID, "template", "t", "", "filter by template ID")
	return cmd
}

func newWorkflowShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a workflow with its actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			wf, err := workflow.Get(gormDB, args[0])
			if err != nil {
				return err
			}

			printWorkflow(cmd, wf)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	return cmd
}

func printWorkflow(cmd *cobra.Command, wf *models.MaintenanceWorkflow) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:        %s\n", wf.ID)
	fmt.Fprintf(out, "Anomaly:   %s\n", wf.AnomalyID)
	fmt.Fprintf(out, "Title:     %s\n", wf.Title)
	fmt.Fprintf(out, "Status:    %s\n", workflow.GetStatusConfig(wf.Status).Label)
	fmt.Fprintf(out, "Priority:  %s\n", wf.Priority)
	if wf.TemplateID != nil {
		fmt.Fprintf(out, "Template:  %s\n", *wf.TemplateID)
	}
	if wf.AssignedTo != "" {
		fmt.Fprintf(out, "Assignee:  %s\n", wf.AssignedTo)
	}
	fmt.Fprintf(out, "Estimate:  %s\n", workflow.FormatDuration(wf.EstimatedDuration))
	fmt.Fprintf(out, "Progress:  %d%%\n", workflow.CalculateProgress(wf.Actions))

	if len(wf.Actions) == 0 {
		return
	}

	fmt.Fprintln(out, "\nActions:")
	for _, a := range wf.Actions {
		ready := ""
		if a.Status == workflow.StatusPending && workflow.CanActionStart(a, wf.Actions) {
			ready = " (ready)"
		}
		fmt.Fprintf(out, "  %d. [%s] %s  %s%s\n",
			a.Position, a.ID, truncate(a.Title, 50),
			workflow.GetStatusConfig(a.Status).Label, ready)
		if len(a.Deps) > 0 {
			blockers := make([]string, 0, len(a.Deps))
			for _, d := range a.Deps {
				blockers = append(blockers, d.DependsOn)
			}
			fmt.Fprintf(out, "     waits on: %s\n", strings.Join(blockers, ", "))
		}
		for _, cp := range a.Checkpoints {
			box := "[ ]"
			if cp.Completed {
				box = "[x]"
			}
			fmt.Fprintf(out, "     %s %s (%s)\n", box, cp.Title, cp.ID)
		}
		for _, n := range a.Notes {
			fmt.Fprintf(out, "     note %s: %s\n", n.CreatedAt.Format("2006-01-02 15:04"), truncate(n.Content, 60))
		}
	}
}

func newWorkflowUpdateCmd() *cobra.Command {
	var (
		configPath string
		status     string
		priority   string
		assignee   string
		title      string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update workflow fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updates := map[string]interface{}{}
			if cmd.Flags().Changed("status") {
				updates["status"] = status
			}
			if cmd.Flags().Changed("priority") {
				updates["priority"] = priority
			}
			if cmd.Flags().Changed("assignee") {
				updates["assigned_to"] = assignee
			}
			if cmd.Flags().Changed("title") {
				updates["title"] = title
			}
			if len(updates) == 0 {
				return fmt.Errorf("nothing to update; pass at least one of --status, --priority, --assignee, --title")
			}

			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			wf, err := workflow.Update(gormDB, args[0], updates)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Updated workflow %s (%s, %s)\n",
				wf.ID, workflow.GetStatusConfig(wf.Status).Label, wf.Priority)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().StringVarP(&status, "status", "s", "", "new status")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "new priority")
	cmd.Flags().StringVar(&assignee, "assignee", "", "new assignee")
	cmd.Flags().StringVar(&title, "title", "", "new title")
	return cmd
}

func newWorkflowDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a workflow and everything it owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			if err := workflow.Delete(gormDB, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted workflow %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	return cmd
}

func newWorkflowAnalyticsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "analytics <id>",
		Short: "Show derived statistics for a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			a, err := workflow.WorkflowAnalytics(gormDB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Actions:     %d total, %d completed\n", a.TotalActions, a.CompletedActions)
			fmt.Fprintf(out, "Progress:    %d%%\n", a.ProgressPercentage)
			fmt.Fprintf(out, "Overdue:     %d\n", a.OverdueActions)
			fmt.Fprintf(out, "Blocked:     %d\n", a.BlockedActions)
			if a.AverageCompletionTime > 0 {
				fmt.Fprintf(out, "Avg. actual: %s\n", workflow.FormatDuration(int(a.AverageCompletionTime)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	return cmd
}
