package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/nbousseta/atelier/internal/catalog"
	"github.com/nbousseta/atelier/internal/models"
	"github.com/nbousseta/atelier/internal/workflow"
	"github.com/spf13/cobra"
)

func newTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Template catalog commands",
	}

	cmd.AddCommand(newTemplateListCmd())
	cmd.AddCommand(newTemplateShowCmd())
	return cmd
}

func newTemplateListCmd() *cobra.Command {
	var (
		configPath string
		all        bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List maintenance templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			templates, err := catalog.ListTemplates(gormDB, all)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(templates) == 0 {
				fmt.Fprintln(out, "No templates found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tSTEPS\tESTIMATE\tACTIVE")
			for _, t := range templates {
				active := "yes"
				if !t.Active {
					active = "no"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					t.ID, truncate(t.Name, 40), dash(t.Category), len(t.Actions),
					workflow.FormatDuration(t.EstimatedTotal), active)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().BoolVar(&all, "all", false, "include inactive templates")
	return cmd
}

func newTemplateShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show template details",
		Long:  "Displays a template's ordered actions with dependencies, checkpoints, and resource requirements.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			t, err := catalog.GetTemplate(gormDB, args[0])
			if err != nil {
				return err
			}
			if t == nil {
				return fmt.Errorf("template %s not found", args[0])
			}

			printTemplate(cmd, t)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	return cmd
}

func printTemplate(cmd *cobra.Command, t *models.MaintenanceTemplate) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:          %s\n", t.ID)
	fmt.Fprintf(out, "Name:        %s\n", t.Name)
	if t.Category != "" {
		fmt.Fprintf(out, "Category:    %s\n", t.Category)
	}
	if eq := models.DecodeStrings(t.EquipmentTypes); len(eq) > 0 {
		fmt.Fprintf(out, "Equipment:   %s\n", strings.Join(eq, ", "))
	}
	fmt.Fprintf(out, "Estimate:    %s\n", workflow.FormatDuration(t.EstimatedTotal))
	fmt.Fprintf(out, "Active:      %t\n", t.Active)

	if t.Description != "" {
		fmt.Fprintf(out, "\nDescription:\n%s\n", t.Description)
	}

	if len(t.Actions) > 0 {
		fmt.Fprintln(out, "\nActions:")
		for _, a := range t.Actions {
			fmt.Fprintf(out, "  %d. %s (%s, %s)\n",
				a.Position, a.Title, a.Type, workflow.FormatDuration(a.EstimatedDuration))
			if deps := models.DecodeStrings(a.DependsOn); len(deps) > 0 {
				fmt.Fprintf(out, "     waits on: %s\n", strings.Join(deps, ", "))
			}
			if res := models.DecodeStrings(a.Resources); len(res) > 0 {
				fmt.Fprintf(out, "     needs: %s\n", strings.Join(res, ", "))
			}
			for _, cp := range a.Checkpoints {
				marker := " "
				if cp.IsMandatory {
					marker = "*"
				}
				fmt.Fprintf(out, "     [%s] %s\n", marker, cp.Title)
			}
		}
	}
}
