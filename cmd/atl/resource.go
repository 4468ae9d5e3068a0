package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/nbousseta/atelier/internal/catalog"
	"github.com/spf13/cobra"
)

func newResourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource",
		Short: "Resource catalog commands",
	}

	cmd.AddCommand(newResourceListCmd())
	return cmd
}

func newResourceListCmd() *cobra.Command {
	var (
		configPath   string
		resourceType string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			resources, err := catalog.ListResources(gormDB, resourceType)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(resources) == 0 {
				fmt.Fprintln(out, "No resources found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tQTY\tUNIT COST\tSUPPLIER")
			for _, r := range resources {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d %s\t%.2f\t%s\n",
					r.ID, truncate(r.Name, 40), r.Type, r.Quantity, r.Unit, r.UnitCost, dash(r.Supplier))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().StringVar(&resourceType, "type", "", "filter by type (part, consumable, human)")
	return cmd
}
