package main

import (
	"fmt"

	"github.com/nbousseta/atelier/internal/workflow"
	"github.com/spf13/cobra"
)

func newCheckpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Checkpoint commands",
	}

	cmd.AddCommand(newCheckpointCheckCmd())
	cmd.AddCommand(newCheckpointUncheckCmd())
	cmd.AddCommand(newCheckpointAddCmd())
	return cmd
}

func newCheckpointCheckCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "check <action-id> <checkpoint-id>",
		Short: "Mark a checkpoint completed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			cp, err := workflow.UpdateCheckpoint(gormDB, args[0], args[1], true)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Checked %s (%s)\n", cp.ID, cp.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	return cmd
}

func newCheckpointUncheckCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "uncheck <action-id> <checkpoint-id>",
		Short: "Reopen a checkpoint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			cp, err := workflow.UpdateCheckpoint(gormDB, args[0], args[1], false)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unchecked %s (%s)\n", cp.ID, cp.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	return cmd
}

func newCheckpointAddCmd() *cobra.Command {
	var (
		configPath string
		def        workflow.CheckpointDef
	)

	cmd := &cobra.Command{
		Use:   "add <action-id>",
		Short: "Append a checkpoint to an action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			cp, err := workflow.AddCheckpoint(gormDB, args[0], def)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added checkpoint %s at position %d (%s)\n",
				cp.ID, cp.Position, cp.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().StringVar(&def.Title, "title", "", "checkpoint title")
	cmd.Flags().StringVar(&def.Description, "description", "", "checkpoint description")
	cmd.Flags().BoolVar(&def.Mandatory, "mandatory", false, "block action completion until checked")
	cmd.MarkFlagRequired("title")
	return cmd
}
