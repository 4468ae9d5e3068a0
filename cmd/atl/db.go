package main

import (
	"fmt"

	"github.com/nbousseta/atelier/internal/catalog"
	"github.com/nbousseta/atelier/internal/db"
	"github.com/spf13/cobra"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBMigrateCmd())
	cmd.AddCommand(newDBSeedCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the schema and seed the catalog",
		Long:  "Runs migrations and seeds templates and resources from the configured catalog file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(gormDB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema up to date.")

			f, err := catalog.LoadFile(cfg.Catalog.Path)
			if err != nil {
				return err
			}
			if err := db.SeedCatalog(gormDB, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d templates and %d resources from %s\n",
				len(f.Templates), len(f.Resources), cfg.Catalog.Path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	return cmd
}

func newDBMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(gormDB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema up to date.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	return cmd
}

func newDBSeedCmd() *cobra.Command {
	var (
		configPath  string
		catalogPath string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed templates and resources from the catalog",
		Long:  "Upserts templates and resources from the catalog file. Template action lists are replaced wholesale; live workflows are untouched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			path := catalogPath
			if path == "" {
				path = cfg.Catalog.Path
			}
			f, err := catalog.LoadFile(path)
			if err != nil {
				return err
			}
			if err := db.SeedCatalog(gormDB, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d templates and %d resources from %s\n",
				len(f.Templates), len(f.Resources), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "catalog file (defaults to the configured path)")
	return cmd
}
