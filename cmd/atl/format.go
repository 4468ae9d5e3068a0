package main

import (
	"fmt"

	"github.com/nbousseta/atelier/internal/config"
	"github.com/nbousseta/atelier/internal/db"
	"gorm.io/gorm"
)

// connectFromConfig loads config and returns a GORM DB connection.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("connect storage: %w", err)
	}

	return cfg, gormDB, nil
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// dash substitutes "-" for an empty value in table output.
func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
