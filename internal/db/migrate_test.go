package db

import (
	"testing"

	"github.com/helmdesk/helmdesk/internal/config"
)

func TestRunMigrateUnknownCommand(t *testing.T) {
	cfg := config.PostgresConfig{
		Host:     "127.0.0.1",
		Port:     5432,
		User:     "postgres",
		Database: "helmdesk",
		SSLMode:  "disable",
	}
	if err := RunMigrate(nil, cfg, nil, "invalid", nil); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestRunMigrateForceRequiresVersion(t *testing.T) {
	if err := RunMigrate(nil, config.PostgresConfig{}, nil, "force", nil); err == nil {
		t.Fatal("expected error when force has no version argument")
	}
}
