package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/helmdesk/helmdesk/cmd/server/modules"
	"github.com/helmdesk/helmdesk/db"
	"github.com/helmdesk/helmdesk/internal/config"
	internaldb "github.com/helmdesk/helmdesk/internal/db"
	"github.com/helmdesk/helmdesk/internal/logger"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fx.New(
		modules.InfrastructureModule,
		modules.ChannelModule,
		modules.DomainModule,
		modules.ServerModule,
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func runMigrate(args []string) error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	command := "up"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}
	migrations, err := fs.Sub(db.MigrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	return internaldb.RunMigrate(logger.L, cfg.Postgres, migrations, command, args)
}
