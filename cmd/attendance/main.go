package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/config"
	"github.com/example/attendance-engine/internal/logging"
	"github.com/example/attendance-engine/internal/observability"
	"github.com/example/attendance-engine/internal/persistence/sqlite"
)

func main() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:  "attendance",
		Usage: "Record attendance, review excuses and report compliance.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "metrics-file", Usage: "write Prometheus metrics to this textfile after the command"},
		},
		Commands: []*cli.Command{
			migrateCommand(stdout, stderr),
			registerUserCommand(stdout, stderr),
			createPeriodCommand(stdout, stderr),
			importCommand(stdout, stderr),
			reportCommand(stdout, stderr),
			repairTimesCommand(stdout, stderr),
			serveCommand(stderr),
		},
		After: func(c *cli.Context) error {
			if path := c.String("metrics-file"); path != "" {
				return observability.WriteTextfile(path)
			}
			return nil
		},
		Writer:    stdout,
		ErrWriter: stderr,
	}
}

// environment is the wiring shared by every command.
type environment struct {
	cfg    config.Config
	logger *slog.Logger
	store  *sqlite.Store
	deps   application.Dependencies
}

func openEnvironment(ctx context.Context, stderr io.Writer) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.New(stderr, cfg.LogLevel, cfg.LogFormat)

	store, err := sqlite.Open(ctx, cfg.Store())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	applied, err := store.Migrate(ctx, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	logger.Debug("storage ready", "driver", cfg.DBDriver, "migrations_applied", applied)

	return &environment{
		cfg:    cfg,
		logger: logger,
		store:  store,
		deps: application.Dependencies{
			Store:       store,
			IDGenerator: uuid.NewString,
			Now:         time.Now,
			Location:    cfg.Location,
			Logger:      logger,
		},
	}, nil
}

func (e *environment) Close() {
	if err := e.store.Close(); err != nil {
		e.logger.Error("failed to close storage", "error", err)
	}
}

// principal resolves the acting user from the --as flag.
func (e *environment) principal(ctx context.Context, userID string) (application.Principal, error) {
	if userID == "" {
		return application.Principal{}, nil
	}
	user, err := application.NewUserService(e.deps).GetUser(ctx, userID)
	if err != nil {
		return application.Principal{}, fmt.Errorf("resolve --as %s: %w", userID, err)
	}
	return application.Principal{UserID: user.ID, IsAdmin: user.IsAdmin}, nil
}

func (e *environment) importOptions() application.ImportOptions {
	return application.ImportOptions{
		Schedule:           e.cfg.Schedule(),
		AttendanceTrailing: e.cfg.Import.AttendanceTrailing,
		OutreachTrailing:   e.cfg.Import.OutreachTrailing,
	}
}
