package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"arxidemo/internal/config"
	"arxidemo/internal/contact"
	"arxidemo/internal/db"
	"arxidemo/internal/events"
	"arxidemo/internal/migrate"
	"arxidemo/internal/repo"
	"arxidemo/internal/session"
	"arxidemo/internal/tour"
)

// App bundles what every command needs: configuration, the workspace
// database and a logger.
type App struct {
	Workspace string
	Config    *config.Config
	DB        *sql.DB
	Repo      repo.Repo
	Events    events.Writer
	Log       *slog.Logger
	// Getenv resolves secrets named in the config.
	Getenv func(string) string
}

// Open loads the workspace config (defaults when arxidemo.yml is absent),
// opens the database and applies migrations.
func Open(ctx context.Context, workspace string, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	version, err := migrate.Migrate(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate %s: %w", db.Path(workspace), err)
	}
	log.Debug("database ready", "path", db.Path(workspace), "schema_version", version)
	return &App{
		Workspace: workspace,
		Config:    cfg,
		DB:        conn,
		Repo:      repo.Repo{DB: conn},
		Events:    events.Writer{DB: conn},
		Log:       log,
		Getenv:    os.Getenv,
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// TourSettings maps the tour and notification sections onto reducer settings.
func TourSettings(cfg *config.Config) tour.Settings {
	return tour.Settings{
		ImportDelay:       cfg.Tour.ImportDelay,
		ExecutionDelayMin: cfg.Tour.ExecutionDelayMin,
		ExecutionDelayMax: cfg.Tour.ExecutionDelayMax,
		DraftDelay:        cfg.Tour.DraftDelay,
		NotificationLimit: cfg.Notifications.Limit,
		NotificationTTL:   cfg.Notifications.TTL,
		CascadeDelete:     cfg.Store.CascadeDelete,
	}
}

// Registry builds the session registry. Session lifecycle changes are
// written to the event log.
func (a *App) Registry(seed int64) (*session.Registry, error) {
	record := func(typ string) func(string) {
		return func(id string) {
			if err := a.Events.Append(context.Background(), typ, "session", id, "api", nil); err != nil {
				a.Log.Warn("record session event failed", "type", typ, "session", id, "error", err)
			}
		}
	}
	return session.NewRegistry(session.RegistryConfig{
		MaxSessions: a.Config.Sessions.Max,
		Settings:    TourSettings(a.Config),
		Empty:       !a.Config.Store.Seed,
		Seed:        seed,
		Logger:      a.Log,
		OnCreate:    record(events.SessionCreated),
		OnComplete:  record(events.TourCompleted),
		OnClose:     record(events.SessionClosed),
	})
}

// Relay builds the demo-request relay. The access key is read from the
// environment variable named in the config.
func (a *App) Relay() *contact.Relay {
	c := a.Config.Contact
	key := ""
	if c.AccessKeyEnv != "" {
		key = a.Getenv(c.AccessKeyEnv)
	}
	return contact.New(contact.Config{
		Endpoint:        c.Endpoint,
		AccessKey:       key,
		FromName:        c.FromName,
		Subject:         c.Subject,
		FallbackAddress: c.FallbackAddress,
		Cooldown:        c.Cooldown,
		Timeout:         c.Timeout,
	}, a.Repo, contact.WithLogger(a.Log))
}

// JWTSecret returns the signing secret for session tokens.
func (a *App) JWTSecret() (string, error) {
	name := a.Config.Sessions.JWTSecretEnv
	secret := a.Getenv(name)
	if secret == "" {
		return "", fmt.Errorf("%s is required for session tokens", name)
	}
	return secret, nil
}
