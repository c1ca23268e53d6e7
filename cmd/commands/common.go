package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/dayplan/clients/api"
	"github.com/dohr-michael/dayplan/internal/auth"
	"github.com/dohr-michael/dayplan/internal/config"
	"github.com/dohr-michael/dayplan/internal/planner"
	"github.com/dohr-michael/dayplan/internal/secrets"
	"github.com/dohr-michael/dayplan/internal/storage/sqlite"
	"github.com/dohr-michael/dayplan/internal/tasks"
)

// setupLogging installs the default logger. Commands that own stdout
// (mcp-serve) pass a quieter level.
func setupLogging(cmd *cli.Command, level slog.Level) {
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	configPath := cmd.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	return cfg, nil
}

// localStorage is the gateway-side persistence selected by the config.
type localStorage struct {
	Tasks tasks.Store
	Auth  *auth.Service
	close func() error
}

func (s *localStorage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// openStorage opens the task store and the account database. Accounts
// always live in sqlite; with the file driver the database sits next to
// the task directory.
func openStorage(ctx context.Context, cfg *config.Config) (*localStorage, error) {
	dbPath := cfg.Storage.Path
	if cfg.Storage.Driver == config.DriverFile {
		dbPath = filepath.Join(cfg.Storage.Path, "accounts.db")
	}
	db, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	s := &localStorage{
		Auth:  auth.NewService(auth.NewSQLStore(db)),
		close: db.Close,
	}
	switch cfg.Storage.Driver {
	case config.DriverFile:
		s.Tasks = tasks.NewFileStore(cfg.Storage.Path)
	default:
		s.Tasks = tasks.NewSQLStore(db)
	}
	slog.Debug("storage opened", "driver", cfg.Storage.Driver, "path", cfg.Storage.Path)
	return s, nil
}

// session is a logged-in client of the gateway.
type session struct {
	client   *api.Client
	creds    *config.Credentials
	identity planner.Identity
}

func newAPIClient(cfg *config.Config) *api.Client {
	return api.New(cfg.Client.GatewayURL, cfg.Client.RequestTimeout.Duration())
}

func openKeyring() (*secrets.Keyring, error) {
	return secrets.OpenKeyring(secrets.KeyPath())
}

// loadSession reads the saved credentials and unseals the token. The
// gateway they were issued by wins over the configured one.
func loadSession(cfg *config.Config) (*session, error) {
	creds, err := config.LoadCredentials(config.CredentialsPath())
	if err != nil {
		return nil, err
	}
	kr, err := openKeyring()
	if err != nil {
		return nil, err
	}
	token, err := kr.Reveal(creds.Token)
	if err != nil {
		return nil, fmt.Errorf("unseal session token: %w", err)
	}
	url := cfg.Client.GatewayURL
	if creds.GatewayURL != "" {
		url = creds.GatewayURL
	}
	return &session{
		client:   api.New(url, cfg.Client.RequestTimeout.Duration()),
		creds:    creds,
		identity: planner.Identity{Token: token},
	}, nil
}

func (s *session) coordinator(cfg *config.Config, opts ...planner.Option) *planner.Coordinator {
	opts = append([]planner.Option{
		planner.WithLogger(slog.Default()),
		planner.WithDebounce(cfg.Sync.Debounce.Duration()),
		planner.WithRequestTimeout(cfg.Client.RequestTimeout.Duration()),
	}, opts...)
	return planner.New(s.client, s.identity, opts...)
}

// explain turns a session-expired error into a hint.
func explain(err error) error {
	if errors.Is(err, auth.ErrUnauthorized) {
		return fmt.Errorf("%w (session expired, run `dayplan login`)", err)
	}
	return err
}
