package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/dohr-michael/dayplan/internal/assistant"
	"github.com/dohr-michael/dayplan/internal/config"
	"github.com/dohr-michael/dayplan/internal/events"
	"github.com/dohr-michael/dayplan/internal/gateway"
	"github.com/dohr-michael/dayplan/internal/heartbeat"
	"github.com/dohr-michael/dayplan/internal/storage"
	"github.com/dohr-michael/dayplan/internal/tasks"
)

// NewServeCommand returns the serve subcommand.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the dayplan gateway server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd, slog.LevelInfo)

	configPath := cmd.String("config")
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = cmd.Int("port")
	}

	st, err := openStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer st.Close()

	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()

	journal := storage.NewJournal(config.ActivityDir(), bus)
	defer journal.Close()

	server := gateway.NewServer(bus, st.Tasks, st.Auth, cfg.Gateway.Host, cfg.Gateway.Port)
	server.SetJournal(journal)

	// Assistant writes go through their own observer so the activity
	// feed records where a change came from.
	assistantStore := tasks.Observe(st.Tasks, bus, events.SourceAssistant)
	applyAssistant := func(ctx context.Context, cfg *config.Config) {
		chat, err := newAssistant(ctx, cfg, assistantStore, bus)
		if err != nil {
			slog.Warn("assistant disabled", "error", err)
			server.SetChatter(nil)
			return
		}
		if chat == nil {
			slog.Info("assistant disabled, no api key configured")
			server.SetChatter(nil)
			return
		}
		server.SetChatter(chat)
		slog.Info("assistant enabled", "model", cfg.Assistant.Model)
	}
	applyAssistant(ctx, cfg)

	reloader := config.NewReloader(configPath, config.DotenvPath(), cfg)
	reloader.OnReload(func(c config.Change) {
		if c.Has("assistant") {
			applyAssistant(ctx, c.Current)
		}
	})

	addr := fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
	hb := heartbeat.NewWriter(config.HeartbeatPath(), addr, cfg.Storage.Driver, cfg.Heartbeat.Interval.Duration())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return hb.Run(gctx) })
	g.Go(func() error { return watchReload(gctx, reloader) })
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newAssistant returns nil when no api key is configured.
func newAssistant(ctx context.Context, cfg *config.Config, store tasks.Store, bus *events.Bus) (*assistant.Assistant, error) {
	if !cfg.Assistant.Enabled() {
		return nil, nil
	}
	kr, err := openKeyring()
	if err != nil {
		return nil, err
	}
	apiKey, err := kr.Reveal(cfg.Assistant.APIKey)
	if err != nil {
		return nil, fmt.Errorf("unseal api key: %w", err)
	}
	model, err := assistant.NewGeminiModel(ctx, apiKey, cfg.Assistant.Model)
	if err != nil {
		return nil, err
	}
	return assistant.New(model, store,
		assistant.WithLogger(slog.Default()),
		assistant.WithBus(bus),
		assistant.WithHistorySize(cfg.Assistant.HistorySize),
		assistant.WithMaxToolRounds(cfg.Assistant.MaxToolRounds),
	), nil
}

// watchReload reloads the config on SIGHUP until ctx is done.
func watchReload(ctx context.Context, r *config.Reloader) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			if _, err := r.Reload(); err != nil {
				slog.Error("config reload failed", "error", err)
			}
		}
	}
}
