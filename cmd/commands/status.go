package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/dayplan/internal/config"
	"github.com/dohr-michael/dayplan/internal/heartbeat"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show gateway and session status",
		Action: runStatus,
	}
}

func runStatus(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd, slog.LevelWarn)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	status, hb, err := heartbeat.Check(config.HeartbeatPath(), cfg.Heartbeat.StaleAfter.Duration())
	if err != nil {
		return fmt.Errorf("check heartbeat: %w", err)
	}

	switch status {
	case heartbeat.StatusAlive:
		fmt.Printf("Gateway: ALIVE (PID %d, %s, storage %s, uptime %s)\n", hb.PID, hb.Addr, hb.Storage, hb.Uptime)
	case heartbeat.StatusStale:
		fmt.Printf("Gateway: STALE (PID %d, last heartbeat %s ago)\n",
			hb.PID, time.Since(hb.Timestamp).Truncate(time.Second))
	case heartbeat.StatusDead:
		fmt.Println("Gateway: NOT RUNNING")
	}

	sess, err := loadSession(cfg)
	switch {
	case errors.Is(err, config.ErrNotLoggedIn):
		fmt.Println("Session: not logged in")
		return nil
	case err != nil:
		return err
	}
	fmt.Printf("Session: %s at %s\n", sess.creds.Email, sess.client.BaseURL())

	if _, err := sess.client.Health(ctx); err != nil {
		fmt.Printf("Health:  unreachable (%v)\n", err)
		return nil
	}
	fmt.Println("Health:  ok")
	return nil
}
