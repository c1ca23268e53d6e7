package commands

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	wsclient "github.com/dohr-michael/dayplan/clients/ws"
	"github.com/dohr-michael/dayplan/internal/calendar"
	"github.com/dohr-michael/dayplan/internal/events"
	wsprotocol "github.com/dohr-michael/dayplan/internal/gateway/ws"
	"github.com/dohr-michael/dayplan/internal/planner"
	"github.com/dohr-michael/dayplan/internal/render"
	"github.com/dohr-michael/dayplan/internal/scheduler"
	"github.com/dohr-michael/dayplan/internal/tasks"
)

const refreshJob = "refresh"

// NewWatchCommand returns the watch subcommand.
func NewWatchCommand() *cli.Command {
	return &cli.Command{
		Name:   "watch",
		Usage:  "Show the board and redraw it when tasks change",
		Flags:  []cli.Flag{filterFlag()},
		Action: runWatch,
	}
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd, slog.LevelWarn)
	mode, err := modeFlag(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sess, err := loadSession(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	coord := sess.coordinator(cfg, planner.WithFilter(mode))
	defer coord.Close()
	if err := coord.Load(ctx); err != nil {
		return explain(err)
	}

	conn, err := wsclient.Dial(ctx, wsclient.EventsURL(sess.client.BaseURL()), sess.identity.Token)
	if err != nil {
		return fmt.Errorf("connect to gateway: %w", err)
	}
	defer conn.Close()
	if _, err := conn.Request(wsprotocol.MethodPing, nil); err != nil {
		return fmt.Errorf("ping gateway: %w", err)
	}

	redraw := make(chan string, 1)
	notify := func(reason string) {
		select {
		case redraw <- reason:
		default:
		}
	}

	// Reload at the configured time so auto-complete runs after midnight
	// even on a quiet board.
	sched := scheduler.New(scheduler.WithLogger(slog.Default()))
	if err := sched.Add(refreshJob, cfg.Sync.RefreshCron, func(ctx context.Context) error {
		if err := coord.Load(ctx); err != nil {
			return err
		}
		notify("scheduled refresh")
		return nil
	}); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	streamErr := make(chan error, 1)
	go func() {
		for {
			e, err := conn.ReadEvent()
			if err != nil {
				streamErr <- err
				return
			}
			if !slices.Contains(events.TaskEvents, e.Type) {
				continue
			}
			if err := coord.Load(ctx); err != nil {
				slog.Warn("refresh failed", "error", err)
				continue
			}
			notify(string(e.Type))
		}
	}()

	footer := func(reason string) string {
		parts := []string{reason, tasksSummary(coord.Snapshot().Tasks)}
		if next, ok := sched.NextRun(refreshJob, timeNow()); ok {
			parts = append(parts, "next refresh "+nextRefresh(next, timeNow()))
		}
		return strings.Join(append(parts, "ctrl+c to quit"), " · ")
	}

	draw(coord, footer("loaded"))
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-streamErr:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("event stream: %w", err)
		case reason := <-redraw:
			draw(coord, footer(reason))
		}
	}
}

func draw(coord *planner.Coordinator, footer string) {
	// Clear screen, cursor home.
	fmt.Print("\033[H\033[2J")
	fmt.Println(render.Board(coord.Board()))
	fmt.Println(render.MutedStyle.Render("\n" + footer))
}

// nextRefresh formats a run time relative to now: a clock time today,
// otherwise weekday and clock.
func nextRefresh(next, now time.Time) string {
	in := next.Sub(now).Round(time.Minute)
	if calendar.Today(next) == calendar.Today(now) {
		return fmt.Sprintf("%s (in %s)", next.Format("15:04"), in)
	}
	return fmt.Sprintf("%s (in %s)", next.Format("Mon 15:04"), in)
}

func tasksSummary(list []tasks.Task) string {
	done := 0
	for _, t := range list {
		if t.Done {
			done++
		}
	}
	return fmt.Sprintf("%d/%d done", done, len(list))
}
