package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/dayplan/internal/assistant"
	"github.com/dohr-michael/dayplan/internal/config"
	"github.com/dohr-michael/dayplan/internal/events"
	dayplanmcp "github.com/dohr-michael/dayplan/internal/mcp"
	"github.com/dohr-michael/dayplan/internal/storage"
	"github.com/dohr-michael/dayplan/internal/tasks"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewMCPServeCommand returns the mcp-serve subcommand.
func NewMCPServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp-serve",
		Usage: "Expose the task tools of one account as an MCP server (stdio)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Aliases:  []string{"e"},
				Usage:    "Account whose tasks the tools act on",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "only",
				Usage: "Tool name to expose (repeatable, empty = all)",
			},
		},
		Action: runMCPServe,
	}
}

func runMCPServe(ctx context.Context, cmd *cli.Command) error {
	// Logs go to stderr; stdout carries the MCP stdio transport.
	setupLogging(cmd, slog.LevelWarn)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, err := openStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer st.Close()

	user, err := st.Auth.Lookup(ctx, cmd.String("email"))
	if err != nil {
		return err
	}

	// MCP writes land in the same activity journal as gateway writes.
	bus := events.NewBus(64)
	defer bus.Close()
	journal := storage.NewJournal(config.ActivityDir(), bus)
	defer journal.Close()

	toolset := assistant.NewToolset(tasks.Observe(st.Tasks, bus, events.SourceMCP), nil)
	only := cmd.StringSlice("only")

	slog.Debug("starting MCP server", "user", user.Email, "only", only)

	server := dayplanmcp.NewMCPServer(toolset, user.ID, only...)
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}
