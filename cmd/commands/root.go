package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/dayplan/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "dayplan",
		Usage: "A date-bucketed task planner with an assistant",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewServeCommand(),
			NewSignupCommand(),
			NewLoginCommand(),
			NewLogoutCommand(),
			NewTasksCommand(),
			NewChatCommand(),
			NewWatchCommand(),
			NewActivityCommand(),
			NewStatusCommand(),
			NewSecretCommand(),
			NewMCPServeCommand(),
		},
	}
}
