package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/dohr-michael/dayplan/internal/render"
)

// NewChatCommand returns the chat subcommand.
func NewChatCommand() *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Ask the assistant to read or change your tasks",
		ArgsUsage: "<message>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "Print the reply without markdown rendering",
			},
		},
		Action: runChat,
	}
}

func runChat(ctx context.Context, cmd *cli.Command) error {
	message := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("usage: dayplan chat <message>")
	}

	setupLogging(cmd, slog.LevelWarn)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sess, err := loadSession(cfg)
	if err != nil {
		return err
	}

	reply, err := sess.client.SendMessage(ctx, sess.identity, message)
	if err != nil {
		return explain(err)
	}

	if cmd.Bool("raw") || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println(reply)
		return nil
	}
	fmt.Println(render.Markdown(reply, terminalWidth()))
	return nil
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return render.DefaultWidth
	}
	return w
}
