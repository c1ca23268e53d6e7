package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/dohr-michael/dayplan/internal/config"
	"github.com/dohr-michael/dayplan/internal/secrets"
)

// NewSecretCommand returns the secret subcommand.
func NewSecretCommand() *cli.Command {
	return &cli.Command{
		Name:  "secret",
		Usage: "Manage sealed values in the .env file",
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Seal a value and store it in .env (e.g. GEMINI_API_KEY)",
				ArgsUsage: "<KEY>",
				Action:    runSecretSet,
			},
			{
				Name:      "unset",
				Usage:     "Remove a key from .env",
				ArgsUsage: "<KEY>",
				Action:    runSecretUnset,
			},
			{
				Name:  "recipient",
				Usage: "Print the public key values are sealed to",
				Action: func(_ context.Context, _ *cli.Command) error {
					kr, err := openKeyring()
					if err != nil {
						return err
					}
					fmt.Println(kr.Recipient())
					return nil
				},
			},
		},
	}
}

func runSecretSet(_ context.Context, cmd *cli.Command) error {
	setupLogging(cmd, slog.LevelWarn)
	key := cmd.Args().First()
	if key == "" {
		return fmt.Errorf("usage: dayplan secret set <KEY>")
	}

	value, err := readSecret(key)
	if err != nil {
		return err
	}
	kr, err := openKeyring()
	if err != nil {
		return err
	}
	sealed, err := kr.Seal(value)
	if err != nil {
		return err
	}
	if err := secrets.SetEnv(config.DotenvPath(), key, sealed); err != nil {
		return err
	}
	fmt.Printf("%s sealed in %s. Reference it as ${{ .Env.%s }} in the config.\n", key, config.DotenvPath(), key)
	return nil
}

func runSecretUnset(_ context.Context, cmd *cli.Command) error {
	key := cmd.Args().First()
	if key == "" {
		return fmt.Errorf("usage: dayplan secret unset <KEY>")
	}
	return secrets.UnsetEnv(config.DotenvPath(), key)
}

func readSecret(key string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(os.Stdin)
	}
	fmt.Fprintf(os.Stderr, "%s: ", key)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read value: %w", err)
	}
	return string(b), nil
}
