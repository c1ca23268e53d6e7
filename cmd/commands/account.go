package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/dohr-michael/dayplan/internal/config"
)

func emailFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "email",
		Aliases:  []string{"e"},
		Usage:    "Account email",
		Required: true,
	}
}

func passwordFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "password",
		Usage:   "Account password (prompted when omitted)",
		Sources: cli.EnvVars("DAYPLAN_PASSWORD"),
	}
}

// NewSignupCommand returns the signup subcommand.
func NewSignupCommand() *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "Create an account on the gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "name",
				Aliases:  []string{"n"},
				Usage:    "Display name",
				Required: true,
			},
			emailFlag(),
			passwordFlag(),
		},
		Action: runSignup,
	}
}

func runSignup(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd, slog.LevelWarn)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	client := newAPIClient(cfg)
	if _, err := client.Signup(ctx, cmd.String("name"), cmd.String("email"), password); err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	fmt.Printf("Account %s created. Run `dayplan login -e %s` to start a session.\n", cmd.String("email"), cmd.String("email"))
	return nil
}

// NewLoginCommand returns the login subcommand.
func NewLoginCommand() *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Log in and save the session token",
		Flags:  []cli.Flag{emailFlag(), passwordFlag()},
		Action: runLogin,
	}
}

func runLogin(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd, slog.LevelWarn)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	client := newAPIClient(cfg)
	sess, err := client.Login(ctx, cmd.String("email"), password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	kr, err := openKeyring()
	if err != nil {
		return err
	}
	token, err := kr.Seal(sess.Token)
	if err != nil {
		return fmt.Errorf("seal session token: %w", err)
	}

	creds := config.Credentials{
		GatewayURL: client.BaseURL(),
		Token:      token,
		UserID:     sess.User.ID,
		Email:      sess.User.Email,
		Name:       sess.User.Name,
		SavedAt:    time.Now().UTC(),
	}
	if err := config.SaveCredentials(config.CredentialsPath(), creds); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s.\n", sess.User.Email)
	return nil
}

// NewLogoutCommand returns the logout subcommand.
func NewLogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Revoke the session token and forget it",
		Action: runLogout,
	}
}

func runLogout(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd, slog.LevelWarn)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	sess, err := loadSession(cfg)
	if errors.Is(err, config.ErrNotLoggedIn) {
		fmt.Println("Not logged in.")
		return nil
	}
	if err != nil {
		return err
	}

	// The local token is dropped even when the gateway is unreachable.
	if err := sess.client.Logout(ctx, sess.identity); err != nil {
		slog.Warn("revoke session", "error", err)
	}
	if err := config.RemoveCredentials(config.CredentialsPath()); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func readPassword(cmd *cli.Command) (string, error) {
	if cmd.IsSet("password") {
		return cmd.String("password"), nil
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	return readLine(os.Stdin)
}

// readLine reads the first line of piped input.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
