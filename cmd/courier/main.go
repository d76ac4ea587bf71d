package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/oakmail/courier/pkg/config"
	"github.com/oakmail/courier/pkg/errs"
	"github.com/oakmail/courier/pkg/logging"
	"github.com/oakmail/courier/pkg/sender"
	"github.com/oakmail/courier/pkg/token"
	"github.com/oakmail/courier/pkg/wizard"
)

const defaultSubject = "No Subject Specified"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	_ = godotenv.Load()

	if err := run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func run(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:  "courier",
		Usage: "send a single email through the first viable transport",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to config file",
			},
			&cli.StringFlag{
				Name:    "recipient",
				Aliases: []string{"r"},
				Usage:   "recipient for the email",
			},
			&cli.StringFlag{
				Name:    "subject",
				Aliases: []string{"s"},
				Usage:   "subject string for the email",
				Value:   defaultSubject,
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "text file to use for the text part of the email",
			},
			&cli.StringFlag{
				Name:    "html",
				Aliases: []string{"l"},
				Usage:   "HTML file to use for the HTML part of the email",
			},
			&cli.BoolFlag{
				Name:    "isp",
				Aliases: []string{"i"},
				Usage:   "force use of the ISP SMTP relay if available",
			},
			&cli.BoolFlag{
				Name:    "test",
				Aliases: []string{"t"},
				Usage:   "send a test email using the current configuration",
			},
		},
		Action: sendAction,
		Commands: []*cli.Command{
			{
				Name:   "configure",
				Usage:  "create or modify the configuration interactively",
				Action: configureAction,
			},
			{
				Name:   "init-oauth",
				Usage:  "initialise the OAuth2 tokens (requires OAuth2 client id and secret in the configuration)",
				Action: initOAuthAction,
			},
		},
	}

	return cmd.Run(ctx, args)
}

func sendAction(ctx context.Context, cmd *cli.Command) error {
	paths, err := resolvePaths(cmd.String("config"))
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(paths.config)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(paths.log)
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := newStore(cfg, paths.token)
	if err != nil {
		return err
	}

	msg := sender.Message{
		To:      cmd.String("recipient"),
		Subject: cmd.String("subject"),
	}
	if msg.To == "" && cmd.Bool("test") {
		msg.To = cfg.User.Sender
	}
	if path := cmd.String("file"); path != "" {
		body, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read text body: %w", err)
		}
		msg.Text = string(body)
	}
	if path := cmd.String("html"); path != "" {
		body, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read HTML body: %w", err)
		}
		msg.HTML = string(body)
	}

	opts := sender.Options{
		ForceRelay: cmd.Bool("isp"),
		Test:       cmd.Bool("test"),
	}

	logger.Info().Str("to", msg.To).Msg("Command-line request for email.")

	_, err = sender.NewSelector(store, logger).Send(ctx, cfg, &msg, opts)
	return err
}

func configureAction(ctx context.Context, cmd *cli.Command) error {
	paths, err := resolvePaths(cmd.String("config"))
	if err != nil {
		return err
	}

	// Seed the wizard leniently: an invalid file on disk is exactly what
	// this command exists to repair.
	cfg, err := config.LoadConfigLax(paths.config)
	if errors.Is(err, errs.ErrConfigNotFound) {
		cfg = &config.Config{}
	} else if err != nil {
		return err
	}

	if err := wizard.Run(cfg); err != nil {
		return err
	}
	if err := cfg.Save(paths.config); err != nil {
		return err
	}

	fmt.Println("Configuration complete.")
	return nil
}

func initOAuthAction(ctx context.Context, cmd *cli.Command) error {
	paths, err := resolvePaths(cmd.String("config"))
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(paths.config)
	if err != nil {
		return err
	}
	if !cfg.OAuth2.Enabled() {
		return errors.New("OAuth2 client id and secret are not configured, run 'courier configure' first")
	}

	logger, closeLog, err := newLogger(paths.log)
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := newStore(cfg, paths.token)
	if err != nil {
		return err
	}

	mgr, err := token.NewManager(store, cfg.OAuth2.ClientID, cfg.OAuth2.ClientSecret, token.WithLogger(logger))
	if err != nil {
		return err
	}

	logger.Info().Msg("Command-line request for OAuth initialisation.")
	_, err = mgr.Initialize(ctx, os.Stdin, os.Stdout)
	return err
}

type appPaths struct {
	config string
	token  string
	log    string
}

// resolvePaths places the token and log files next to the config file, which
// lives under the user config dir unless overridden.
func resolvePaths(configFlag string) (*appPaths, error) {
	configPath := configFlag
	if configPath == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(base, "courier", "config.yaml")
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	return &appPaths{
		config: configPath,
		token:  filepath.Join(dir, "courier.token"),
		log:    filepath.Join(dir, "courier.log"),
	}, nil
}

// newLogger attaches the flat-file sink to the console logger so every event
// is mirrored to the log file.
func newLogger(path string) (zerolog.Logger, func(), error) {
	hook, err := logging.NewFileHook(path)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := log.Logger.Hook(hook)
	return logger, func() { _ = hook.Close() }, nil
}

func newStore(cfg *config.Config, tokenPath string) (token.Store, error) {
	if cfg.Token.Store == config.TokenStoreKeyring {
		return token.NewKeyringStore("courier", cfg.User.Sender), nil
	}
	return token.NewFileStore(tokenPath)
}
