package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"marketviewer/internal/coinbase"
	"marketviewer/internal/config"
	"marketviewer/internal/coordinator"
	"marketviewer/internal/display"
	"marketviewer/internal/logging"
	"marketviewer/internal/menu"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "load configuration from `FILE`",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "log level: debug, info, warn or error",
	}
	baseURLFlag = &cli.StringFlag{
		Name:  "base-url",
		Usage: "exchange REST base `URL`",
	}
)

var app *cli.App

func init() {
	app = &cli.App{
		Name:    filepath.Base(os.Args[0]),
		Usage:   "poll public exchange market data and print it as tables",
		Version: "0.1.0",
		Flags: []cli.Flag{
			configFlag,
			logLevelFlag,
			baseURLFlag,
		},
		Action: run,
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	overrides := map[string]any{}
	if c.IsSet(logLevelFlag.Name) {
		overrides["log_level"] = c.String(logLevelFlag.Name)
	}
	if c.IsSet(baseURLFlag.Name) {
		overrides["base_url"] = c.String(baseURLFlag.Name)
	}

	cfg, err := config.Load(c.String(configFlag.Name), overrides)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Logs go to stderr so they never break the tables on stdout.
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	client := coinbase.NewClient(cfg.BaseURL, cfg.RequestTimeout)
	defer client.Close()

	out := display.NewSyncWriter(os.Stdout)
	coord := coordinator.New(
		coordinator.WithOutput(out),
		coordinator.WithLogger(logger),
	)

	return menu.New(os.Stdin, out, client, coord, cfg, logger).Run(context.Background())
}
