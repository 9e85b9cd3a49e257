package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/reportview/reportview/internal/config"
	"github.com/reportview/reportview/internal/tui"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := config.LoadDotenv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := run(context.Background(), os.Args, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	var (
		apiCfg     config.API
		stateCfg   config.State
		loggerCfg  config.Logger
		configPath string
		logCloser  io.Closer
	)

	var flags []cli.Flag
	flags = append(flags, &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "YAML configuration file",
		Sources:     cli.EnvVars("REPORTVIEW_CONFIG"),
		Destination: &configPath,
	})
	flags = append(flags, apiCfg.Flags()...)
	flags = append(flags, stateCfg.Flags()...)
	flags = append(flags, loggerCfg.Flags()...)

	app := &cli.Command{
		Name:    "reportview",
		Usage:   "Browse student reports and view submitted assignment documents",
		Version: version,
		Reader:  stdin,
		Writer:  stdout,
		Flags:   flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if configPath != "" {
				f, err := config.LoadFile(configPath)
				if err != nil {
					return nil, err
				}
				f.Apply(c.IsSet, &apiCfg, &stateCfg, &loggerCfg)
			}

			dir, err := stateCfg.ResolveDir()
			if err != nil {
				return nil, err
			}
			logger, closer, err := loggerCfg.Configure(dir)
			if err != nil {
				return nil, err
			}
			logCloser = closer

			slog.SetDefault(logger)
			ctx = ctxlog.With(ctx, logger)
			logger.Debug("configured",
				"version", version,
				"api", apiCfg,
				"state", stateCfg,
				"logger", loggerCfg,
			)
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser == nil {
				return nil
			}
			return logCloser.Close()
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runTUI(ctx, &apiCfg, &stateCfg)
		},
		Commands: []*cli.Command{
			cmdLogin(&apiCfg, &stateCfg),
			cmdLogout(&stateCfg),
			cmdVersion(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		return goerr.Wrap(err, "reportview")
	}
	return nil
}

func runTUI(ctx context.Context, apiCfg *config.API, stateCfg *config.State) error {
	c, err := apiCfg.Configure()
	if err != nil {
		return err
	}
	store, closeStore, err := stateCfg.OpenStore(stateCfg.Token)
	if err != nil {
		return err
	}
	defer closeStore() //nolint:errcheck

	app := tui.NewApp(ctx, c, store)
	defer func() {
		if err := app.Close(); err != nil {
			ctxlog.From(ctx).Warn("release document failed", "error", err)
		}
	}()

	ctxlog.From(ctx).Info("starting TUI", "api", apiCfg.URL)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return goerr.Wrap(err, "tui error")
	}
	return nil
}
