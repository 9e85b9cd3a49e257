package config

import (
	"io"
	"log/slog"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/reportview/reportview/internal/logging"
)

// Logger holds logger configuration
type Logger struct {
	Level  string
	Format string
	File   string
}

// Flags returns CLI flags for Logger configuration
func (l *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Category:    "Logging",
			Value:       "info",
			Sources:     cli.EnvVars("REPORTVIEW_LOG_LEVEL"),
			Destination: &l.Level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json, auto)",
			Category:    "Logging",
			Value:       "auto",
			Sources:     cli.EnvVars("REPORTVIEW_LOG_FORMAT"),
			Destination: &l.Format,
		},
		&cli.StringFlag{
			Name:        "log-file",
			Usage:       "Log file (default <state-dir>/reportview.log, \"-\" for stderr)",
			Category:    "Logging",
			Sources:     cli.EnvVars("REPORTVIEW_LOG_FILE"),
			Destination: &l.File,
		},
	}
}

// Validate validates the logger configuration
func (l *Logger) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error", "":
	default:
		return goerr.New("invalid log level", goerr.V("level", l.Level))
	}
	if _, err := logging.ParseFormat(l.Format); err != nil {
		return err
	}
	return nil
}

// Configure builds the logger. Output goes to the log file under stateDir
// unless File says otherwise; the returned closer releases it.
func (l *Logger) Configure(stateDir string) (*slog.Logger, io.Closer, error) {
	if err := l.Validate(); err != nil {
		return nil, nil, err
	}
	format, _ := logging.ParseFormat(l.Format) //nolint:errcheck // validated above
	level := logging.ParseLevel(l.Level)

	if l.File == "-" {
		return logging.New(level, nil, format), io.NopCloser(nil), nil
	}
	path := l.File
	if path == "" {
		path = filepath.Join(stateDir, "reportview.log")
	}
	f, err := logging.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	return logging.New(level, f, format), f, nil
}

// LogValue returns structured log value
func (l Logger) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("level", l.Level),
		slog.String("format", l.Format),
		slog.String("file", l.File),
	)
}
