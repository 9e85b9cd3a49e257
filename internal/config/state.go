package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/reportview/reportview/internal/session"
)

// State holds where reportview keeps its session and logs.
type State struct {
	Dir       string
	Ephemeral bool
	Token     string
}

// Flags returns CLI flags for State configuration.
func (s *State) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "state-dir",
			Usage:       "Directory for the session store and log file (default ~/.reportview)",
			Category:    "State",
			Sources:     cli.EnvVars("REPORTVIEW_STATE_DIR"),
			Destination: &s.Dir,
		},
		&cli.BoolFlag{
			Name:        "ephemeral",
			Usage:       "Keep the session token in memory only",
			Category:    "State",
			Sources:     cli.EnvVars("REPORTVIEW_EPHEMERAL"),
			Destination: &s.Ephemeral,
		},
		&cli.StringFlag{
			Name:        "token",
			Usage:       "Session token to start with, replacing the stored one",
			Category:    "State",
			Sources:     cli.EnvVars("REPORTVIEW_TOKEN"),
			Destination: &s.Token,
		},
	}
}

// ResolveDir returns the state directory, defaulting to ~/.reportview.
func (s *State) ResolveDir() (string, error) {
	if s.Dir != "" {
		return s.Dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", goerr.Wrap(err, "get home dir")
	}
	return filepath.Join(home, ".reportview"), nil
}

// SessionPath returns the bbolt file holding the session token.
func (s *State) SessionPath() (string, error) {
	dir, err := s.ResolveDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.db"), nil
}

// OpenStore opens the session store. seed, when non-empty, replaces whatever
// token the store held.
func (s *State) OpenStore(seed string) (session.Store, func() error, error) {
	var (
		store   session.Store
		closeFn = func() error { return nil }
	)
	if s.Ephemeral {
		store = session.NewMemory()
	} else {
		path, err := s.SessionPath()
		if err != nil {
			return nil, nil, err
		}
		b, err := session.OpenBolt(path)
		if err != nil {
			return nil, nil, err
		}
		store, closeFn = b, b.Close
	}
	if seed != "" {
		if err := store.Set(seed); err != nil {
			closeFn() //nolint:errcheck
			return nil, nil, err
		}
	}
	return store, closeFn, nil
}

// LogValue returns structured log value
func (s State) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("dir", s.Dir),
		slog.Bool("ephemeral", s.Ephemeral),
		slog.Bool("token_set", s.Token != ""),
	)
}
