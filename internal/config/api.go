// Package config holds the command-line configuration of reportview.
package config

import (
	"log/slog"
	"net/url"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/reportview/reportview/pkg/client"
)

// API holds the remote report API settings.
type API struct {
	URL     string
	Timeout time.Duration
}

// Flags returns CLI flags for API configuration.
func (a *API) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "api-url",
			Usage:       "Base address of the report API (required)",
			Category:    "API",
			Sources:     cli.EnvVars("REPORTVIEW_API_URL"),
			Destination: &a.URL,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "Per-request timeout (0 disables it)",
			Category:    "API",
			Value:       client.DefaultTimeout,
			Sources:     cli.EnvVars("REPORTVIEW_TIMEOUT"),
			Destination: &a.Timeout,
		},
	}
}

// Validate fails fast on a missing or unusable base address.
func (a *API) Validate() error {
	if a.URL == "" {
		return goerr.New("report API address is not configured; set --api-url or REPORTVIEW_API_URL")
	}
	u, err := url.Parse(a.URL)
	if err != nil {
		return goerr.Wrap(err, "invalid report API address", goerr.V("api_url", a.URL))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return goerr.New("report API address must use http or https", goerr.V("api_url", a.URL))
	}
	if u.Host == "" {
		return goerr.New("report API address has no host", goerr.V("api_url", a.URL))
	}
	if a.Timeout < 0 {
		return goerr.New("timeout must not be negative", goerr.V("timeout", a.Timeout))
	}
	return nil
}

// Configure builds the API client.
func (a *API) Configure() (*client.Client, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return client.New(a.URL, client.WithTimeout(a.Timeout)), nil
}

// LogValue returns structured log value
func (a API) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", a.URL),
		slog.Duration("timeout", a.Timeout),
	)
}
