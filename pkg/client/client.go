package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/reportview/reportview/pkg/domain"
)

// DefaultTimeout bounds a single round trip when no other timeout is configured.
const DefaultTimeout = 30 * time.Second

// RequestIDHeader carries a per-call identifier that also appears in the logs.
const RequestIDHeader = "X-Request-ID"

// Client is the report API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout. Zero disables it. The HTTP client
// is copied first, so a shared client passed to WithHTTPClient is left alone.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// New creates a new API client rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the address the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListReports fetches every report with its assignment statuses.
func (c *Client) ListReports(ctx context.Context) ([]domain.Report, error) {
	var reports []domain.Report
	if err := c.do(ctx, call{method: http.MethodGet, path: "/", out: &reports}); err != nil {
		return nil, goerr.Wrap(err, "client.ListReports")
	}
	return reports, nil
}

// ListFiles returns the submitted file names for a report. The token is
// optional; when non-empty it is sent as a bearer credential.
func (c *Client) ListFiles(ctx context.Context, reportID int64, token string) ([]string, error) {
	var files []string
	path := "/files/" + strconv.FormatInt(reportID, 10)
	if err := c.do(ctx, call{method: http.MethodGet, path: path, token: token, out: &files}); err != nil {
		return nil, goerr.Wrap(err, "client.ListFiles", goerr.V("report_id", reportID))
	}
	return files, nil
}

// FetchAssignmentDocument returns the base64-encoded PDF submitted for an
// assignment. It never sends a request without a token.
func (c *Client) FetchAssignmentDocument(ctx context.Context, reportID int64, assignment, token string) (string, error) {
	if token == "" {
		return "", goerr.Wrap(classify(ErrAuth, errNoToken), "client.FetchAssignmentDocument",
			goerr.V("report_id", reportID), goerr.V("assignment", assignment))
	}
	var payload string
	path := "/reports/" + strconv.FormatInt(reportID, 10) + "/assignments/" + url.PathEscape(assignment)
	err := c.do(ctx, call{method: http.MethodGet, path: path, token: token, protected: true, out: &payload})
	if err != nil {
		return "", goerr.Wrap(err, "client.FetchAssignmentDocument",
			goerr.V("report_id", reportID), goerr.V("assignment", assignment))
	}
	return payload, nil
}

// Login exchanges a password for a session token. A 4xx answer means the
// password was refused (ErrAuth); a 5xx answer is a server failure (ErrNetwork).
func (c *Client) Login(ctx context.Context, password string) (string, error) {
	var token string
	body := map[string]string{"password": password}
	if err := c.do(ctx, call{method: http.MethodPost, path: "/login", body: body, clientErrIsAuth: true, out: &token}); err != nil {
		return "", goerr.Wrap(err, "client.Login")
	}
	if token == "" {
		return "", goerr.Wrap(classify(ErrDecode, errEmptyToken), "client.Login")
	}
	return token, nil
}

var (
	errNoToken    = goerr.New("no session token")
	errEmptyToken = goerr.New("login response carried no token")
)

// call describes one request/response round trip. Protected calls report
// every non-2xx answer as ErrAuth; clientErrIsAuth narrows that to 4xx.
type call struct {
	method          string
	path            string
	token           string
	body            any
	protected       bool
	clientErrIsAuth bool
	out             any
}

func (c *Client) do(ctx context.Context, cl call) error {
	reqID := uuid.NewString()
	logger := ctxlog.From(ctx).With(
		slog.String("method", cl.method),
		slog.String("path", cl.path),
		slog.String("request_id", reqID),
	)

	var reqBody io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return goerr.Wrap(err, "marshal body")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, reqBody)
	if err != nil {
		return goerr.Wrap(classify(ErrNetwork, err), "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug("api request failed", slog.Any("error", err))
		return goerr.Wrap(classify(ErrNetwork, err), "do request", goerr.V("request_id", reqID))
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	logger.Debug("api response",
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := readHTTPError(resp)
		kind := ErrNetwork
		if authFailure(cl, resp.StatusCode) {
			kind = ErrAuth
		}
		return goerr.Wrap(classify(kind, httpErr), "request rejected",
			goerr.V("status", resp.StatusCode), goerr.V("request_id", reqID))
	}

	if cl.out != nil {
		if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
			return goerr.Wrap(classify(ErrDecode, err), "decode response", goerr.V("request_id", reqID))
		}
	}
	return nil
}

func authFailure(cl call, status int) bool {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return true
	case cl.protected:
		return true
	case cl.clientErrIsAuth:
		return status >= 400 && status < 500
	}
	return false
}

func readHTTPError(resp *http.Response) *HTTPError {
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
	if readErr != nil {
		return &HTTPError{StatusCode: resp.StatusCode, Message: "failed to read body: " + readErr.Error()}
	}
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
		return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
}
