package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// API defines the interface for interacting with a Tdarr server.
type API interface {
	GetStatus(ctx context.Context) (*Status, error)
	GetNodes(ctx context.Context) (map[string]Node, error)
	GetStats(ctx context.Context) (*Stats, error)
	GetStagedCount(ctx context.Context) (int, error)
	GetLibrarySettings(ctx context.Context) ([]LibrarySetting, error)
	GetPies(ctx context.Context, libraryID string) (*PieStats, error)
	GetGlobalSettings(ctx context.Context) (*GlobalSettings, error)

	SetGlobalSetting(ctx context.Context, key string, value any) error
	SetNodeSetting(ctx context.Context, nodeID, key string, value any) error
	AlterWorkerLimit(ctx context.Context, nodeID, workerType, direction string) error
	ScanLibrary(ctx context.Context, dbID, path, mode string) error
	CancelWorkerItem(ctx context.Context, nodeID, workerID, cause string) error

	Ping(ctx context.Context) error
	BaseURL() string
}

// ClientConfig holds configuration for DefaultClient.
type ClientConfig struct {
	BaseURL        string // e.g. http://tdarr:8266
	APIKey         string // sent as x-api-key; optional
	RequestTimeout time.Duration
}

// DefaultClient implements API against the server's /api/v2/ HTTP surface.
type DefaultClient struct {
	http   *http.Client
	config ClientConfig
}

// NewDefaultClient constructs a DefaultClient from the given config.
// Returns an error if BaseURL is empty.
func NewDefaultClient(cfg ClientConfig) (*DefaultClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	return &DefaultClient{
		http: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		config: cfg,
	}, nil
}

// BaseURL returns the configured base URL of the Tdarr server.
func (c *DefaultClient) BaseURL() string {
	return c.config.BaseURL
}

// apiURL joins path onto the server's /api/v2/ base.
func (c *DefaultClient) apiURL(path string) string {
	return strings.TrimRight(c.config.BaseURL, "/") + "/api/v2/" + path
}

const maxResponseBytes = 32 * 1024 * 1024 // well above any real Tdarr response

// do performs one HTTP request and returns the body and status code. A nil
// reqBody means GET; otherwise the body is JSON-encoded and POSTed. Transport
// failures are returned as-is; status handling is up to the caller.
func (c *DefaultClient) do(ctx context.Context, path string, reqBody any) ([]byte, int, error) {
	method := http.MethodGet
	var body io.Reader
	if reqBody != nil {
		method = http.MethodPost
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return nil, 0, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL(path), body)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("x-api-key", c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

// read performs a read call: any transport failure or non-2xx status becomes
// an UnavailableError.
func (c *DefaultClient) read(ctx context.Context, op, path string, reqBody any) ([]byte, error) {
	body, status, err := c.do(ctx, path, reqBody)
	if err != nil {
		return nil, &UnavailableError{Op: op, Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &UnavailableError{Op: op, Status: status}
	}
	return body, nil
}

// mutate performs a mutating call: transport failures become UnavailableError,
// a status >= 400 becomes a RejectedError carrying the server's reason text.
func (c *DefaultClient) mutate(ctx context.Context, op, path string, reqBody any) ([]byte, error) {
	body, status, err := c.do(ctx, path, reqBody)
	if err != nil {
		return nil, &UnavailableError{Op: op, Err: err}
	}
	if status >= 400 {
		return nil, &RejectedError{Op: op, Status: status, Reason: truncate(body, 200)}
	}
	return body, nil
}

// decode unmarshals body into out, normalising failures to DecodeError.
func decode(op string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{Op: op, Payload: truncate(body, 200), Err: err}
	}
	return nil
}

// Ping checks connectivity by calling status with a 1s timeout.
func (c *DefaultClient) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	_, err := c.read(pingCtx, "Ping", "status", nil)
	return err
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
