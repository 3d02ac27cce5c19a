// Package convertio vectorizes rasters through the Convertio asynchronous conversion API:
// a job is created, the raster is uploaded to it, its status is polled until it reaches
// a terminal state and the resulting SVG is downloaded.
package convertio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/plotline/internal/logging"
	"github.com/aretw0/plotline/pkg/domain"
)

// DefaultBaseURL is the public conversions endpoint.
const DefaultBaseURL = "https://api.convertio.co/convert"

// maxErrorBody bounds how much of an error response is kept in error messages.
const maxErrorBody = 512

// ErrMissingAPIKey is returned by New without credentials.
var ErrMissingAPIKey = errors.New("convertio: api key is required")

// Client implements ports.Vectorizer.
type Client struct {
	http    *http.Client
	apiKey  string
	baseURL string
	poll    PollConfig
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithPollConfig sets the polling bounds. Polling is never unbounded: missing caps and
// a non-positive interval fall back to DefaultPollConfig values.
func WithPollConfig(p PollConfig) Option {
	return func(cl *Client) {
		cl.poll = p.bounded()
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

// New creates a client. An empty baseURL selects DefaultBaseURL.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		http:    &http.Client{Timeout: 60 * time.Second},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		poll:    DefaultPollConfig(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

type createData struct {
	ID string `json:"id"`
}

type statusData struct {
	ID     string `json:"id"`
	Step   string `json:"step"`
	Output *struct {
		URL string `json:"url"`
	} `json:"output"`
}

// Vectorize converts the raster at rasterPath to SVG and writes it to destPath.
// Nothing is written to destPath unless the whole job succeeds.
func (c *Client) Vectorize(ctx context.Context, rasterPath, destPath string) error {
	id, err := c.create(ctx)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	logger := c.logger.With("job_id", id)
	logger.Debug("Conversion job created")

	if err := c.upload(ctx, id, rasterPath); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	resultURL, err := c.await(ctx, id, logger)
	if err != nil {
		return err
	}

	if err := c.download(ctx, resultURL, destPath); err != nil {
		return fmt.Errorf("fetch result: %w", err)
	}
	logger.Debug("Conversion result saved", "dest", destPath)
	return nil
}

func (c *Client) create(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"apikey":       c.apiKey,
		"input":        "upload",
		"outputformat": "svg",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var data createData
	if err := c.do(req, &data); err != nil {
		return "", err
	}
	if data.ID == "" {
		return "", errors.New("service returned no job id")
	}
	return data.ID, nil
}

func (c *Client) upload(ctx context.Context, id, rasterPath string) error {
	f, err := os.Open(rasterPath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	target := c.baseURL + "/" + url.PathEscape(id) + "/" + url.PathEscape(filepath.Base(rasterPath))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, f)
	if err != nil {
		return err
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")

	return c.do(req, nil)
}

// await polls the job status until a terminal state, the attempt cap or the time cap.
func (c *Client) await(ctx context.Context, id string, logger *slog.Logger) (string, error) {
	started := time.Now()
	statusURL := c.baseURL + "/" + url.PathEscape(id) + "/status"

	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return "", err
		}
		var st statusData
		if err := c.do(req, &st); err != nil {
			return "", fmt.Errorf("poll status: %w", err)
		}

		state := stateOf(st.Step)
		logger.Debug("Conversion status", "attempt", attempt, "state", state)

		switch state {
		case StateFinished:
			if st.Output == nil || st.Output.URL == "" {
				return "", fmt.Errorf("%w: finished without output url", domain.ErrJobFailed)
			}
			return st.Output.URL, nil
		case StateError, StateFailed:
			return "", fmt.Errorf("%w: job %s reported %q", domain.ErrJobFailed, id, st.Step)
		}

		if c.poll.MaxAttempts > 0 && attempt >= c.poll.MaxAttempts {
			return "", fmt.Errorf("%w: %d status requests", domain.ErrPollTimeout, attempt)
		}
		wait := c.poll.wait(attempt)
		if c.poll.Timeout > 0 && time.Since(started)+wait > c.poll.Timeout {
			return "", fmt.Errorf("%w: %s elapsed", domain.ErrPollTimeout, c.poll.Timeout)
		}
		if err := sleep(ctx, wait); err != nil {
			return "", err
		}
	}
}

func (c *Client) download(ctx context.Context, resultURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return writeAtomic(destPath, resp.Body)
}

// do sends req and decodes the "data" member of a successful envelope into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Status != "ok" {
		return fmt.Errorf("service error: %s", env.Error)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
}

// writeAtomic writes r to a temporary sibling of dest and renames it into place.
func writeAtomic(dest string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".vector-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
