// Package apify runs Apify actors over the REST v2 API and decodes their
// datasets into scout items.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/kolscout/internal/metrics"
)

// DefaultBaseURL is the public Apify API endpoint.
const DefaultBaseURL = "https://api.apify.com"

// Run statuses reported by Apify.
const (
	StatusReady     = "READY"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusTimedOut  = "TIMED-OUT"
	StatusAborted   = "ABORTED"
)

// Config controls the client.
type Config struct {
	BaseURL string
	Token   string
	// WaitForFinish is passed to Apify so each call blocks server-side up to
	// this long (Apify caps it at 60s).
	WaitForFinish time.Duration
	// PollInterval is slept between polls when Apify returns early.
	PollInterval time.Duration
	// MaxRetryElapsed bounds the backoff loop for a single HTTP call.
	MaxRetryElapsed time.Duration
	// RunTimeout bounds a whole actor run, including polling.
	RunTimeout time.Duration

	TikTokSearchActor    string
	InstagramExpandActor string
	TikTokAnalyzeActor   string
}

// Run is the subset of the Apify run object the client needs.
type Run struct {
	ID               string `json:"id"`
	ActID            string `json:"actId"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

// Terminal reports whether the run will not change status again.
func (r Run) Terminal() bool {
	switch r.Status {
	case StatusSucceeded, StatusFailed, StatusTimedOut, StatusAborted:
		return true
	default:
		return false
	}
}

// StatusError is returned for non-2xx API responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("apify: unexpected status %d: %s", e.Code, e.Body)
}

// Retryable reports whether repeating the request may succeed.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// RunError is returned when an actor run ends in a non-success state.
type RunError struct {
	Run Run
}

func (e *RunError) Error() string {
	return fmt.Sprintf("apify: run %s of actor %s finished with status %s", e.Run.ID, e.Run.ActID, e.Run.Status)
}

// Client talks to the Apify API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New constructs a Client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("apify: token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.WaitForFinish <= 0 || cfg.WaitForFinish > 60*time.Second {
		cfg.WaitForFinish = 60 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxRetryElapsed <= 0 {
		cfg.MaxRetryElapsed = 30 * time.Second
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 15 * time.Minute
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.WaitForFinish + 30*time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger.Named("apify")}, nil
}

// Call starts an actor, waits for it to finish and returns the raw JSON array
// of its default dataset.
func (c *Client) Call(ctx context.Context, actorID string, input any) (Run, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RunTimeout)
	defer cancel()

	start := time.Now()
	run, err := c.startRun(ctx, actorID, input)
	if err != nil {
		metrics.ObserveApifyRun(actorID, "error", time.Since(start))
		return Run{}, nil, err
	}
	logger := c.logger.With(zap.String("actor", actorID), zap.String("run_id", run.ID))
	logger.Info("actor run started", zap.String("status", run.Status))

	for !run.Terminal() {
		select {
		case <-ctx.Done():
			metrics.ObserveApifyRun(actorID, "canceled", time.Since(start))
			return run, nil, fmt.Errorf("apify: wait for run %s: %w", run.ID, ctx.Err())
		case <-time.After(c.cfg.PollInterval):
		}
		run, err = c.getRun(ctx, run.ID)
		if err != nil {
			metrics.ObserveApifyRun(actorID, "error", time.Since(start))
			return Run{}, nil, err
		}
		logger.Debug("actor run polled", zap.String("status", run.Status))
	}
	metrics.ObserveApifyRun(actorID, strings.ToLower(run.Status), time.Since(start))
	if run.Status != StatusSucceeded {
		return run, nil, &RunError{Run: run}
	}

	items, err := c.DatasetItems(ctx, run.DefaultDatasetID)
	if err != nil {
		return run, nil, err
	}
	logger.Info("actor run finished", zap.Int("bytes", len(items)), zap.Duration("elapsed", time.Since(start)))
	return run, items, nil
}

// DatasetItems downloads a dataset as a JSON array.
func (c *Client) DatasetItems(ctx context.Context, datasetID string) ([]byte, error) {
	q := url.Values{}
	q.Set("clean", "true")
	q.Set("format", "json")
	body, err := c.do(ctx, http.MethodGet, "/v2/datasets/"+url.PathEscape(datasetID)+"/items", q, nil)
	if err != nil {
		return nil, fmt.Errorf("apify: fetch dataset %s: %w", datasetID, err)
	}
	return body, nil
}

func (c *Client) startRun(ctx context.Context, actorID string, input any) (Run, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return Run{}, fmt.Errorf("apify: encode input: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, "/v2/acts/"+url.PathEscape(actorID)+"/runs", c.waitQuery(), payload)
	if err != nil {
		return Run{}, fmt.Errorf("apify: start actor %s: %w", actorID, err)
	}
	return decodeRun(body)
}

func (c *Client) getRun(ctx context.Context, runID string) (Run, error) {
	body, err := c.do(ctx, http.MethodGet, "/v2/actor-runs/"+url.PathEscape(runID), c.waitQuery(), nil)
	if err != nil {
		return Run{}, fmt.Errorf("apify: get run %s: %w", runID, err)
	}
	return decodeRun(body)
}

func (c *Client) waitQuery() url.Values {
	q := url.Values{}
	q.Set("waitForFinish", strconv.Itoa(int(c.cfg.WaitForFinish/time.Second)))
	return q
}

func decodeRun(body []byte) (Run, error) {
	var envelope struct {
		Data Run `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Run{}, fmt.Errorf("apify: decode run: %w", err)
	}
	if envelope.Data.ID == "" {
		return Run{}, errors.New("apify: run response missing id")
	}
	return envelope.Data, nil
}

// do performs one API call, retrying transport errors, 429 and 5xx with
// exponential backoff.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 500 * time.Millisecond
	exp.Multiplier = 2.0
	exp.MaxInterval = 5 * time.Second
	exp.RandomizationFactor = 0.5
	exp.Reset()

	op := func() ([]byte, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}
		defer func() {
			if cerr := resp.Body.Close(); cerr != nil {
				c.logger.Debug("close response body", zap.Error(cerr))
			}
		}()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			serr := &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 512)}
			if !serr.Retryable() {
				return nil, backoff.Permanent(serr)
			}
			c.logger.Warn("retrying apify call", zap.String("path", path), zap.Int("status", resp.StatusCode))
			return nil, serr
		}
		return body, nil
	}

	return backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(exp),
		backoff.WithMaxElapsedTime(c.cfg.MaxRetryElapsed),
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
