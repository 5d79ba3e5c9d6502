// Package beehive is a thin client for the Waggle/Beehive telemetry query
// API. It fetches raw per-metric sample streams; all reshaping and quality
// control happen downstream in the ingest package.
package beehive

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the public Beehive data endpoint.
const DefaultBaseURL = "https://data.sagecontinuum.org"

// Sample is one raw telemetry measurement from a node.
type Sample struct {
	Timestamp time.Time         `json:"timestamp"`
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// Query selects a time window and metadata filter, mirroring the Beehive
// query API request body.
type Query struct {
	Start  string            `json:"start"`
	End    string            `json:"end,omitempty"`
	Filter map[string]string `json:"filter,omitempty"`
}

// Client queries the Beehive data API.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Beehive client. Credentials may be empty for public
// datastreams.
func NewClient(baseURL, username, password string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// QueryRange fetches all samples matching the query. The response is
// newline-delimited JSON, one sample per line; blank lines are skipped and a
// malformed line fails the whole query.
func (c *Client) QueryRange(ctx context.Context, q Query) ([]Sample, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/query", strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("beehive API error: status %d: %s", resp.StatusCode, msg)
	}

	var samples []Sample
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var s Sample
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			return nil, fmt.Errorf("decode sample: %w", err)
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("beehive query complete", "samples", len(samples), "start", q.Start, "end", q.End)
	return samples, nil
}
