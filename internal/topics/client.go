// ABOUTME: HTTP client for the topic-analysis service
// ABOUTME: Posts a transcript to /analyze and parses the returned segments
package topics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mindscribe/mindscribe-go/internal/metrics"
	"github.com/mindscribe/mindscribe-go/pkg/mindtree"
	"github.com/rs/zerolog"
)

// AnalyzePath is the endpoint appended to the base URL
const AnalyzePath = "/analyze"

// maxResponseBytes bounds the segment document read from the service
const maxResponseBytes = 32 << 20

// Client talks to one topic-analysis service
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics records analysis latency
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client for baseURL. timeout bounds each request when
// no http.Client is supplied; zero means no limit.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the analyze endpoint
func (c *Client) URL() string {
	return c.baseURL + AnalyzePath
}

// Analyze submits a transcript and returns the topic segments. A non-2xx
// status or an undecodable body yields an error wrapping
// mindtree.ErrInvalidSegment.
func (c *Client) Analyze(ctx context.Context, transcript string) ([]mindtree.Segment, error) {
	body, err := json.Marshal(mindtree.AnalysisRequest{Transcript: transcript})
	if err != nil {
		return nil, fmt.Errorf("marshal analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Info().Str("url", c.URL()).Int("transcript_bytes", len(transcript)).Msg("requesting topic analysis")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("topic analysis request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read analysis response: %w", err)
	}
	if c.metrics != nil {
		c.metrics.TopicAnalysisSeconds.Observe(time.Since(start).Seconds())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(data))
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, fmt.Errorf("%w: analysis service returned %d: %s", mindtree.ErrInvalidSegment, resp.StatusCode, snippet)
	}

	segments, err := mindtree.ParseSegments(data)
	if err != nil {
		return nil, err
	}

	c.logger.Info().Int("segments", len(segments)).Dur("elapsed", time.Since(start)).Msg("topic analysis complete")
	return segments, nil
}
