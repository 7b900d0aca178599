package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"
)

// Retry and backoff constants.
const (
	defaultRetries   = 5
	baseBackoff      = 1 * time.Second
	maxBackoff       = 60 * time.Second
	backoffFactor    = 2.0
	jitterFraction   = 0.25
	DefaultUserAgent = "teams-kdbx/0.1"
)

// DefaultBaseURL is the Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// TokenSource provides OAuth2 bearer tokens. Defined at the consumer
// (graph package) so auth can hand any session implementation to a Client.
type TokenSource interface {
	Token() (string, error)
}

// Client is an HTTP client for the Microsoft Graph API.
// It handles request construction, authentication, retry with
// exponential backoff, and error classification.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
	userAgent  string
	maxRetries int

	// sleepFunc is called to wait between retries. Defaults to timeSleep.
	// Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Graph API client.
// baseURL is typically DefaultBaseURL. An empty userAgent uses DefaultUserAgent.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger, userAgent string) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		token:      token,
		logger:     logger,
		userAgent:  userAgent,
		maxRetries: defaultRetries,
		sleepFunc:  timeSleep,
	}
}

// Do executes an HTTP request against the Graph API.
// The path is appended to the client's base URL.
// For non-nil bodies, Content-Type is set to application/json.
// The caller is responsible for closing the response body on success.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	var header http.Header
	if body != nil {
		header = http.Header{"Content-Type": []string{"application/json"}}
	}

	return c.DoWithHeaders(ctx, method, path, body, header)
}

// DisableRetries makes every request from c a single attempt. Failures are
// returned exactly as the first response or transport error reports them.
func (c *Client) DisableRetries() {
	c.maxRetries = 0
}

// DoWithHeaders is Do with caller-supplied request headers. Bodies that
// implement io.Seeker are rewound before each retry; other bodies are sent
// once and a retryable failure is returned as-is.
func (c *Client) DoWithHeaders(
	ctx context.Context, method, path string, body io.Reader, header http.Header,
) (*http.Response, error) {
	return c.send(ctx, method, path, body, header, c.maxRetries)
}

// DoOnce sends the request exactly once regardless of the client's retry
// setting. Non-2xx responses still come back as *GraphError.
func (c *Client) DoOnce(
	ctx context.Context, method, path string, body io.Reader, header http.Header,
) (*http.Response, error) {
	return c.send(ctx, method, path, body, header, 0)
}

func (c *Client) send(
	ctx context.Context, method, path string, body io.Reader, header http.Header, retries int,
) (*http.Response, error) {
	url := c.baseURL + path

	var attempt int
	for {
		resp, err := c.doOnce(ctx, method, url, body, header)
		if err != nil {
			// Context cancellation is not retryable.
			if ctx.Err() != nil {
				return nil, fmt.Errorf("graph: request canceled: %w", ctx.Err())
			}

			if attempt < retries && c.canReplay(body) {
				backoff := c.calcBackoff(attempt)
				c.logger.Warn("retrying after network error",
					slog.String("method", method),
					slog.String("path", path),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", backoff),
					slog.String("error", err.Error()),
				)

				if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
					return nil, fmt.Errorf("graph: request canceled: %w", sleepErr)
				}

				if rwErr := rewindBody(body); rwErr != nil {
					return nil, rwErr
				}

				attempt++

				continue
			}

			return nil, fmt.Errorf("graph: %s %s failed after %d attempts: %w", method, path, attempt+1, err)
		}

		// 2xx: success.
		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			c.logger.Debug("request succeeded",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
			)

			return resp, nil
		}

		// Read and close body for error responses.
		errBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if readErr != nil {
			errBody = []byte("(failed to read response body)")
		}

		reqID := resp.Header.Get("request-id")

		if isRetryable(resp.StatusCode) && attempt < retries && c.canReplay(body) {
			backoff := c.retryBackoff(resp, attempt)
			c.logger.Warn("retrying after HTTP error",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			if err := c.sleepFunc(ctx, backoff); err != nil {
				return nil, fmt.Errorf("graph: request canceled: %w", err)
			}

			if rwErr := rewindBody(body); rwErr != nil {
				return nil, rwErr
			}

			attempt++

			continue
		}

		if attempt > 0 {
			c.logger.Error("request failed after retries",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempts", attempt+1),
			)
		}

		return nil, &GraphError{
			StatusCode: resp.StatusCode,
			RequestID:  reqID,
			Message:    string(errBody),
			Err:        classifyStatus(resp.StatusCode),
		}
	}
}

// doOnce executes a single HTTP request (no retry).
func (c *Client) doOnce(
	ctx context.Context, method, url string, body io.Reader, header http.Header,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("obtaining token: %w", err)
	}

	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", c.userAgent)

	return c.httpClient.Do(req)
}

// canReplay reports whether body can be sent again on retry.
func (c *Client) canReplay(body io.Reader) bool {
	if body == nil {
		return true
	}

	_, ok := body.(io.Seeker)

	return ok
}

// rewindBody seeks a replayable body back to its start before a retry.
func rewindBody(body io.Reader) error {
	s, ok := body.(io.Seeker)
	if !ok {
		return nil
	}

	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("graph: rewinding request body for retry: %w", err)
	}

	return nil
}

// retryBackoff returns the backoff duration for a retryable response.
// For 429 responses with a Retry-After header, that value is used.
func (c *Client) retryBackoff(resp *http.Response, attempt int) time.Duration {
	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}

	return c.calcBackoff(attempt)
}

// calcBackoff computes exponential backoff with ±25% jitter.
func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
}

// timeSleep waits for the given duration or until the context is canceled.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// drainAndClose discards the rest of a response body so the connection can
// be reused.
func drainAndClose(body io.ReadCloser) error {
	defer body.Close()

	if _, err := io.Copy(io.Discard, body); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("graph: draining response body: %w", err)
	}

	return nil
}
