package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PREETHAM1590/waste-wise/internal/domain/models"
	"github.com/PREETHAM1590/waste-wise/internal/lib/apperr"
)

const defaultBackoff = 100 * time.Millisecond

// HTTP posts the raw image to an external classification endpoint that
// answers with {"category": "...", "confidence": 0.93}.
type HTTP struct {
	url        string
	client     *http.Client
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

type Option func(*HTTP)

func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTP) { h.client = c }
}

// WithBackoff sets the pause before the n-th retry to n*d.
func WithBackoff(d time.Duration) Option {
	return func(h *HTTP) { h.backoff = d }
}

func NewHTTP(url string, timeout time.Duration, maxRetries int, opts ...Option) *HTTP {
	h := &HTTP{
		url:        url,
		client:     &http.Client{},
		timeout:    timeout,
		maxRetries: maxRetries,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.maxRetries < 0 {
		h.maxRetries = 0
	}
	return h
}

// Budget is the longest a Classify call can take with every attempt timing
// out: the per-attempt timeouts plus the backoff pauses between them.
// Callers bounding Classify with a deadline need at least this much for
// retries to happen. Zero means the attempts are unbounded.
func (h *HTTP) Budget() time.Duration {
	if h.timeout <= 0 {
		return 0
	}
	n := time.Duration(h.maxRetries)
	return h.timeout*(n+1) + h.backoff*n*(n+1)/2
}

type classifyResponse struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// errRetryable marks attempts worth repeating: transport errors, timeouts,
// 429 and 5xx answers.
var errRetryable = errors.New("retryable")

func (h *HTTP) Classify(ctx context.Context, image []byte) (Classification, error) {
	const op = "classifier.HTTP.Classify"

	var lastErr error
	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Classification{}, fmt.Errorf("%s: %w: %w", op, apperr.ErrClassificationUnavailable, ctx.Err())
			case <-time.After(time.Duration(attempt) * h.backoff):
			}
		}

		res, err := h.attempt(ctx, image)
		if err == nil {
			return classification(models.Category(res.Category), res.Confidence)
		}
		lastErr = err
		if !errors.Is(err, errRetryable) || ctx.Err() != nil {
			break
		}
	}

	return Classification{}, fmt.Errorf("%s: %w: %w", op, apperr.ErrClassificationUnavailable, lastErr)
}

func (h *HTTP) attempt(ctx context.Context, image []byte) (*classifyResponse, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errRetryable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", errRetryable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &out, nil
}
