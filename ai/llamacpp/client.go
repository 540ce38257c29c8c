package llamacpp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/poiesic/spamsense/ai"
	"github.com/poiesic/spamsense/core"
)

const (
	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 64 << 20

	// maxErrorBody caps how much of a rejection body ends up in error messages.
	maxErrorBody = 256
)

type embeddingRequest struct {
	Content string `json:"content"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Client issues single text-to-vector requests against a llama.cpp style
// embedding endpoint. It holds no per-request state and never retries.
type Client struct {
	endpoint string
	maxChars int
	http     *http.Client
	logger   *slog.Logger
}

// newClient builds a Client from a validated config.
func newClient(config *ai.Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	// The per-request timeout lives on a copy so a shared client is left untouched.
	hc := *httpClient
	if config.Timeout > 0 {
		hc.Timeout = config.Timeout
	}

	return &Client{
		endpoint: config.Endpoint,
		maxChars: config.MaxChars(),
		http:     &hc,
		logger:   logger.With("component", "llamacpp-client"),
	}, nil
}

// Embed truncates text to the configured character bound and requests its embedding.
//
// Errors wrap core.ErrInvalidInput (empty text, no request is made),
// core.ErrTransport (request could not complete, including timeouts),
// core.ErrRemoteRejected (non-2xx status) or core.ErrMalformedResponse.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", core.ErrInvalidInput)
	}

	input := Truncate(text, c.maxChars)
	body, err := json.Marshal(embeddingRequest{Content: input})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("requesting embedding", "chars", utf8.RuneCountInString(input), "truncated", len(input) < len(text))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrTransport, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", core.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &core.StatusError{StatusCode: resp.StatusCode, Body: snippet(payload)}
	}

	var out embeddingResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrMalformedResponse, err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: response has no embedding", core.ErrMalformedResponse)
	}

	return out.Embedding, nil
}

// Truncate returns at most maxChars characters (runes) of text.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	if len(text) <= maxChars {
		return text
	}
	n := 0
	for i := range text {
		if n == maxChars {
			return text[:i]
		}
		n++
	}
	return text
}

func snippet(b []byte) string {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return string(bytes.TrimSpace(b))
}
