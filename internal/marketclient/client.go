// Package marketclient implements the outbound HTTP path to the external
// marketplace: usage submissions, settlement triggers, and lifecycle-callback
// acks, all funneled through one circuit breaker since they share the same
// upstream (spec §4.5 "circuit breaker guarding the marketplace HTTP
// endpoint after repeated failures"). No ecosystem HTTP client library
// appears anywhere in the retrieved pack, so this is a justified use of
// net/http directly (see DESIGN.md).
package marketclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/virtengine/virtengine-sub011/internal/domain"
	"github.com/virtengine/virtengine-sub011/internal/resilience"
	"github.com/virtengine/virtengine-sub011/internal/signing"
)

// Client posts outbox entries to the marketplace's HTTP ingestion endpoints
// and signs payloads under the core's own identity before send.
type Client struct {
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	baseURL    string
	signer     signing.Signer

	usagePath    string
	settlePath   string
	callbackPath string
}

// Option configures a Client.
type Option func(*Client)

// WithPaths overrides the default per-kind endpoint suffixes.
func WithPaths(usage, settlement, callback string) Option {
	return func(c *Client) {
		c.usagePath, c.settlePath, c.callbackPath = usage, settlement, callback
	}
}

// New builds a Client. baseURL is the marketplace's API root; signer signs
// every outbound payload so the marketplace can attribute it to this core
// instance.
func New(baseURL string, signer signing.Signer, breakerCfg resilience.Config, dialTimeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: dialTimeout},
		breaker:      resilience.New(breakerCfg),
		baseURL:      baseURL,
		signer:       signer,
		usagePath:    "/api/v1/usage",
		settlePath:   "/api/v1/settlements",
		callbackPath: "/api/v1/callbacks/ack",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sign implements usage.Signer: it signs the final usage record payload
// before the reporter hands it to the outbox.
func (c *Client) Sign(message []byte) ([]byte, error) {
	return c.signer.Sign(message)
}

// Deliver implements outboxstore.Deliverer: it posts entry.Payload to the
// path matching entry.Kind, guarded by the shared circuit breaker.
func (c *Client) Deliver(ctx context.Context, entry domain.OutboxEntry) error {
	path, err := c.pathFor(entry.Kind)
	if err != nil {
		return err
	}

	return c.breaker.Execute(ctx, func() error {
		return c.post(ctx, path, entry)
	})
}

func (c *Client) pathFor(kind domain.OutboxKind) (string, error) {
	switch kind {
	case domain.OutboxUsage:
		return c.usagePath, nil
	case domain.OutboxSettlement:
		return c.settlePath, nil
	case domain.OutboxLifecycleCallback:
		return c.callbackPath, nil
	default:
		return "", fmt.Errorf("marketclient: unknown outbox kind %q", kind)
	}
}

func (c *Client) post(ctx context.Context, path string, entry domain.OutboxEntry) error {
	sig, err := c.signer.Sign(entry.Payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(entry.Payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idempotency-Key", entry.IdempotencyKey)
	req.Header.Set("X-Body-Signature", base64.StdEncoding.EncodeToString(sig))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("marketclient: %s returned %d", path, resp.StatusCode)
	}
	return nil
}
