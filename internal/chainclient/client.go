// Package chainclient maintains a resilient subscription to a
// consensus-layer event stream (spec §4.6): it connects over a
// websocket-like transport, subscribes to every configured event type,
// reconnects with exponential backoff, and dispatches parsed events to
// registered subscribers synchronously, at least once per subscription
// window.
package chainclient

import (
	"context"
	"sync"
	"time"

	"github.com/virtengine/virtengine-sub011/internal/domain"
	"github.com/virtengine/virtengine-sub011/internal/resilience"
)

// State is a connection-state-machine node (spec §4.6 "disconnected ->
// connecting -> connected -> reconnecting -> ...").
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Subscriber receives dispatched chain events. It must not perform long
// work inline (spec §4.6 "a subscriber that blocks only blocks that one
// dispatch"); long work belongs on the subscriber's own task.
type Subscriber interface {
	OnChainEvent(domain.ChainEvent)
}

// Config configures reconnect behavior and the event-type subscription set
// (spec §6 eventClient config keys).
type Config struct {
	Endpoint             string
	ChainID              string
	EventTypes           []string
	ReconnectBaseMs      int
	ReconnectMaxMs       int
	MaxReconnectAttempts int // 0 = unlimited
	AutoReconnect        bool
}

// DefaultConfig fills in the spec's implied defaults for reconnect timing.
func DefaultConfig(endpoint, chainID string, eventTypes []string) Config {
	return Config{
		Endpoint:        endpoint,
		ChainID:         chainID,
		EventTypes:      eventTypes,
		ReconnectBaseMs: 500,
		ReconnectMaxMs:  30_000,
		AutoReconnect:   true,
	}
}

// Client is the subscription client. A disposed Client (after Disconnect)
// never reconnects; callers construct a new one to resume (spec §4.6
// "subsequent Connect() is a no-op until a new client is constructed").
type Client struct {
	cfg Config

	mu        sync.Mutex
	state     State
	disposed  bool
	subs      []Subscriber
	stopCh    chan struct{}
	doneCh    chan struct{}
	connCount int

	dial   func(ctx context.Context, endpoint string) (socket, error)
	logger eventLogger
}

// New creates a Client. It does not connect until Run is called.
func New(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		dial:   dial,
		logger: newEventLogger(),
	}
}

// Subscribe registers a subscriber. Safe to call before or after Run.
func (c *Client) Subscribe(s Subscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, s)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ready reports whether the client currently holds a live subscription
// (core.ReadinessProvider).
func (c *Client) Ready() bool {
	return c.State() == StateConnected
}

// Name implements core.Service.
func (c *Client) Name() string { return "chainclient" }

// Start implements core.Service by launching Run on its own goroutine.
func (c *Client) Start(ctx context.Context) error {
	go c.Run(ctx)
	return nil
}

// Stop implements core.Service.
func (c *Client) Stop(_ context.Context) error {
	c.Disconnect()
	return nil
}

// Run drives the connect/read/reconnect loop until ctx is cancelled or
// Disconnect is called. It blocks, so callers normally invoke it via
// Start/core.Runtime rather than directly.
func (c *Client) Run(ctx context.Context) {
	defer close(c.doneCh)

	attempt := 0
	for {
		c.setState(StateConnecting)
		sock, err := c.dial(ctx, c.cfg.Endpoint)
		if err != nil {
			if !c.scheduleReconnect(ctx, &attempt) {
				return
			}
			continue
		}

		if err := c.subscribeAll(sock); err != nil {
			_ = sock.Close()
			if !c.scheduleReconnect(ctx, &attempt) {
				return
			}
			continue
		}

		c.setState(StateConnected)
		c.logger.connected()
		attempt = 0

		c.readUntilClosed(ctx, sock)
		_ = sock.Close()

		if !c.cfg.AutoReconnect {
			c.setState(StateDisconnected)
			return
		}
		if !c.scheduleReconnect(ctx, &attempt) {
			return
		}
	}
}

// subscribeAll sends one subscription request per configured event type
// (spec §4.6 "On connect, sends one subscription request per configured
// event type").
func (c *Client) subscribeAll(sock socket) error {
	for i, eventType := range c.cfg.EventTypes {
		query, ok := domain.SubscriptionQueries[eventType]
		if !ok {
			continue
		}
		if err := sock.WriteJSON(newSubscription(i, query)); err != nil {
			return err
		}
	}
	return nil
}

// readUntilClosed reads frames until the socket errors, ctx is cancelled,
// or Disconnect is called, dispatching each parsed event synchronously.
func (c *Client) readUntilClosed(ctx context.Context, sock socket) {
	msgCh := make(chan []byte)
	errCh := make(chan error, 1)

	go func() {
		for {
			_, payload, err := sock.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			select {
			case msgCh <- payload:
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-errCh:
			return
		case payload := <-msgCh:
			c.dispatchFrame(payload)
		}
	}
}

func (c *Client) dispatchFrame(payload []byte) {
	events := parseFrame(payload, c.cfg.ChainID)

	c.mu.Lock()
	subs := append([]Subscriber(nil), c.subs...)
	c.mu.Unlock()

	for _, event := range events {
		c.logger.event(event.Type, event.EventID, event.BlockHeight)
		for _, sub := range subs {
			c.dispatchOne(sub, event)
		}
	}
}

// dispatchOne calls a single subscriber, recovering from a panic so one
// broken subscriber cannot take down the read loop for the rest.
func (c *Client) dispatchOne(sub Subscriber, event domain.ChainEvent) {
	defer func() { _ = recover() }()
	sub.OnChainEvent(event)
}

// scheduleReconnect waits base*2^attempt ms (capped, jittered) before the
// next connect attempt, honoring ctx/Disconnect and MaxReconnectAttempts.
// Returns false when the caller should stop the loop entirely.
func (c *Client) scheduleReconnect(ctx context.Context, attempt *int) bool {
	if !c.cfg.AutoReconnect {
		c.setState(StateDisconnected)
		return false
	}
	if c.isDisposed() {
		return false
	}
	if c.cfg.MaxReconnectAttempts > 0 && *attempt >= c.cfg.MaxReconnectAttempts {
		c.setState(StateDisconnected)
		return false
	}

	c.setState(StateReconnecting)
	delay := backoffDelay(c.cfg.ReconnectBaseMs, c.cfg.ReconnectMaxMs, *attempt)
	c.logger.reconnecting(*attempt+1, delay)
	*attempt++

	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	case <-c.stopCh:
		return false
	}
}

func backoffDelay(baseMs, maxMs, attempt int) time.Duration {
	if baseMs <= 0 {
		baseMs = 500
	}
	if maxMs <= 0 {
		maxMs = 30_000
	}
	base := time.Duration(baseMs) * time.Millisecond
	max := time.Duration(maxMs) * time.Millisecond

	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			delay = max
			break
		}
	}
	return resilience.AddJitter(delay, 0.2)
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) isDisposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// Disconnect cancels the reconnect timer, closes the socket, and clears
// handler registrations; subsequent Connect/Run calls are a no-op (spec
// §4.6 Disconnect contract).
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.subs = nil
	close(c.stopCh)
	c.mu.Unlock()

	<-c.doneCh
	c.setState(StateDisconnected)
}
