// Package push keeps the process-wide connection to the backend's event
// channel and fans events out to subscribers.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"orderdesk/internal/metrics"
	"orderdesk/internal/model"
)

const (
	DefaultMaxAttempts  = 5
	DefaultRetryDelay   = time.Second
	DefaultPollInterval = 500 * time.Millisecond
	DefaultPongWait     = 60 * time.Second

	writeWait = 10 * time.Second
)

var errNoTransport = errors.New("no push transport available")

// Handlers receives push events. Nil fields are skipped.
type Handlers struct {
	OnOrderStatusChanged func(model.OrderStatusPayload)
	OnNewOrder           func(model.NewOrderPayload)
	OnConnect            func(transport string)
	OnDisconnect         func(reason string)
}

type Config struct {
	BaseURL string
	// Token is read on every connection attempt.
	Token        func() string
	MaxAttempts  int
	RetryDelay   time.Duration
	PollInterval time.Duration
	// PongWait is how long a websocket may stay silent, pongs included,
	// before it is treated as dead. Pings go out at 9/10 of it.
	PongWait   time.Duration
	HTTPClient   *http.Client
	Dialer       *websocket.Dialer
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type Client struct {
	cfg     Config
	host    string
	limiter *rate.Limiter

	mu        sync.Mutex
	subs      map[int]Handlers
	nextID    int
	started   bool
	exhausted bool
	cancel    context.CancelFunc
	done      chan struct{}
	reconnect chan struct{}
	attempt   context.CancelFunc
	restart   bool

	connected atomic.Bool
}

var (
	sharedOnce sync.Once
	shared     *Client
)

// Shared returns the process-wide client, creating it on first use. Later
// calls ignore cfg.
func Shared(cfg Config) *Client {
	sharedOnce.Do(func() {
		shared = New(cfg)
	})
	return shared
}

// New builds an unconnected client. Most callers want Shared.
func New(cfg Config) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = DefaultPongWait
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 45 * time.Second}
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	if cfg.Token == nil {
		cfg.Token = func() string { return "" }
	}
	return &Client{
		cfg:       cfg,
		host:      Host(cfg.BaseURL),
		limiter:   rate.NewLimiter(rate.Every(cfg.PollInterval), 1),
		subs:      make(map[int]Handlers),
		reconnect: make(chan struct{}, 1),
	}
}

var apiSuffix = regexp.MustCompile(`/api/v\d+/?$`)

// Host strips the versioned REST suffix from a base URL.
func Host(baseURL string) string {
	return strings.TrimRight(apiSuffix.ReplaceAllString(strings.TrimSpace(baseURL), ""), "/")
}

// Subscribe registers h and starts the connection on first use. The returned
// cancel only removes h; the connection stays up for other subscribers.
func (c *Client) Subscribe(h Handlers) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = h
	if !c.started {
		c.started = true
		ctx, stop := context.WithCancel(context.Background())
		c.cancel = stop
		c.done = make(chan struct{})
		go c.run(ctx)
	}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Connected reports whether a transport is currently live.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Reconnect restarts connection attempts after the retry budget ran out.
// It does nothing while the client is still trying or connected.
func (c *Client) Reconnect() {
	c.mu.Lock()
	exhausted := c.exhausted
	c.mu.Unlock()
	if !exhausted {
		return
	}
	select {
	case c.reconnect <- struct{}{}:
	default:
	}
}

// Restart drops the current connection, if any, and connects again with the
// current token and a fresh retry budget. Call it after the session changes.
func (c *Client) Restart() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.restart = true
	attempt := c.attempt
	c.mu.Unlock()

	if attempt != nil {
		attempt()
	}
	select {
	case c.reconnect <- struct{}{}:
	default:
	}
}

func (c *Client) takeRestart() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.restart
	c.restart = false
	return r
}

// Close tears the connection down. It is meant for process shutdown only.
func (c *Client) Close() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	failures := 0
	for {
		attemptCtx, cancelAttempt := context.WithCancel(ctx)
		c.mu.Lock()
		c.attempt = cancelAttempt
		c.mu.Unlock()

		established, err := c.connect(attemptCtx)
		cancelAttempt()
		if ctx.Err() != nil {
			return
		}
		if c.takeRestart() {
			slog.Info("push channel restarting")
			failures = 0
			c.drainReconnect()
			continue
		}
		if established {
			failures = 0
		} else {
			failures++
			metrics.PushReconnectsTotal.Inc()
			slog.Info("push connection attempt failed", "attempt", failures, "max", c.cfg.MaxAttempts, "error", err)
		}

		if failures >= c.cfg.MaxAttempts {
			slog.Info("push channel offline, retries exhausted", "attempts", failures)
			c.setExhausted(true)
			select {
			case <-ctx.Done():
				return
			case <-c.reconnect:
				c.takeRestart()
				c.setExhausted(false)
				failures = 0
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-c.reconnect:
			if c.takeRestart() {
				failures = 0
			}
		case <-time.After(c.cfg.RetryDelay):
		}
	}
}

func (c *Client) drainReconnect() {
	select {
	case <-c.reconnect:
	default:
	}
}

func (c *Client) setExhausted(v bool) {
	c.mu.Lock()
	c.exhausted = v
	c.mu.Unlock()
}

// connect runs one connection attempt to completion. established reports
// whether any transport came up before the connection ended.
func (c *Client) connect(ctx context.Context) (established bool, err error) {
	header := http.Header{}
	if token := c.cfg.Token(); token != "" {
		header.Set("x-auth-token", token)
	}

	conn, resp, wsErr := c.cfg.Dialer.DialContext(ctx, c.websocketURL(), header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if wsErr == nil {
		c.up("websocket")
		err := c.readWebsocket(ctx, conn)
		c.down(err)
		return true, err
	}
	slog.Debug("websocket transport unavailable, trying polling", "error", wsErr)

	cursor, frames, pollErr := c.poll(ctx, header, "")
	if pollErr != nil {
		return false, fmt.Errorf("%w: websocket: %v; polling: %v", errNoTransport, wsErr, pollErr)
	}
	c.up("polling")
	c.dispatchAll(frames)
	err = c.pollLoop(ctx, header, cursor)
	c.down(err)
	return true, err
}

func (c *Client) websocketURL() string {
	u := c.host + "/events/ws"
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// readWebsocket reads frames until the connection fails. A peer that stops
// answering pings hits the read deadline, so half-open connections end too.
func (c *Client) readWebsocket(ctx context.Context, conn *websocket.Conn) error {
	wait := c.cfg.PongWait
	extend := func() error { return conn.SetReadDeadline(time.Now().Add(wait)) }
	if err := extend(); err != nil {
		conn.Close()
		return err
	}
	conn.SetPongHandler(func(string) error { return extend() })

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ping := time.NewTicker(wait * 9 / 10)
		defer ping.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-stop:
				return
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					slog.Debug("push ping failed", "error", err)
				}
			}
		}
	}()
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := extend(); err != nil {
			return err
		}
		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			slog.Warn("dropping malformed push frame", "error", err)
			continue
		}
		c.dispatch(f)
	}
}

func (c *Client) up(transport string) {
	c.connected.Store(true)
	metrics.PushConnected.Set(1)
	slog.Info("push channel connected", "transport", transport, "host", c.host)
	for _, h := range c.handlers() {
		if h.OnConnect != nil {
			h.OnConnect(transport)
		}
	}
}

func (c *Client) down(err error) {
	c.connected.Store(false)
	metrics.PushConnected.Set(0)
	reason := "closed"
	if err != nil {
		reason = err.Error()
	}
	slog.Info("push channel disconnected", "reason", reason)
	for _, h := range c.handlers() {
		if h.OnDisconnect != nil {
			h.OnDisconnect(reason)
		}
	}
}

func (c *Client) handlers() []Handlers {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Handlers, 0, len(c.subs))
	for _, h := range c.subs {
		out = append(out, h)
	}
	return out
}

func (c *Client) dispatchAll(frames []frame) {
	for _, f := range frames {
		c.dispatch(f)
	}
}

func (c *Client) dispatch(f frame) {
	metrics.PushEventsTotal.WithLabelValues(f.Event).Inc()

	switch f.Event {
	case model.EventOrderStatusChanged:
		var p model.OrderStatusPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			slog.Warn("bad order-status-changed payload", "error", err)
			return
		}
		for _, h := range c.handlers() {
			if h.OnOrderStatusChanged != nil {
				h.OnOrderStatusChanged(p)
			}
		}
	case model.EventNewOrder:
		var p model.NewOrderPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			slog.Warn("bad newOrder payload", "error", err)
			return
		}
		for _, h := range c.handlers() {
			if h.OnNewOrder != nil {
				h.OnNewOrder(p)
			}
		}
	default:
		slog.Debug("ignoring push event", "event", f.Event)
	}
}
