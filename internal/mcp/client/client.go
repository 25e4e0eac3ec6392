// Package client implements the session client for remote tool servers.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Masterminds/semver/v3"

	"lxagent/internal/mcp/protocol"
	"lxagent/internal/mcp/transport"
)

// SessionState represents the state of the client session.
type SessionState int

const (
	// StateDisconnected means no session is open.
	StateDisconnected SessionState = iota
	// StateConnecting means the session handshake is in progress.
	StateConnecting
	// StateReady means the session is open and accepting calls.
	StateReady
)

// String returns a string representation of the session state.
func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for SessionState.
func (s SessionState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

var (
	// ErrNotConnected is returned when calling on a closed session.
	ErrNotConnected = errors.New("session not connected")
	// ErrServerTooOld is returned when the server version is below the configured minimum.
	ErrServerTooOld = errors.New("server version below minimum")
)

// Config holds configuration for a remote tool-server session.
type Config struct {
	// URL is the server endpoint.
	URL string
	// Headers are extra HTTP headers (e.g. Authorization).
	Headers map[string]string
	// Streamable selects the POST+SSE transport; false selects plain HTTP.
	Streamable bool

	// ConnectTimeout bounds the initialize handshake per attempt.
	ConnectTimeout time.Duration
	// ListTimeout bounds the initial tools/list per attempt.
	ListTimeout time.Duration
	// CallTimeout bounds a single tools/call round trip.
	CallTimeout time.Duration

	// MaxRetries is the number of connect attempts.
	MaxRetries int
	// CallRetries is the number of attempts per tool call.
	CallRetries int
	// RetryDelay separates call retries and seeds the connect backoff.
	RetryDelay time.Duration

	// MinServerVersion rejects servers older than this semver, when set
	// and when the server reports a parseable version.
	MinServerVersion string
}

func (c *Config) applyDefaults() {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 15 * time.Second
	}
	if c.ListTimeout <= 0 {
		c.ListTimeout = 10 * time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 60 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.CallRetries <= 0 {
		c.CallRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
}

// Client is a session to a remote tool server. Transitions are driven only
// by Connect, CallTool and Disconnect; there is no background reconnection.
type Client struct {
	name   string
	config Config

	transport  transport.ClientTransport
	serverInfo protocol.PeerInfo
	tools      []protocol.ToolInfo

	pending   map[int64]chan *protocol.Frame
	pendingMu sync.Mutex
	nextID    int64

	state   SessionState
	stateMu sync.RWMutex
	lastErr error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new session client.
func New(name string, config Config) *Client {
	config.applyDefaults()
	return &Client{
		name:    name,
		config:  config,
		pending: make(map[int64]chan *protocol.Frame),
		state:   StateDisconnected,
	}
}

// Name returns the client name.
func (c *Client) Name() string {
	return c.name
}

// State returns the current session state.
func (c *Client) State() SessionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Ready reports whether the session is open.
func (c *Client) Ready() bool {
	return c.State() == StateReady
}

// LastError returns the last error encountered.
func (c *Client) LastError() error {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.lastErr
}

// ServerInfo returns the server info from the initialize response.
func (c *Client) ServerInfo() protocol.PeerInfo {
	return c.serverInfo
}

// Tools returns the cached tool catalog discovered at connect time.
func (c *Client) Tools() []protocol.ToolInfo {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.tools
}

func (c *Client) setState(state SessionState, err error) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.state = state
	c.lastErr = err
}

// Connect opens the transport and performs the session handshake. It
// attempts up to MaxRetries times with exponential backoff. A failed
// initial tools/list leaves the session open with an empty catalog;
// the server may expose tools later.
func (c *Client) Connect(ctx context.Context) error {
	if c.Ready() {
		return nil
	}

	var lastErr error
	backoff := c.config.RetryDelay

	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				c.setState(StateDisconnected, ctx.Err())
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if err := c.connectOnce(ctx); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	c.setState(StateDisconnected, lastErr)
	return fmt.Errorf("connect to %s failed after %d attempts: %w", c.config.URL, c.config.MaxRetries, lastErr)
}

func (c *Client) connectOnce(ctx context.Context) error {
	c.setState(StateConnecting, nil)

	var t transport.ClientTransport
	if c.config.Streamable {
		t = transport.NewStreamableTransport(c.config.URL, c.config.Headers)
	} else {
		t = transport.NewSimpleHTTPTransport(c.config.URL, c.config.Headers)
	}
	if err := t.Start(); err != nil {
		c.closeTransport()
		c.setState(StateDisconnected, err)
		return fmt.Errorf("start transport: %w", err)
	}

	c.transport = t
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.wg.Add(1)
	go c.receiveLoop()

	initCtx, cancelInit := context.WithTimeout(ctx, c.config.ConnectTimeout)
	err := c.initialize(initCtx)
	cancelInit()
	if err != nil {
		c.closeTransport()
		c.setState(StateDisconnected, err)
		return fmt.Errorf("initialize: %w", err)
	}

	// The initial catalog fetch is best-effort: a server may expose its
	// tools only after startup work completes.
	listCtx, cancelList := context.WithTimeout(ctx, c.config.ListTimeout)
	if err := c.refreshTools(listCtx); err != nil {
		c.stateMu.Lock()
		c.tools = nil
		c.stateMu.Unlock()
	}
	cancelList()

	c.setState(StateReady, nil)
	return nil
}

// initialize performs the handshake and the server version gate.
func (c *Client) initialize(ctx context.Context) error {
	params := protocol.InitializeParams{
		ProtocolVersion: protocol.ProtocolVersion,
		ClientInfo: protocol.PeerInfo{
			Name:    c.name,
			Version: "1.0.0",
		},
		Capabilities: protocol.Capabilities{},
	}

	var result protocol.InitializeResult
	if err := c.call(ctx, protocol.MethodInitialize, params, &result); err != nil {
		return err
	}
	c.serverInfo = result.ServerInfo

	if c.config.MinServerVersion != "" && result.ServerInfo.Version != "" {
		min, err := semver.NewVersion(c.config.MinServerVersion)
		if err == nil {
			if got, err := semver.NewVersion(result.ServerInfo.Version); err == nil && got.LessThan(min) {
				return fmt.Errorf("%w: server %s < required %s", ErrServerTooOld, got, min)
			}
		}
	}

	data, err := protocol.EncodeNotification(protocol.MethodInitialized, nil)
	if err != nil {
		return fmt.Errorf("encode initialized notification: %w", err)
	}
	if err := c.transport.Send(ctx, data); err != nil {
		return fmt.Errorf("send initialized notification: %w", err)
	}

	return nil
}

// refreshTools retrieves the tool catalog from the server.
func (c *Client) refreshTools(ctx context.Context) error {
	var result protocol.ListToolsResult
	if err := c.call(ctx, protocol.MethodToolsList, nil, &result); err != nil {
		return err
	}
	c.stateMu.Lock()
	c.tools = result.Tools
	c.stateMu.Unlock()
	return nil
}

// ListTools returns the cached catalog, refreshing it when empty.
func (c *Client) ListTools(ctx context.Context) ([]protocol.ToolInfo, error) {
	if !c.Ready() {
		return nil, ErrNotConnected
	}
	if len(c.Tools()) == 0 {
		listCtx, cancel := context.WithTimeout(ctx, c.config.ListTimeout)
		defer cancel()
		if err := c.refreshTools(listCtx); err != nil {
			return nil, err
		}
	}
	return c.Tools(), nil
}

// CallTool invokes a remote tool. Up to CallRetries attempts are made,
// separated by RetryDelay; on exhaustion the last error is returned.
// Cross-provider failover is the router's job, not the session's.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*protocol.CallToolResult, error) {
	if !c.Ready() {
		return nil, ErrNotConnected
	}

	params := protocol.CallToolParams{
		Name:      name,
		Arguments: args,
	}

	var lastErr error
	for attempt := 1; attempt <= c.config.CallRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
		var result protocol.CallToolResult
		err := c.call(callCtx, protocol.MethodToolsCall, params, &result)
		cancel()
		if err == nil {
			return &result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("call %s failed after %d attempts: %w", name, c.config.CallRetries, lastErr)
}

// call sends a request and waits for the matching response.
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	id := atomic.AddInt64(&c.nextID, 1)

	data, err := protocol.EncodeRequest(id, method, params)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	respCh := make(chan *protocol.Frame, 1)

	c.pendingMu.Lock()
	c.pending[id] = respCh
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.transport.Send(ctx, data); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case frame := <-respCh:
		if frame.Error != nil {
			return frame.Error
		}
		if result != nil && frame.Result != nil {
			if err := json.Unmarshal(frame.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}
		return nil
	}
}

// receiveLoop reads responses from the transport and dispatches them.
func (c *Client) receiveLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		data, err := c.transport.Receive(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			continue
		}

		frame, err := protocol.DecodeFrame(data)
		if err != nil {
			continue
		}

		if frame.Kind() == protocol.KindResponse {
			c.handleResponse(frame)
		}
	}
}

// handleResponse hands a response frame to the waiting caller.
func (c *Client) handleResponse(frame *protocol.Frame) {
	id := frame.RequestID()
	if id == 0 {
		return
	}

	c.pendingMu.Lock()
	ch, ok := c.pending[id]
	c.pendingMu.Unlock()

	if ok {
		select {
		case ch <- frame:
		default:
		}
	}
}

func (c *Client) closeTransport() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	if c.transport != nil {
		c.transport.Close()
		c.transport = nil
	}
}

// Disconnect releases the transport. Idempotent: a second disconnect is a
// no-op and never returns an error.
func (c *Client) Disconnect() error {
	if c.State() == StateDisconnected {
		return nil
	}
	c.closeTransport()
	c.setState(StateDisconnected, nil)
	return nil
}
