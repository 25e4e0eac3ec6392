package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StreamableTransport implements ClientTransport over HTTP POST + SSE.
// Requests are POSTed to the endpoint; responses arrive either inline in
// the POST response body or asynchronously on the SSE stream.
type StreamableTransport struct {
	endpoint   string
	headers    map[string]string
	httpClient *http.Client
	sseConn    io.ReadCloser
	sseReader  *bufio.Reader
	incoming   chan []byte
	sessionID  string
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	started    bool
	closed     bool
	mu         sync.Mutex
}

// NewStreamableTransport creates a new streamable HTTP transport.
func NewStreamableTransport(endpoint string, headers map[string]string) *StreamableTransport {
	return &StreamableTransport{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		headers:    headers,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		incoming:   make(chan []byte, 100),
	}
}

// Start establishes the SSE connection.
func (t *StreamableTransport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}
	if t.started {
		return nil
	}

	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.sessionID = uuid.New().String()

	sseURL := fmt.Sprintf("%s/sse?sessionId=%s", t.endpoint, t.sessionID)
	req, err := http.NewRequestWithContext(t.ctx, http.MethodGet, sseURL, nil)
	if err != nil {
		return fmt.Errorf("create SSE request: %w", err)
	}
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "text/event-stream")

	// The stream stays open for the lifetime of the transport, so the
	// request must not inherit the client's per-request timeout.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("SSE connect: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("SSE connect failed: status %d", resp.StatusCode)
	}

	t.sseConn = resp.Body
	t.sseReader = bufio.NewReader(resp.Body)

	t.wg.Add(1)
	go t.sseLoop()

	t.started = true
	return nil
}

// sseLoop reads SSE events from the connection and queues message events.
func (t *StreamableTransport) sseLoop() {
	defer t.wg.Done()

	for {
		select {
		case <-t.ctx.Done():
			return
		default:
		}

		event, data, err := t.readSSEEvent()
		if err != nil {
			if t.ctx.Err() != nil {
				return
			}
			continue
		}

		switch event {
		case "session":
			t.mu.Lock()
			t.sessionID = string(data)
			t.mu.Unlock()
		case "message", "":
			select {
			case t.incoming <- data:
			case <-t.ctx.Done():
				return
			}
		}
	}
}

// readSSEEvent reads a single SSE event from the stream.
func (t *StreamableTransport) readSSEEvent() (event string, data []byte, err error) {
	var eventType string
	var dataBuilder bytes.Buffer

	for {
		line, err := t.sseReader.ReadString('\n')
		if err != nil {
			return "", nil, err
		}

		line = strings.TrimSpace(line)

		// Empty line terminates the event.
		if line == "" {
			if dataBuilder.Len() > 0 {
				return eventType, dataBuilder.Bytes(), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "event:") {
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		} else if strings.HasPrefix(line, "data:") {
			if dataBuilder.Len() > 0 {
				dataBuilder.WriteByte('\n')
			}
			dataBuilder.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
}

// Send sends a request via HTTP POST.
func (t *StreamableTransport) Send(ctx context.Context, data []byte) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTransportClosed
	}
	if !t.started {
		t.mu.Unlock()
		return ErrNotStarted
	}
	sessionID := t.sessionID
	t.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", sessionID)
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	// 202 Accepted means the response will arrive on the SSE stream.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed: status %d, body: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if len(body) > 0 && resp.StatusCode == http.StatusOK {
		select {
		case t.incoming <- body:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// Receive returns the next message from the SSE stream.
func (t *StreamableTransport) Receive(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrTransportClosed
	}
	if !t.started {
		t.mu.Unlock()
		return nil, ErrNotStarted
	}
	t.mu.Unlock()

	select {
	case data := <-t.incoming:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes the transport. Safe to call more than once.
func (t *StreamableTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	if t.cancel != nil {
		t.cancel()
	}
	t.wg.Wait()

	if t.sseConn != nil {
		t.sseConn.Close()
	}

	return nil
}

// SimpleHTTPTransport implements ClientTransport for servers speaking plain
// request/response HTTP without a server-push stream.
type SimpleHTTPTransport struct {
	endpoint   string
	headers    map[string]string
	httpClient *http.Client
	incoming   chan []byte
	ctx        context.Context
	cancel     context.CancelFunc
	started    bool
	closed     bool
	mu         sync.Mutex
}

// NewSimpleHTTPTransport creates a new simple HTTP transport.
func NewSimpleHTTPTransport(endpoint string, headers map[string]string) *SimpleHTTPTransport {
	return &SimpleHTTPTransport{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		headers:    headers,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		incoming:   make(chan []byte, 100),
	}
}

// Start initializes the transport.
func (t *SimpleHTTPTransport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}
	if t.started {
		return nil
	}

	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.started = true
	return nil
}

// Send POSTs a request; the response body is queued for Receive.
func (t *SimpleHTTPTransport) Send(ctx context.Context, data []byte) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTransportClosed
	}
	if !t.started {
		t.mu.Unlock()
		return ErrNotStarted
	}
	t.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed: status %d, body: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if len(body) > 0 && resp.StatusCode == http.StatusOK {
		select {
		case t.incoming <- body:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// Buffer full, drop response.
		}
	}

	return nil
}

// Receive returns the next queued response.
func (t *SimpleHTTPTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case data := <-t.incoming:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.ctx.Done():
		return nil, ErrTransportClosed
	}
}

// Close closes the transport. Safe to call more than once.
func (t *SimpleHTTPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	if t.cancel != nil {
		t.cancel()
	}

	return nil
}
