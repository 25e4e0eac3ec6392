package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleHTTPTransportRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
	}))
	defer server.Close()

	tr := NewSimpleHTTPTransport(server.URL, nil)
	require.NoError(t, tr.Start())
	defer tr.Close()

	ctx := context.Background()
	require.NoError(t, tr.Send(ctx, []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)))

	data, err := tr.Receive(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":1`)
}

func TestSimpleHTTPTransportRequiresStart(t *testing.T) {
	tr := NewSimpleHTTPTransport("http://127.0.0.1:1", nil)
	err := tr.Send(context.Background(), []byte(`{}`))
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestSimpleHTTPTransportCloseIdempotent(t *testing.T) {
	tr := NewSimpleHTTPTransport("http://127.0.0.1:1", nil)
	require.NoError(t, tr.Start())
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	err := tr.Send(context.Background(), []byte(`{}`))
	assert.ErrorIs(t, err, ErrTransportClosed)
}

func TestSimpleHTTPTransportServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	tr := NewSimpleHTTPTransport(server.URL, nil)
	require.NoError(t, tr.Start())
	defer tr.Close()

	err := tr.Send(context.Background(), []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestStreamableTransportReceivesSSE(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sse", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "event: message\ndata: {\"jsonrpc\":\"2.0\",\"id\":9,\"result\":{}}\n\n")
		flusher.Flush()
		// Keep the stream open until the client goes away.
		<-r.Context().Done()
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tr := NewStreamableTransport(server.URL, map[string]string{"Authorization": "Bearer x"})
	require.NoError(t, tr.Start())
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// A 202 response queues nothing; the payload arrives over SSE.
	require.NoError(t, tr.Send(ctx, []byte(`{"jsonrpc":"2.0","id":9,"method":"ping"}`)))

	data, err := tr.Receive(ctx)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"id":9`))
}

func TestStreamableTransportConnectFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	tr := NewStreamableTransport(server.URL, nil)
	err := tr.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SSE connect failed")
}
