package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Starts(t *testing.T) {
	cfg := &Config{Port: 0} // random port
	srv := NewServer(cfg, nil, nil)

	go func() { _ = srv.Start() }()
	defer func() { _ = srv.Stop(context.Background()) }()

	// wait for server to be ready
	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.BaseURL() + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == 200
	}, 2*time.Second, 100*time.Millisecond)
}

func TestServer_HealthEndpoint(t *testing.T) {
	cfg := &Config{Port: 0}
	srv := NewServer(cfg, nil, nil)

	go srv.Start()
	defer srv.Stop(context.Background())

	time.Sleep(50 * time.Millisecond)

	resp, err := http.Get(srv.BaseURL() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status string `json:"status"`
	}
	err = json.NewDecoder(resp.Body).Decode(&health)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
}

func TestServer_WebSocket(t *testing.T) {
	cfg := &Config{Port: 0}

	hub := NewHub()
	go hub.Run()

	srv := NewServer(cfg, nil, hub)
	go srv.Start()
	defer srv.Stop(context.Background())

	time.Sleep(50 * time.Millisecond)

	u := url.URL{Scheme: "ws", Host: srv.listener.Addr().String(), Path: "/ws"}

	c, wsResp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	defer c.Close()
	if wsResp != nil && wsResp.Body != nil {
		defer wsResp.Body.Close()
	}

	// events broadcast through the hub reach the socket
	hub.Broadcast([]byte(`{"type":"fetch.start"}`))

	_ = c.SetReadDeadline(time.Now().Add(time.Second))
	_, message, err := c.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"fetch.start"}`, string(message))
}

func TestServer_MountsAPI(t *testing.T) {
	api := chi.NewRouter()
	api.Get("/groups", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cfg := &Config{Port: 0}
	srv := NewServer(cfg, api, nil)

	go srv.Start()
	defer srv.Stop(context.Background())
	time.Sleep(50 * time.Millisecond)

	resp, err := http.Get(srv.BaseURL() + "/api/v1/groups")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
