package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(nil, func() Component { return &counterComponent{} })
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dialWS(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) renderFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame renderFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame failed: %v", err)
	}
	return frame
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestWebSocketInitialFrame(t *testing.T) {
	srv, ts := newTestServer(t)
	conn := dialWS(t, ts, "")

	frame := readFrame(t, conn)
	if frame.Type != "render" || frame.Seq != 1 {
		t.Errorf("unexpected first frame: %+v", frame)
	}
	if !strings.Contains(frame.HTML, "count is 0") {
		t.Errorf("expected initial render, got %q", frame.HTML)
	}
	if srv.Sessions().Count() != 1 {
		t.Errorf("expected 1 live session, got %d", srv.Sessions().Count())
	}
}

func TestWebSocketEventRoundTrip(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dialWS(t, ts, "")

	readFrame(t, conn)

	msg, _ := json.Marshal(eventFrame{Type: "event", Name: "increment"})
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("write event failed: %v", err)
	}

	frame := readFrame(t, conn)
	if !strings.Contains(frame.HTML, "count is 1") {
		t.Errorf("expected incremented render, got %q", frame.HTML)
	}
}

func TestWebSocketDisconnectCleansUp(t *testing.T) {
	srv, ts := newTestServer(t)
	conn := dialWS(t, ts, "")
	readFrame(t, conn)

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Sessions().Count() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if srv.Sessions().Count() != 0 {
		t.Errorf("disconnect must remove the session, got %d", srv.Sessions().Count())
	}
}

func TestSessionLimitRejectsUpgrade(t *testing.T) {
	srv := New(&ServerConfig{MaxSessions: 1}, func() Component { return &counterComponent{} })
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	first := dialWS(t, ts, "")
	readFrame(t, first)

	second := dialWS(t, ts, "")
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := second.ReadMessage(); err == nil {
		t.Error("second connection must be closed by the server")
	}
}
