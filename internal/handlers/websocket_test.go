package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"irrigation_dashboard/internal/models"
	"irrigation_dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// --- parseInterval unit tests ---

func TestParseInterval(t *testing.T) {
	h := NewHandler(&service.Service{}, nil, nil)

	cases := []struct {
		name string
		u    string
		want time.Duration
	}{
		{"default_when_missing", "/ws", 1 * time.Second},
		{"interval_string_valid", "/ws?interval=200ms", 200 * time.Millisecond},
		{"interval_ms_valid", "/ws?interval_ms=150", 150 * time.Millisecond},
		{"interval_too_large", "/ws?interval=20s", 1 * time.Second},
		{"interval_ms_too_large", "/ws?interval_ms=20000", 1 * time.Second},
		{"interval_invalid_string", "/ws?interval=bogus", 1 * time.Second},
		{"interval_ms_invalid", "/ws?interval_ms=NaN", 1 * time.Second},
		{"both_present_interval_wins", "/ws?interval=2s&interval_ms=150", 2 * time.Second},
		{"both_present_invalid_interval_ms_used", "/ws?interval=bogus&interval_ms=250", 250 * time.Millisecond},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.u, nil)
			c, _ := gin.CreateTestContext(w)
			c.Request = req
			got := h.parseInterval(c)
			if got != tc.want {
				t.Fatalf("got %v, want %v for %s", got, tc.want, tc.u)
			}
		})
	}
}

func TestWithPushInterval(t *testing.T) {
	h := NewHandler(&service.Service{}, nil, nil).WithPushInterval(3 * time.Second)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ws", nil)
	if got := h.parseInterval(c); got != 3*time.Second {
		t.Fatalf("configured default not used: %v", got)
	}

	h.WithPushInterval(time.Hour)
	if got := h.parseInterval(c); got != 3*time.Second {
		t.Fatalf("out-of-range interval must be ignored: %v", got)
	}
}

// --- websocket integration tests ---

type envelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func dialWS(t *testing.T, s *service.Service, query string) *websocket.Conn {
	t.Helper()
	r := gin.New()
	h := NewHandler(s, nil, nil)
	r.GET("/ws", h.wsConnect)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	u.RawQuery = query

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

// readUntil skips envelopes of other types.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) envelope {
	t.Helper()
	for i := 0; i < 20; i++ {
		if env := readEnvelope(t, conn); env.Type == typ {
			return env
		}
	}
	t.Fatalf("no %q message received", typ)
	return envelope{}
}

func TestWebSocket_StateStream_InitialAndPeriodic(t *testing.T) {
	dash := newMockDashboard(sampleView())
	conn := dialWS(t, &service.Service{Dashboard: dash}, "interval_ms=20")

	env := readEnvelope(t, conn)
	if env.Type != msgState || len(env.Data) == 0 {
		t.Fatalf("bad envelope: %+v", env)
	}
	var v models.DashboardView
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if v.Recommendation != "SUHO" || v.Moisture != 15 {
		t.Fatalf("unexpected state: %+v", v)
	}

	// a subsequent tick
	env = readEnvelope(t, conn)
	if env.Type != msgState {
		t.Fatalf("expected type=state, got %+v", env)
	}
}

func TestWebSocket_PushesOnChange(t *testing.T) {
	dash := newMockDashboard(sampleView())
	// long interval: the second message can only come from the change signal
	conn := dialWS(t, &service.Service{Dashboard: dash}, "interval=10s")

	readEnvelope(t, conn)

	next := sampleView()
	next.Moisture = 55
	dash.set(next)

	env := readEnvelope(t, conn)
	var v models.DashboardView
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.Moisture != 55 {
		t.Fatalf("expected pushed change, got %+v", v)
	}
}

func TestWebSocket_ToggleMessage(t *testing.T) {
	dash := newMockDashboard(sampleView())
	ctrl := &mockControl{}
	conn := dialWS(t, &service.Service{Dashboard: dash, Control: ctrl}, "interval=10s")

	readEnvelope(t, conn)
	if err := conn.WriteJSON(wsRequest{Type: reqToggle}); err != nil {
		t.Fatalf("write: %v", err)
	}

	env := readUntil(t, conn, msgCommand)
	var out ToggleResponse
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Command.Active || ctrl.Calls() != 1 {
		t.Fatalf("unexpected toggle reply: %+v calls=%d", out, ctrl.Calls())
	}
}

func TestWebSocket_BadMessages(t *testing.T) {
	dash := newMockDashboard(sampleView())
	conn := dialWS(t, &service.Service{Dashboard: dash}, "interval=10s")
	readEnvelope(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if env := readUntil(t, conn, msgError); env.Error != errBadMessage {
		t.Fatalf("unexpected error: %+v", env)
	}

	if err := conn.WriteJSON(wsRequest{Type: "reboot"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if env := readUntil(t, conn, msgError); env.Error != errUnsupportedMessage {
		t.Fatalf("unexpected error: %+v", env)
	}
}
