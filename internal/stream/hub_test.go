package stream

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{stream}", hub.HandleWebSocket)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, stream string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + stream
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, stream string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount(stream) != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount(%q) = %d, want %d", stream, hub.ClientCount(stream), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_PublishToSubscriber(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "abc.spokes")
	waitForClients(t, hub, "abc.spokes", 1)

	if err := hub.Publish("abc.spokes", []byte{0x01, 0x02, 0xff}); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}
	if mt != websocket.BinaryMessage {
		t.Errorf("message type = %d, want binary", mt)
	}
	if string(data) != "\x01\x02\xff" {
		t.Errorf("payload = %x", data)
	}
}

func TestHub_StreamsAreIsolated(t *testing.T) {
	hub, srv := newTestHub(t)
	spokes := dial(t, srv, "abc.spokes")
	state := dial(t, srv, "abc.state")
	waitForClients(t, hub, "", 2)

	hub.Publish("abc.state", []byte(`{"range":926}`))

	state.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, data, err := state.ReadMessage(); err != nil || string(data) != `{"range":926}` {
		t.Fatalf("state stream got %q, %v", data, err)
	}

	spokes.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := spokes.ReadMessage(); err == nil {
		t.Error("spokes subscriber received a state message")
	}
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(nil)
	if err := hub.Publish("nobody.spokes", []byte("x")); err != nil {
		t.Errorf("Publish() error = %v, want nil", err)
	}
}

func TestHub_DisconnectRemovesClient(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "abc.spokes")
	waitForClients(t, hub, "abc.spokes", 1)

	conn.Close()
	waitForClients(t, hub, "abc.spokes", 0)

	if len(hub.Streams()) != 0 {
		t.Errorf("Streams() = %v, want none", hub.Streams())
	}
}

func TestHub_Close(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "abc.spokes")
	waitForClients(t, hub, "abc.spokes", 1)

	hub.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("ReadMessage() error = %v, want going-away close", err)
	}
}

func TestHub_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub, srv := newTestHub(t)
	dial(t, srv, "abc.spokes") // never reads
	waitForClients(t, hub, "abc.spokes", 1)

	payload := make([]byte, 1<<20)
	behind := false
	start := time.Now()
	for i := 0; i < 200; i++ {
		if err := hub.Publish("abc.spokes", payload); err != nil {
			if !errors.Is(err, ErrSubscriberBehind) {
				t.Fatalf("Publish() error = %v, want ErrSubscriberBehind", err)
			}
			behind = true
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("200 publishes took %v with a stalled subscriber", elapsed)
	}
	if !behind {
		t.Error("expected messages to be dropped for the stalled subscriber")
	}
}
