package ws

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	server "pulsemeter/server"
	"pulsemeter/server/internal/meter"
	"pulsemeter/server/internal/net/proto"
)

type staticPower struct{}

func (staticPower) IsPowered(server.WorldRef, server.Position) bool { return false }

func newTestServer(t *testing.T) (*httptest.Server, *server.Coordinator) {
	t.Helper()
	var coordinator *server.Coordinator
	coordinator = server.NewCoordinator(server.Config{
		Groups: func(name string) server.Group {
			return meter.NewGroup(meter.Config{Name: name, Sender: coordinator, Power: staticPower{}})
		},
	})
	handler := NewHandler(coordinator, HandlerConfig{})
	srv := httptest.NewServer(nethttp.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)
	return srv, coordinator
}

func dial(t *testing.T, srv *httptest.Server, name string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?name=" + name
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}
	return f
}

func writeFrame(t *testing.T, conn *websocket.Conn, f frame) {
	t.Helper()
	if err := conn.WriteJSON(f); err != nil {
		t.Fatalf("failed to write frame: %v", err)
	}
}

func TestSessionHandshakeAndSnapshot(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "alice")

	// The server announces its reserved channel first.
	announce := readFrame(t, conn)
	if announce.Channel != "REGISTER" || string(announce.Payload) != server.ChannelName {
		t.Fatalf("unexpected announcement %+v", announce)
	}

	// Declaring channel support makes alice a member of her default group
	// and triggers a welcome snapshot.
	writeFrame(t, conn, frame{Channel: "REGISTER", Payload: []byte(server.ChannelName)})

	welcome := readFrame(t, conn)
	if welcome.Channel != server.ChannelName {
		t.Fatalf("expected snapshot on %q, got %q", server.ChannelName, welcome.Channel)
	}
	var snapshot proto.MeterSnapshotMessage
	if err := json.Unmarshal(welcome.Payload, &snapshot); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if snapshot.Group != "alice" || len(snapshot.Meters) != 0 {
		t.Fatalf("unexpected welcome snapshot %+v", snapshot)
	}
}

func TestSessionToggleMeterRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "alice")

	readFrame(t, conn) // channel announcement
	writeFrame(t, conn, frame{Channel: "REGISTER", Payload: []byte(server.ChannelName)})
	readFrame(t, conn) // welcome snapshot

	writeFrame(t, conn, frame{
		Channel: server.ChannelName,
		Payload: []byte(`{"type":"toggleMeter","world":"overworld","x":1,"y":64,"z":-2}`),
	})

	update := readFrame(t, conn)
	var snapshot proto.MeterSnapshotMessage
	if err := json.Unmarshal(update.Payload, &snapshot); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if len(snapshot.Meters) != 1 {
		t.Fatalf("expected one meter, got %d", len(snapshot.Meters))
	}
	got := snapshot.Meters[0]
	if got.World != "overworld" || got.X != 1 || got.Y != 64 || got.Z != -2 {
		t.Fatalf("unexpected meter %+v", got)
	}
}

func TestSessionDisconnectCleansUp(t *testing.T) {
	srv, coordinator := newTestServer(t)
	conn := dial(t, srv, "alice")

	readFrame(t, conn)
	writeFrame(t, conn, frame{Channel: "REGISTER", Payload: []byte(server.ChannelName)})
	readFrame(t, conn)

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(coordinator.GroupNames()) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected the default group to be reclaimed after disconnect, got %v", coordinator.GroupNames())
}

func TestParseChannelList(t *testing.T) {
	channels := parseChannelList([]byte("PULSEMETER\x00chat\nminimap"))
	if len(channels) != 3 || channels[0] != "PULSEMETER" || channels[1] != "chat" || channels[2] != "minimap" {
		t.Fatalf("unexpected channels %v", channels)
	}
	if got := parseChannelList(nil); len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
}
