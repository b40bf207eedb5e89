package ws

import (
	"fmt"
	nethttp "net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	server "pulsemeter/server"
	"pulsemeter/server/internal/telemetry"
)

// Coordinator is the slice of the hub the transport drives. Notifications
// are delivered synchronously from the connection's read loop.
type Coordinator interface {
	HandleConnect(obs server.Observer)
	HandleDisconnect(obs server.Observer)
	HandleChannelRegister(obs server.Observer, channels []string)
	HandleChannelUnregister(obs server.Observer, channels []string)
	HandleCustomPayload(obs server.Observer, channel string, data []byte)
}

// Channel names reserved by the transport handshake.
const (
	registerChannel   = "REGISTER"
	unregisterChannel = "UNREGISTER"
)

type HandlerConfig struct {
	Logger telemetry.Logger
}

// Handler upgrades HTTP requests into observer connections and pumps their
// frames into the coordinator.
type Handler struct {
	coordinator Coordinator
	logger      telemetry.Logger
	upgrader    websocket.Upgrader
}

func NewHandler(coordinator Coordinator, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		coordinator: coordinator,
		logger:      logger,
		upgrader:    upgrader,
	}
}

// Handle upgrades the request and runs the connection's read loop until the
// peer goes away.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	if h == nil || h.coordinator == nil {
		nethttp.Error(w, "unavailable", nethttp.StatusServiceUnavailable)
		return
	}

	id := uuid.New()
	name := r.URL.Query().Get("name")
	if name == "" {
		name = fmt.Sprintf("observer-%s", id.String()[:8])
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", name, err)
		return
	}

	client := newClient(id, name, conn)
	h.coordinator.HandleConnect(client)

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			h.coordinator.HandleDisconnect(client)
			conn.Close()
			return
		}

		switch f.Channel {
		case registerChannel:
			channels := parseChannelList(f.Payload)
			client.addChannels(channels)
			h.coordinator.HandleChannelRegister(client, channels)
		case unregisterChannel:
			channels := parseChannelList(f.Payload)
			client.removeChannels(channels)
			h.coordinator.HandleChannelUnregister(client, channels)
		default:
			h.coordinator.HandleCustomPayload(client, f.Channel, f.Payload)
		}
	}
}
