package ws

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// frame is the wire envelope for every message on a connection: a named
// channel plus an opaque payload. Payload bytes travel base64-encoded inside
// the JSON frame.
type frame struct {
	Channel string `json:"channel"`
	Payload []byte `json:"payload,omitempty"`
}

// Client is a connected websocket observer. It satisfies the coordinator's
// observer contract: stable identity, display name, declared-channel lookup,
// and raw payload delivery.
type Client struct {
	id   uuid.UUID
	name string

	writeMu sync.Mutex
	conn    *websocket.Conn

	channelMu sync.RWMutex
	channels  map[string]struct{}
}

func newClient(id uuid.UUID, name string, conn *websocket.Conn) *Client {
	return &Client{
		id:       id,
		name:     name,
		conn:     conn,
		channels: make(map[string]struct{}),
	}
}

// ID returns the client's connection-stable identity.
func (c *Client) ID() uuid.UUID {
	return c.id
}

// Name returns the client's display name.
func (c *Client) Name() string {
	return c.name
}

// SupportsChannel reports whether the client declared support for a channel.
func (c *Client) SupportsChannel(channel string) bool {
	c.channelMu.RLock()
	defer c.channelMu.RUnlock()
	_, ok := c.channels[channel]
	return ok
}

// DeliverPayload sends a payload to the client on the named channel.
func (c *Client) DeliverPayload(channel string, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(frame{Channel: channel, Payload: data})
}

func (c *Client) addChannels(channels []string) {
	c.channelMu.Lock()
	for _, channel := range channels {
		c.channels[channel] = struct{}{}
	}
	c.channelMu.Unlock()
}

func (c *Client) removeChannels(channels []string) {
	c.channelMu.Lock()
	for _, channel := range channels {
		delete(c.channels, channel)
	}
	c.channelMu.Unlock()
}

// parseChannelList splits a REGISTER/UNREGISTER payload into channel names.
// Names are NUL- or newline-separated.
func parseChannelList(payload []byte) []string {
	fields := strings.FieldsFunc(string(payload), func(r rune) bool {
		return r == '\x00' || r == '\n'
	})
	channels := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			channels = append(channels, trimmed)
		}
	}
	return channels
}
