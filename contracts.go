package server

import (
	"github.com/google/uuid"

	"pulsemeter/server/internal/net/proto"
)

// ChannelName is the reserved transport channel for meter traffic. All
// handshake and payload routing keys off equality with this constant.
const ChannelName = "PULSEMETER"

// registerChannel carries the channel announcement sent to every observer on
// connect.
const registerChannel = "REGISTER"

// WorldRef identifies a world/dimension. The coordinator passes it through
// to groups unmodified.
type WorldRef string

// Position is a block position inside a world.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Direction is the push direction carried by mechanical events.
type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionNorth Direction = "north"
	DirectionSouth Direction = "south"
	DirectionWest  Direction = "west"
	DirectionEast  Direction = "east"
)

// Offset returns the unit block offset for the direction.
func (d Direction) Offset() (dx, dy, dz int) {
	switch d {
	case DirectionUp:
		return 0, 1, 0
	case DirectionDown:
		return 0, -1, 0
	case DirectionNorth:
		return 0, 0, -1
	case DirectionSouth:
		return 0, 0, 1
	case DirectionWest:
		return -1, 0, 0
	case DirectionEast:
		return 1, 0, 0
	default:
		return 0, 0, 0
	}
}

// Shifted returns the position moved one block in the given direction.
func (p Position) Shifted(dir Direction) Position {
	dx, dy, dz := dir.Offset()
	return Position{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// Observer is a connected participant. Identity is supplied by the transport
// and is immutable for the lifetime of the connection.
type Observer interface {
	ID() uuid.UUID
	Name() string
	SupportsChannel(channel string) bool
	DeliverPayload(channel string, data []byte) error
}

// Group is a live meter group. The coordinator never inspects meter contents;
// it forwards events, routes requests, and reads the two counts that drive
// group lifecycle.
//
// Group methods are only invoked while the coordinator holds its mutex, so
// implementations do not need internal locking.
type Group interface {
	Name() string

	AddMember(obs Observer)
	RemoveMember(obs Observer)
	MemberCount() int
	MeterCount() int

	RenameMeter(meterID int, name string)
	RenameLastMeter(name string)
	RecolorMeter(meterID int, color int)
	RecolorLastMeter(color int)
	RemoveAllMeters()

	OnStateChange(world WorldRef, pos Position)
	OnPistonPush(world WorldRef, pos Position, dir Direction)
	OnTickStart(tick uint64)

	ProcessRequest(from Observer, req proto.Request)
}

// GroupFactory builds the concrete group for a freshly created registry
// entry.
type GroupFactory func(name string) Group
