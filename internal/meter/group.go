package meter

import (
	"context"
	"fmt"

	server "pulsemeter/server"
	"pulsemeter/server/internal/net/proto"
	"pulsemeter/server/logging"
)

// PowerSource reads the powered state of a block position. The simulation
// side of the boundary owns the answer.
type PowerSource interface {
	IsPowered(world server.WorldRef, pos server.Position) bool
}

// Sender gates and delivers serialized messages to observers. Satisfied by
// the coordinator.
type Sender interface {
	SendToObserver(obs server.Observer, payload []byte) bool
}

// defaultPalette cycles through meter colors in creation order.
var defaultPalette = []int{
	0xE74C3C, // red
	0x2ECC71, // green
	0x3498D8, // blue
	0xF1C40F, // yellow
	0x9B59B6, // purple
	0xE67E22, // orange
	0x1ABC9C, // teal
	0xECF0F1, // white
}

type meterState struct {
	name    string
	color   int
	world   server.WorldRef
	pos     server.Position
	powered bool
	movable bool
}

// Group is the concrete meter group handed out by the coordinator's
// registry. It tracks meters, reacts to simulation events, and flushes the
// powered-state transitions accumulated during a tick to its members at the
// next tick boundary.
//
// The coordinator serializes every call, so the group carries no locking of
// its own.
type Group struct {
	name    string
	members []server.Observer
	meters  []*meterState
	pending []proto.MeterTransition

	tick      uint64
	created   int
	sender    Sender
	power     PowerSource
	publisher logging.Publisher
}

// Config wires a group's collaborators.
type Config struct {
	Name      string
	Sender    Sender
	Power     PowerSource
	Publisher logging.Publisher
}

// NewGroup constructs an empty meter group.
func NewGroup(cfg Config) *Group {
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Group{
		name:      cfg.Name,
		sender:    cfg.Sender,
		power:     cfg.Power,
		publisher: publisher,
	}
}

// Name returns the group's registry name.
func (g *Group) Name() string {
	return g.name
}

/* ----- Membership ----- */

// AddMember adds an observer to the group and sends them the current meter
// set. Adding an existing member only refreshes their snapshot.
func (g *Group) AddMember(obs server.Observer) {
	if obs == nil {
		return
	}
	if !g.isMember(obs) {
		g.members = append(g.members, obs)
	}
	g.sendSnapshot(obs)
}

// RemoveMember drops an observer from the group. No-op for non-members.
func (g *Group) RemoveMember(obs server.Observer) {
	if obs == nil {
		return
	}
	id := obs.ID()
	for i, member := range g.members {
		if member.ID() == id {
			g.members = append(g.members[:i], g.members[i+1:]...)
			return
		}
	}
}

// MemberCount reports the number of member observers.
func (g *Group) MemberCount() int {
	return len(g.members)
}

// MeterCount reports the number of meters.
func (g *Group) MeterCount() int {
	return len(g.meters)
}

func (g *Group) isMember(obs server.Observer) bool {
	id := obs.ID()
	for _, member := range g.members {
		if member.ID() == id {
			return true
		}
	}
	return false
}

/* ----- Meter Mutations ----- */

// ToggleMeter adds a meter at the given position, or removes the meter
// already there. Members receive a fresh snapshot either way.
func (g *Group) ToggleMeter(world server.WorldRef, pos server.Position, movable bool) {
	if idx := g.meterAt(world, pos); idx >= 0 {
		g.meters = append(g.meters[:idx], g.meters[idx+1:]...)
		g.dropPendingFor(idx)
		g.broadcastSnapshot()
		return
	}
	g.created++
	powered := false
	if g.power != nil {
		powered = g.power.IsPowered(world, pos)
	}
	g.meters = append(g.meters, &meterState{
		name:    fmt.Sprintf("meter %d", g.created),
		color:   defaultPalette[(g.created-1)%len(defaultPalette)],
		world:   world,
		pos:     pos,
		powered: powered,
		movable: movable,
	})
	g.broadcastSnapshot()
}

// RenameMeter renames the meter with the given id. Out-of-range ids are
// ignored.
func (g *Group) RenameMeter(meterID int, name string) {
	if meterID < 0 || meterID >= len(g.meters) {
		return
	}
	g.meters[meterID].name = name
	g.broadcastSnapshot()
}

// RenameLastMeter renames the most recently added meter. No-op when the
// group holds no meters.
func (g *Group) RenameLastMeter(name string) {
	g.RenameMeter(len(g.meters)-1, name)
}

// RecolorMeter recolors the meter with the given id. Out-of-range ids are
// ignored.
func (g *Group) RecolorMeter(meterID int, color int) {
	if meterID < 0 || meterID >= len(g.meters) {
		return
	}
	g.meters[meterID].color = color
	g.broadcastSnapshot()
}

// RecolorLastMeter recolors the most recently added meter. No-op when the
// group holds no meters.
func (g *Group) RecolorLastMeter(color int) {
	g.RecolorMeter(len(g.meters)-1, color)
}

// RemoveAllMeters clears the meter set along with any pending transitions.
func (g *Group) RemoveAllMeters() {
	if len(g.meters) == 0 {
		return
	}
	g.meters = g.meters[:0]
	g.pending = g.pending[:0]
	g.broadcastSnapshot()
}

// dropPendingFor discards buffered transitions for a removed meter and
// shifts the ids of the meters that moved down to fill its slot.
func (g *Group) dropPendingFor(idx int) {
	kept := g.pending[:0]
	for _, tr := range g.pending {
		if tr.MeterID == idx {
			continue
		}
		if tr.MeterID > idx {
			tr.MeterID--
		}
		kept = append(kept, tr)
	}
	g.pending = kept
}

func (g *Group) meterAt(world server.WorldRef, pos server.Position) int {
	for i, meter := range g.meters {
		if meter.world == world && meter.pos == pos {
			return i
		}
	}
	return -1
}

/* ----- Event Handlers ----- */

// OnStateChange re-reads the powered state of any meter at the changed
// position and records a transition for the current tick.
func (g *Group) OnStateChange(world server.WorldRef, pos server.Position) {
	if g.power == nil {
		return
	}
	for i, meter := range g.meters {
		if meter.world != world || meter.pos != pos {
			continue
		}
		powered := g.power.IsPowered(world, pos)
		if powered == meter.powered {
			continue
		}
		meter.powered = powered
		g.pending = append(g.pending, proto.MeterTransition{MeterID: i, Powered: powered})
	}
}

// OnPistonPush relocates movable meters at the pushed position one block in
// the push direction.
func (g *Group) OnPistonPush(world server.WorldRef, pos server.Position, dir server.Direction) {
	moved := false
	for _, meter := range g.meters {
		if !meter.movable || meter.world != world || meter.pos != pos {
			continue
		}
		meter.pos = meter.pos.Shifted(dir)
		moved = true
	}
	if moved {
		g.broadcastSnapshot()
	}
}

// OnTickStart flushes the transitions accumulated during the previous tick
// to every member, then advances the group's tick.
func (g *Group) OnTickStart(tick uint64) {
	if len(g.pending) > 0 {
		if payload, err := proto.EncodeMeterUpdates(g.tick, g.pending); err == nil {
			g.broadcast(payload)
		}
		g.pending = g.pending[:0]
	}
	g.tick = tick
}

// ProcessRequest applies a decoded observer request to the group. Requests
// the group does not understand are ignored.
func (g *Group) ProcessRequest(from server.Observer, req proto.Request) {
	switch r := req.(type) {
	case proto.ToggleMeter:
		g.ToggleMeter(server.WorldRef(r.World), server.Position{X: r.X, Y: r.Y, Z: r.Z}, r.Movable)
	case proto.RenameMeter:
		g.RenameMeter(r.MeterID, r.Name)
	case proto.RenameLastMeter:
		g.RenameLastMeter(r.Name)
	case proto.RecolorMeter:
		g.RecolorMeter(r.MeterID, r.Color)
	case proto.RecolorLastMeter:
		g.RecolorLastMeter(r.Color)
	case proto.RemoveAllMeters:
		g.RemoveAllMeters()
	default:
		g.publisher.Publish(context.Background(), logging.Event{
			Type:     "meter.request_ignored",
			Tick:     g.tick,
			Actor:    logging.EntityRef{ID: g.name, Kind: logging.EntityKindGroup},
			Severity: logging.SeverityDebug,
			Category: logging.CategorySimulation,
		})
	}
}

/* ----- Serialization ----- */

func (g *Group) snapshotMeters() []proto.MeterInfo {
	meters := make([]proto.MeterInfo, 0, len(g.meters))
	for i, meter := range g.meters {
		meters = append(meters, proto.MeterInfo{
			ID:      i,
			Name:    meter.name,
			Color:   meter.color,
			World:   string(meter.world),
			X:       meter.pos.X,
			Y:       meter.pos.Y,
			Z:       meter.pos.Z,
			Powered: meter.powered,
			Movable: meter.movable,
		})
	}
	return meters
}

func (g *Group) broadcastSnapshot() {
	payload, err := proto.EncodeMeterSnapshot(g.name, g.snapshotMeters())
	if err != nil {
		return
	}
	g.broadcast(payload)
}

func (g *Group) sendSnapshot(obs server.Observer) {
	if g.sender == nil {
		return
	}
	payload, err := proto.EncodeMeterSnapshot(g.name, g.snapshotMeters())
	if err != nil {
		return
	}
	g.sender.SendToObserver(obs, payload)
}

func (g *Group) broadcast(payload []byte) {
	if g.sender == nil {
		return
	}
	for _, member := range g.members {
		g.sender.SendToObserver(member, payload)
	}
}
