package server

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pulsemeter/server/internal/net/proto"
)

type sentPayload struct {
	channel string
	data    []byte
}

type stubObserver struct {
	id       uuid.UUID
	name     string
	channels map[string]bool
	sent     []sentPayload
	failSend bool
}

func newStubObserver(name string, channels ...string) *stubObserver {
	set := make(map[string]bool, len(channels))
	for _, channel := range channels {
		set[channel] = true
	}
	return &stubObserver{id: uuid.New(), name: name, channels: set}
}

func (o *stubObserver) ID() uuid.UUID { return o.id }

func (o *stubObserver) Name() string { return o.name }

func (o *stubObserver) SupportsChannel(channel string) bool { return o.channels[channel] }

func (o *stubObserver) DeliverPayload(channel string, data []byte) error {
	if o.failSend {
		return errors.New("delivery refused")
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	o.sent = append(o.sent, sentPayload{channel: channel, data: copied})
	return nil
}

func (o *stubObserver) payloadsOn(channel string) [][]byte {
	var payloads [][]byte
	for _, sent := range o.sent {
		if sent.channel == channel {
			payloads = append(payloads, sent.data)
		}
	}
	return payloads
}

// stubGroup records every call the coordinator makes. When trace is set,
// events are also appended there so tests can assert cross-group ordering.
type stubGroup struct {
	name     string
	members  []Observer
	meters   int
	events   []string
	requests []proto.Request
	trace    *[]string
}

func (g *stubGroup) record(event string) {
	g.events = append(g.events, event)
	if g.trace != nil {
		*g.trace = append(*g.trace, fmt.Sprintf("%s:%s", g.name, event))
	}
}

func (g *stubGroup) Name() string { return g.name }

func (g *stubGroup) AddMember(obs Observer) {
	for _, member := range g.members {
		if member.ID() == obs.ID() {
			return
		}
	}
	g.members = append(g.members, obs)
}

func (g *stubGroup) RemoveMember(obs Observer) {
	for i, member := range g.members {
		if member.ID() == obs.ID() {
			g.members = append(g.members[:i], g.members[i+1:]...)
			return
		}
	}
}

func (g *stubGroup) MemberCount() int { return len(g.members) }

func (g *stubGroup) MeterCount() int { return g.meters }

func (g *stubGroup) RenameMeter(meterID int, name string) {
	g.record(fmt.Sprintf("rename:%d:%s", meterID, name))
}

func (g *stubGroup) RenameLastMeter(name string) {
	g.record(fmt.Sprintf("renameLast:%s", name))
}

func (g *stubGroup) RecolorMeter(meterID int, color int) {
	g.record(fmt.Sprintf("recolor:%d:%d", meterID, color))
}

func (g *stubGroup) RecolorLastMeter(color int) {
	g.record(fmt.Sprintf("recolorLast:%d", color))
}

func (g *stubGroup) RemoveAllMeters() {
	g.meters = 0
	g.record("removeAll")
}

func (g *stubGroup) OnStateChange(world WorldRef, pos Position) {
	g.record(fmt.Sprintf("state:%s:%d,%d,%d", world, pos.X, pos.Y, pos.Z))
}

func (g *stubGroup) OnPistonPush(world WorldRef, pos Position, dir Direction) {
	g.record(fmt.Sprintf("push:%s:%d,%d,%d:%s", world, pos.X, pos.Y, pos.Z, dir))
}

func (g *stubGroup) OnTickStart(tick uint64) {
	g.record(fmt.Sprintf("tick:%d", tick))
}

func (g *stubGroup) ProcessRequest(from Observer, req proto.Request) {
	g.requests = append(g.requests, req)
	g.record(fmt.Sprintf("request:%T", req))
}

// stubGroups collects every group a factory produced, in creation order.
type stubGroups struct {
	created []*stubGroup
	trace   []string
	meters  int
}

func (s *stubGroups) factory(name string) Group {
	group := &stubGroup{name: name, meters: s.meters, trace: &s.trace}
	s.created = append(s.created, group)
	return group
}

func (s *stubGroups) byName(name string) *stubGroup {
	for i := len(s.created) - 1; i >= 0; i-- {
		if s.created[i].name == name {
			return s.created[i]
		}
	}
	return nil
}

func newStubCoordinator() (*Coordinator, *stubGroups) {
	groups := &stubGroups{}
	coordinator := NewCoordinator(Config{Groups: groups.factory})
	return coordinator, groups
}
