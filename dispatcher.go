package server

import (
	"context"

	"pulsemeter/server/internal/net/proto"
	"pulsemeter/server/logging/lifecycle"
	"pulsemeter/server/logging/network"
)

// HandleCustomPayload decodes an application payload received on the
// reserved channel and routes it to the sender's group. Payloads on other
// channels are ignored; malformed or unknown requests are dropped without a
// response.
func (c *Coordinator) HandleCustomPayload(obs Observer, channel string, data []byte) {
	if obs == nil || channel != ChannelName {
		return
	}
	req, err := proto.DecodeRequest(data)
	if err != nil {
		c.counters.RecordDiscardedPayload()
		network.PayloadDiscarded(context.Background(), c.publisher, c.tick.Load(), observerRef(obs), network.PayloadDiscardedPayload{Channel: channel, Reason: err.Error()}, nil)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch r := req.(type) {
	case proto.JoinGroup:
		c.subs.Change(obs, r.GroupName)
	case proto.ListGroups:
		payload, err := proto.EncodeGroupList(c.registry.Names())
		if err != nil {
			c.logger.Printf("failed to encode group list for %s: %v", obs.Name(), err)
			return
		}
		c.SendToObserver(obs, payload)
	default:
		// A request implies active participation, so the group is resolved
		// with auto-creation.
		group := c.subs.ResolveGroup(obs)
		group.ProcessRequest(obs, req)
		c.registry.RemoveIfEmpty(group.Name())
	}
}

// SendToObserver delivers a serialized message on the reserved channel. The
// send is suppressed unless the observer has completed the channel
// handshake. Reports whether the payload was handed to the transport.
func (c *Coordinator) SendToObserver(obs Observer, payload []byte) bool {
	if obs == nil {
		return false
	}
	if !obs.SupportsChannel(ChannelName) {
		c.counters.RecordSuppressedSend()
		return false
	}
	if err := obs.DeliverPayload(ChannelName, payload); err != nil {
		c.logger.Printf("failed to deliver payload to %s: %v", obs.Name(), err)
		return false
	}
	c.counters.RecordSend(len(payload))
	return true
}

/* ----- Meter Command Support ----- */

// Each command below is a thin router from an observer to their current
// group. Observers without a current group get zero values and no-ops, never
// errors.

// MeterCount reports the number of meters in the observer's current group.
func (c *Coordinator) MeterCount(obs Observer) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	group, ok := c.subs.CurrentGroup(obs)
	if !ok {
		return 0
	}
	return group.MeterCount()
}

// RenameMeter renames the meter with the given id in the observer's group.
func (c *Coordinator) RenameMeter(obs Observer, meterID int, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if group, ok := c.subs.CurrentGroup(obs); ok {
		group.RenameMeter(meterID, name)
	}
}

// RenameLastMeter renames the most recently added meter in the observer's
// group.
func (c *Coordinator) RenameLastMeter(obs Observer, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if group, ok := c.subs.CurrentGroup(obs); ok {
		group.RenameLastMeter(name)
	}
}

// RecolorMeter recolors the meter with the given id in the observer's group.
func (c *Coordinator) RecolorMeter(obs Observer, meterID int, color int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if group, ok := c.subs.CurrentGroup(obs); ok {
		group.RecolorMeter(meterID, color)
	}
}

// RecolorLastMeter recolors the most recently added meter in the observer's
// group.
func (c *Coordinator) RecolorLastMeter(obs Observer, color int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if group, ok := c.subs.CurrentGroup(obs); ok {
		group.RecolorLastMeter(color)
	}
}

// RemoveAllMeters clears every meter in the observer's group. The group is
// reclaimed afterwards if that left it with no members and no meters.
func (c *Coordinator) RemoveAllMeters(obs Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	group, ok := c.subs.CurrentGroup(obs)
	if !ok {
		return
	}
	group.RemoveAllMeters()
	c.registry.RemoveIfEmpty(group.Name())
}

// ChangeSubscription moves the observer to groupName, vacating their old
// group first.
func (c *Coordinator) ChangeSubscription(obs Observer, groupName string) {
	if obs == nil || groupName == "" {
		return
	}
	c.mu.Lock()
	c.subs.Change(obs, groupName)
	c.mu.Unlock()
	lifecycle.SubscriptionChanged(context.Background(), c.publisher, c.tick.Load(), observerRef(obs), lifecycle.SubscriptionChangedPayload{Group: groupName}, nil)
}
