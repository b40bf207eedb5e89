package server

import "github.com/google/uuid"

// subscriptionManager owns the observer → group-name edges. An observer has
// at most one subscription at a time; group existence stays with the
// registry.
type subscriptionManager struct {
	registry   *groupRegistry
	byObserver map[uuid.UUID]string
}

func newSubscriptionManager(registry *groupRegistry) *subscriptionManager {
	return &subscriptionManager{
		registry:   registry,
		byObserver: make(map[uuid.UUID]string),
	}
}

// ResolveGroup returns the observer's subscribed group. An observer with no
// recorded subscription is subscribed to a group named after them, and the
// target group is created on demand. Repeated calls with an unchanged
// subscription return the same group instance.
func (m *subscriptionManager) ResolveGroup(obs Observer) Group {
	id := obs.ID()
	name, ok := m.byObserver[id]
	if !ok {
		name = obs.Name()
		m.byObserver[id] = name
	}
	return m.registry.LookupOrCreate(name)
}

// CurrentGroup returns the observer's subscribed group when both the
// subscription and the group currently exist. Absence of either is a normal
// condition, not an error.
func (m *subscriptionManager) CurrentGroup(obs Observer) (Group, bool) {
	name, ok := m.byObserver[obs.ID()]
	if !ok {
		return nil, false
	}
	return m.registry.Lookup(name)
}

// Subscribe overwrites the observer's subscription with groupName and adds
// them as a member of that group, creating it if needed.
func (m *subscriptionManager) Subscribe(obs Observer, groupName string) Group {
	m.byObserver[obs.ID()] = groupName
	group := m.registry.LookupOrCreate(groupName)
	group.AddMember(obs)
	return group
}

// Unsubscribe removes the observer from their current group and reclaims the
// group if it is left with no members and no meters. No-op without a current
// group.
func (m *subscriptionManager) Unsubscribe(obs Observer) {
	group, ok := m.CurrentGroup(obs)
	if !ok {
		return
	}
	group.RemoveMember(obs)
	m.registry.RemoveIfEmpty(group.Name())
}

// Change moves the observer to groupName. The old group is vacated first so
// an emptied group is reclaimed before the new name resolves; subscribing
// back to the same name therefore lands on a fresh group when the old one
// held nothing else.
func (m *subscriptionManager) Change(obs Observer, groupName string) Group {
	m.Unsubscribe(obs)
	return m.Subscribe(obs, groupName)
}
