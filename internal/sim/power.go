package sim

import (
	"sync"

	server "pulsemeter/server"
)

// StateNotifier receives block-level simulation notifications.
type StateNotifier interface {
	HandleStateChange(world server.WorldRef, pos server.Position)
	HandlePistonPush(world server.WorldRef, pos server.Position, dir server.Direction)
}

type blockKey struct {
	world server.WorldRef
	pos   server.Position
}

// World is a mutable powered-block table standing in for the simulation's
// world model. Mutations feed state-change notifications to the bound
// notifier; reads satisfy the meter groups' power lookups.
type World struct {
	mu       sync.Mutex
	powered  map[blockKey]struct{}
	notifier StateNotifier
}

// NewWorld constructs an empty world.
func NewWorld() *World {
	return &World{powered: make(map[blockKey]struct{})}
}

// Bind attaches the notifier that receives this world's notifications.
func (w *World) Bind(notifier StateNotifier) {
	w.mu.Lock()
	w.notifier = notifier
	w.mu.Unlock()
}

// IsPowered reports the powered state of a block position.
func (w *World) IsPowered(world server.WorldRef, pos server.Position) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.powered[blockKey{world: world, pos: pos}]
	return ok
}

// SetPowered updates a block's powered state and notifies the bound notifier
// when the state actually changed.
func (w *World) SetPowered(world server.WorldRef, pos server.Position, powered bool) {
	key := blockKey{world: world, pos: pos}

	w.mu.Lock()
	_, was := w.powered[key]
	if powered == was {
		w.mu.Unlock()
		return
	}
	if powered {
		w.powered[key] = struct{}{}
	} else {
		delete(w.powered, key)
	}
	notifier := w.notifier
	w.mu.Unlock()

	if notifier != nil {
		notifier.HandleStateChange(world, pos)
	}
}

// Push relocates a block's powered state one position in the given direction
// and notifies the bound notifier of the mechanical push.
func (w *World) Push(world server.WorldRef, pos server.Position, dir server.Direction) {
	key := blockKey{world: world, pos: pos}

	w.mu.Lock()
	if _, ok := w.powered[key]; ok {
		delete(w.powered, key)
		w.powered[blockKey{world: world, pos: pos.Shifted(dir)}] = struct{}{}
	}
	notifier := w.notifier
	w.mu.Unlock()

	if notifier != nil {
		notifier.HandlePistonPush(world, pos, dir)
	}
}
