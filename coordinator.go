package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"pulsemeter/server/internal/telemetry"
	"pulsemeter/server/logging"
	"pulsemeter/server/logging/lifecycle"
	"pulsemeter/server/logging/network"
)

// Coordinator is the server-side hub for meter groups. It owns the group
// registry and the observer subscriptions, fans simulation events out to
// every live group, and routes protocol traffic between observers and their
// groups.
//
// All entry points serialize on a single mutex. The host may deliver
// notifications from any goroutine, but two notifications are never applied
// concurrently; the registry and subscription maps rely on that.
type Coordinator struct {
	mu       sync.Mutex
	registry *groupRegistry
	subs     *subscriptionManager

	tick      atomic.Uint64
	counters  *telemetryCounters
	publisher logging.Publisher
	logger    telemetry.Logger
}

// Config wires the coordinator's collaborators.
type Config struct {
	Groups    GroupFactory
	Publisher logging.Publisher
	Logger    telemetry.Logger
}

// NewCoordinator constructs a coordinator with empty registry and
// subscription state.
func NewCoordinator(cfg Config) *Coordinator {
	factory := cfg.Groups
	if factory == nil {
		factory = func(name string) Group { return nil }
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}

	registry := newGroupRegistry(factory)
	return &Coordinator{
		registry:  registry,
		subs:      newSubscriptionManager(registry),
		counters:  newTelemetryCounters(),
		publisher: publisher,
		logger:    logger,
	}
}

// GroupNames returns the live group names in creation order.
func (c *Coordinator) GroupNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Names()
}

// Tick reports the most recent tick-start number seen by the coordinator.
func (c *Coordinator) Tick() uint64 {
	return c.tick.Load()
}

/* ----- Connection Lifecycle ----- */

// HandleConnect announces the reserved channel to a freshly connected
// observer. Membership starts later, once the observer registers for the
// channel.
func (c *Coordinator) HandleConnect(obs Observer) {
	if obs == nil {
		return
	}
	if err := obs.DeliverPayload(registerChannel, []byte(ChannelName)); err != nil {
		c.logger.Printf("channel announcement to %s failed: %v", obs.Name(), err)
	}
	c.counters.RecordConnect()
	lifecycle.ObserverConnected(context.Background(), c.publisher, c.tick.Load(), observerRef(obs), nil)
}

// HandleDisconnect removes the observer from their current group.
func (c *Coordinator) HandleDisconnect(obs Observer) {
	if obs == nil {
		return
	}
	c.mu.Lock()
	c.subs.Unsubscribe(obs)
	c.mu.Unlock()
	c.counters.RecordDisconnect()
	lifecycle.ObserverDisconnected(context.Background(), c.publisher, c.tick.Load(), observerRef(obs), nil)
}

// HandleChannelRegister reacts to an observer declaring channel support. An
// observer becomes an active member of its subscribed group here, not at
// connect time.
func (c *Coordinator) HandleChannelRegister(obs Observer, channels []string) {
	if obs == nil || !lo.Contains(channels, ChannelName) {
		return
	}
	c.mu.Lock()
	group := c.subs.ResolveGroup(obs)
	group.AddMember(obs)
	groupName := group.Name()
	c.mu.Unlock()
	network.ChannelRegistered(context.Background(), c.publisher, c.tick.Load(), observerRef(obs), network.ChannelRegisteredPayload{Channels: channels}, nil)
	lifecycle.SubscriptionChanged(context.Background(), c.publisher, c.tick.Load(), observerRef(obs), lifecycle.SubscriptionChangedPayload{Group: groupName}, nil)
}

// HandleChannelUnregister is intentionally a no-op. An observer that drops
// the channel without disconnecting keeps its subscription; outbound sends
// simply stop validating against the channel gate.
func (c *Coordinator) HandleChannelUnregister(obs Observer, channels []string) {}

/* ----- Event Fan-out ----- */

// HandleStateChange forwards a block state change to every live group in
// creation order, exactly once per group.
func (c *Coordinator) HandleStateChange(world WorldRef, pos Position) {
	c.mu.Lock()
	groups := c.registry.Groups()
	for _, group := range groups {
		group.OnStateChange(world, pos)
	}
	c.mu.Unlock()
	c.counters.RecordFanout(len(groups))
}

// HandlePistonPush forwards a mechanical push to every live group in
// creation order, exactly once per group.
func (c *Coordinator) HandlePistonPush(world WorldRef, pos Position, dir Direction) {
	c.mu.Lock()
	groups := c.registry.Groups()
	for _, group := range groups {
		group.OnPistonPush(world, pos, dir)
	}
	c.mu.Unlock()
	c.counters.RecordFanout(len(groups))
}

// HandleTickStart records the new tick and forwards the boundary to every
// live group in creation order.
func (c *Coordinator) HandleTickStart(tick uint64) {
	c.tick.Store(tick)
	c.mu.Lock()
	groups := c.registry.Groups()
	for _, group := range groups {
		group.OnTickStart(tick)
	}
	c.mu.Unlock()
	c.counters.RecordFanout(len(groups))
}

/* ----- Diagnostics ----- */

// DiagnosticsSnapshot captures registry and telemetry state for the
// diagnostics endpoint.
func (c *Coordinator) DiagnosticsSnapshot() DiagnosticsReport {
	c.mu.Lock()
	groups := c.registry.Groups()
	subscriptions := len(c.subs.byObserver)
	c.mu.Unlock()

	return DiagnosticsReport{
		Tick:          c.tick.Load(),
		ServerTime:    time.Now().UnixMilli(),
		Subscriptions: subscriptions,
		Groups: lo.Map(groups, func(group Group, _ int) DiagnosticsGroup {
			return DiagnosticsGroup{
				Name:    group.Name(),
				Members: group.MemberCount(),
				Meters:  group.MeterCount(),
			}
		}),
		Telemetry: c.counters.Snapshot(),
	}
}

func observerRef(obs Observer) logging.EntityRef {
	return logging.EntityRef{ID: obs.ID().String(), Kind: logging.EntityKindObserver}
}
