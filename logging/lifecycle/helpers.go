package lifecycle

import (
	"context"

	"pulsemeter/server/logging"
)

const (
	// EventObserverConnected is emitted when an observer connects.
	EventObserverConnected logging.EventType = "lifecycle.observer_connected"
	// EventObserverDisconnected is emitted when an observer disconnects.
	EventObserverDisconnected logging.EventType = "lifecycle.observer_disconnected"
	// EventSubscriptionChanged is emitted when an observer lands in a group.
	EventSubscriptionChanged logging.EventType = "lifecycle.subscription_changed"
)

// SubscriptionChangedPayload names the group the observer now belongs to.
type SubscriptionChangedPayload struct {
	Group string `json:"group"`
}

// ObserverConnected publishes an observer connect event.
func ObserverConnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventObserverConnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Extra:    extra,
	})
}

// ObserverDisconnected publishes an observer disconnect event.
func ObserverDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventObserverDisconnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Extra:    extra,
	})
}

// SubscriptionChanged publishes a subscription change event.
func SubscriptionChanged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SubscriptionChangedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSubscriptionChanged,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}
