package network

import (
	"context"

	"pulsemeter/server/logging"
)

const (
	// EventPayloadDiscarded is emitted when an inbound payload fails to
	// decode.
	EventPayloadDiscarded logging.EventType = "network.payload_discarded"
	// EventChannelRegistered is emitted when an observer declares channel
	// support.
	EventChannelRegistered logging.EventType = "network.channel_registered"
)

// PayloadDiscardedPayload records why an inbound payload was dropped.
type PayloadDiscardedPayload struct {
	Channel string `json:"channel"`
	Reason  string `json:"reason"`
}

// ChannelRegisteredPayload lists the channels an observer declared.
type ChannelRegisteredPayload struct {
	Channels []string `json:"channels"`
}

// PayloadDiscarded publishes a discarded payload event.
func PayloadDiscarded(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PayloadDiscardedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPayloadDiscarded,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}

// ChannelRegistered publishes a channel registration event.
func ChannelRegistered(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ChannelRegisteredPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventChannelRegistered,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}
