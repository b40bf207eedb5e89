package server

import (
	"encoding/json"
	"testing"

	"pulsemeter/server/internal/net/proto"
)

func TestMalformedPayloadDiscarded(t *testing.T) {
	coordinator, groups := newStubCoordinator()
	alice := newStubObserver("alice", ChannelName)

	coordinator.HandleCustomPayload(alice, ChannelName, []byte("{not json"))

	if len(groups.created) != 0 {
		t.Fatalf("expected no group creation for a malformed payload")
	}
	if len(alice.sent) != 0 {
		t.Fatalf("expected no response to a malformed payload")
	}
}

func TestUnknownRequestTypeDiscarded(t *testing.T) {
	coordinator, groups := newStubCoordinator()
	alice := newStubObserver("alice", ChannelName)

	coordinator.HandleCustomPayload(alice, ChannelName, []byte(`{"type":"selfDestruct"}`))

	if len(groups.created) != 0 {
		t.Fatalf("expected no group creation for an unknown request type")
	}
}

func TestPayloadOnOtherChannelIgnored(t *testing.T) {
	coordinator, groups := newStubCoordinator()
	alice := newStubObserver("alice", ChannelName)

	coordinator.HandleCustomPayload(alice, "chat", []byte(`{"type":"toggleMeter"}`))

	if len(groups.created) != 0 {
		t.Fatalf("expected payloads on other channels to be ignored")
	}
}

func TestRequestRoutesToResolvedGroup(t *testing.T) {
	coordinator, groups := newStubCoordinator()
	// Keep the auto-created group alive across the post-request cleanup.
	groups.meters = 1
	alice := newStubObserver("alice", ChannelName)

	coordinator.HandleCustomPayload(alice, ChannelName, []byte(`{"type":"toggleMeter","world":"overworld","x":1,"y":2,"z":3}`))

	group := groups.byName("alice")
	if group == nil {
		t.Fatalf("expected a request to auto-create the sender's group")
	}
	if len(group.requests) != 1 {
		t.Fatalf("expected one routed request, got %d", len(group.requests))
	}
	toggle, ok := group.requests[0].(proto.ToggleMeter)
	if !ok {
		t.Fatalf("expected a toggle request, got %T", group.requests[0])
	}
	if toggle.World != "overworld" || toggle.X != 1 || toggle.Y != 2 || toggle.Z != 3 {
		t.Fatalf("unexpected toggle payload %+v", toggle)
	}
}

func TestRequestCleanupReclaimsEmptiedGroup(t *testing.T) {
	coordinator, groups := newStubCoordinator()
	alice := newStubObserver("alice", ChannelName)

	// The stub group stays at zero meters and zero members, so the group is
	// reclaimed right after the request is processed.
	coordinator.HandleCustomPayload(alice, ChannelName, []byte(`{"type":"removeAllMeters"}`))

	if len(groups.created) != 1 {
		t.Fatalf("expected the request to create a group, got %d", len(groups.created))
	}
	if len(coordinator.GroupNames()) != 0 {
		t.Fatalf("expected the emptied group to be reclaimed, got %v", coordinator.GroupNames())
	}
}

func TestJoinGroupChangesSubscription(t *testing.T) {
	coordinator, groups := newStubCoordinator()
	alice := newStubObserver("alice", ChannelName)
	coordinator.HandleChannelRegister(alice, []string{ChannelName})

	coordinator.HandleCustomPayload(alice, ChannelName, []byte(`{"type":"joinGroup","group":"team"}`))

	names := coordinator.GroupNames()
	if len(names) != 1 || names[0] != "team" {
		t.Fatalf("expected only team to survive, got %v", names)
	}
	if group := groups.byName("team"); group == nil || group.MemberCount() != 1 {
		t.Fatalf("expected alice to be a member of team")
	}
}

func TestListGroupsRepliesInCreationOrder(t *testing.T) {
	coordinator, _ := newStubCoordinator()
	for _, name := range []string{"zeta", "alpha"} {
		obs := newStubObserver(name, ChannelName)
		coordinator.HandleChannelRegister(obs, []string{ChannelName})
	}
	asker := newStubObserver("asker", ChannelName)

	coordinator.HandleCustomPayload(asker, ChannelName, []byte(`{"type":"listGroups"}`))

	payloads := asker.payloadsOn(ChannelName)
	if len(payloads) != 1 {
		t.Fatalf("expected a single reply, got %d", len(payloads))
	}
	var reply proto.GroupListMessage
	if err := json.Unmarshal(payloads[0], &reply); err != nil {
		t.Fatalf("failed to decode reply: %v", err)
	}
	if reply.Type != proto.TypeGroupList {
		t.Fatalf("expected %q reply, got %q", proto.TypeGroupList, reply.Type)
	}
	if len(reply.Groups) != 2 || reply.Groups[0] != "zeta" || reply.Groups[1] != "alpha" {
		t.Fatalf("expected creation-ordered names, got %v", reply.Groups)
	}
}

func TestListGroupsReplySuppressedPreHandshake(t *testing.T) {
	coordinator, _ := newStubCoordinator()
	asker := newStubObserver("asker")

	coordinator.HandleCustomPayload(asker, ChannelName, []byte(`{"type":"listGroups"}`))

	if len(asker.sent) != 0 {
		t.Fatalf("expected the reply to be suppressed before the handshake")
	}
}

func TestCommandsWithoutSubscriptionAreNoops(t *testing.T) {
	coordinator, groups := newStubCoordinator()
	bob := newStubObserver("bob", ChannelName)

	if count := coordinator.MeterCount(bob); count != 0 {
		t.Fatalf("expected zero meters without a subscription, got %d", count)
	}
	coordinator.RenameMeter(bob, 0, "clock")
	coordinator.RenameLastMeter(bob, "clock")
	coordinator.RecolorMeter(bob, 0, 0xFF0000)
	coordinator.RecolorLastMeter(bob, 0xFF0000)
	coordinator.RemoveAllMeters(bob)

	if len(groups.created) != 0 {
		t.Fatalf("expected commands to never create groups, got %d", len(groups.created))
	}
}

func TestCommandsRouteToCurrentGroup(t *testing.T) {
	coordinator, groups := newStubCoordinator()
	groups.meters = 4
	bob := newStubObserver("bob", ChannelName)
	coordinator.HandleChannelRegister(bob, []string{ChannelName})

	if count := coordinator.MeterCount(bob); count != 4 {
		t.Fatalf("expected meter count 4, got %d", count)
	}
	coordinator.RenameMeter(bob, 1, "clock")
	coordinator.RecolorLastMeter(bob, 0x00FF00)
	coordinator.RemoveAllMeters(bob)

	group := groups.byName("bob")
	expected := []string{"rename:1:clock", "recolorLast:65280", "removeAll"}
	if len(group.events) != len(expected) {
		t.Fatalf("expected events %v, got %v", expected, group.events)
	}
	for i, event := range expected {
		if group.events[i] != event {
			t.Fatalf("expected event %q at %d, got %q", event, i, group.events[i])
		}
	}
}

func TestRemoveAllMetersReclaimsMemberlessGroup(t *testing.T) {
	coordinator, groups := newStubCoordinator()
	groups.meters = 2
	bob := newStubObserver("bob", ChannelName)
	coordinator.HandleChannelRegister(bob, []string{ChannelName})

	// Vacate membership while keeping the subscription edge and meters.
	group := groups.byName("bob")
	group.RemoveMember(bob)

	coordinator.RemoveAllMeters(bob)

	if len(coordinator.GroupNames()) != 0 {
		t.Fatalf("expected the group to be reclaimed once meters hit zero, got %v", coordinator.GroupNames())
	}
}
