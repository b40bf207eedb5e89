package proto

import (
	"encoding/json"
	"fmt"
)

// Version tracks the wire-protocol revision expected by clients.
const Version = 1

// Inbound request type identifiers.
const (
	TypeToggleMeter      = "toggleMeter"
	TypeRenameMeter      = "renameMeter"
	TypeRenameLastMeter  = "renameLastMeter"
	TypeRecolorMeter     = "recolorMeter"
	TypeRecolorLastMeter = "recolorLastMeter"
	TypeRemoveAllMeters  = "removeAllMeters"
	TypeJoinGroup        = "joinGroup"
	TypeListGroups       = "listGroups"
)

// Outbound message type identifiers.
const (
	TypeMeterSnapshot = "meterSnapshot"
	TypeMeterUpdates  = "meterUpdates"
	TypeGroupList     = "groupList"
)

// Request is a decoded observer request. The dispatcher routes it; the
// receiving group interprets its semantics.
type Request interface {
	requestType() string
}

// ToggleMeter adds a meter at a block position or removes the one already
// there.
type ToggleMeter struct {
	World   string
	X       int
	Y       int
	Z       int
	Movable bool
}

// RenameMeter renames the meter with the given id.
type RenameMeter struct {
	MeterID int
	Name    string
}

// RenameLastMeter renames the most recently added meter.
type RenameLastMeter struct {
	Name string
}

// RecolorMeter recolors the meter with the given id.
type RecolorMeter struct {
	MeterID int
	Color   int
}

// RecolorLastMeter recolors the most recently added meter.
type RecolorLastMeter struct {
	Color int
}

// RemoveAllMeters clears every meter in the group.
type RemoveAllMeters struct{}

// JoinGroup moves the sender to another meter group.
type JoinGroup struct {
	GroupName string
}

// ListGroups asks for the names of the live groups.
type ListGroups struct{}

func (ToggleMeter) requestType() string      { return TypeToggleMeter }
func (RenameMeter) requestType() string      { return TypeRenameMeter }
func (RenameLastMeter) requestType() string  { return TypeRenameLastMeter }
func (RecolorMeter) requestType() string     { return TypeRecolorMeter }
func (RecolorLastMeter) requestType() string { return TypeRecolorLastMeter }
func (RemoveAllMeters) requestType() string  { return TypeRemoveAllMeters }
func (JoinGroup) requestType() string        { return TypeJoinGroup }
func (ListGroups) requestType() string       { return TypeListGroups }

// requestEnvelope is the wire form of every inbound request. Optional fields
// are pointers so missing values can be told apart from zero values.
type requestEnvelope struct {
	Ver     int     `json:"ver,omitempty"`
	Type    string  `json:"type"`
	World   string  `json:"world,omitempty"`
	X       int     `json:"x,omitempty"`
	Y       int     `json:"y,omitempty"`
	Z       int     `json:"z,omitempty"`
	Movable *bool   `json:"movable,omitempty"`
	MeterID *int    `json:"meterId,omitempty"`
	Name    *string `json:"name,omitempty"`
	Color   *int    `json:"color,omitempty"`
	Group   string  `json:"group,omitempty"`
}

// DecodeRequest parses an inbound payload into a typed request. Malformed
// payloads and unknown types return an error; callers are expected to drop
// the payload without responding.
func DecodeRequest(data []byte) (Request, error) {
	var env requestEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	switch env.Type {
	case TypeToggleMeter:
		movable := true
		if env.Movable != nil {
			movable = *env.Movable
		}
		return ToggleMeter{World: env.World, X: env.X, Y: env.Y, Z: env.Z, Movable: movable}, nil
	case TypeRenameMeter:
		if env.MeterID == nil || env.Name == nil {
			return nil, fmt.Errorf("%s: missing meterId or name", env.Type)
		}
		return RenameMeter{MeterID: *env.MeterID, Name: *env.Name}, nil
	case TypeRenameLastMeter:
		if env.Name == nil {
			return nil, fmt.Errorf("%s: missing name", env.Type)
		}
		return RenameLastMeter{Name: *env.Name}, nil
	case TypeRecolorMeter:
		if env.MeterID == nil || env.Color == nil {
			return nil, fmt.Errorf("%s: missing meterId or color", env.Type)
		}
		return RecolorMeter{MeterID: *env.MeterID, Color: *env.Color}, nil
	case TypeRecolorLastMeter:
		if env.Color == nil {
			return nil, fmt.Errorf("%s: missing color", env.Type)
		}
		return RecolorLastMeter{Color: *env.Color}, nil
	case TypeRemoveAllMeters:
		return RemoveAllMeters{}, nil
	case TypeJoinGroup:
		if env.Group == "" {
			return nil, fmt.Errorf("%s: missing group", env.Type)
		}
		return JoinGroup{GroupName: env.Group}, nil
	case TypeListGroups:
		return ListGroups{}, nil
	default:
		return nil, fmt.Errorf("unknown request type %q", env.Type)
	}
}

// MeterInfo is the wire form of a single meter.
type MeterInfo struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Color   int    `json:"color"`
	World   string `json:"world"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Z       int    `json:"z"`
	Powered bool   `json:"powered"`
	Movable bool   `json:"movable,omitempty"`
}

// MeterSnapshotMessage carries the full meter set of a group.
type MeterSnapshotMessage struct {
	Ver    int         `json:"ver"`
	Type   string      `json:"type"`
	Group  string      `json:"group"`
	Meters []MeterInfo `json:"meters"`
}

// MeterTransition records one powered-state flip observed during a tick.
type MeterTransition struct {
	MeterID int  `json:"meterId"`
	Powered bool `json:"powered"`
}

// MeterUpdatesMessage carries the transitions accumulated during one tick.
type MeterUpdatesMessage struct {
	Ver     int               `json:"ver"`
	Type    string            `json:"type"`
	Tick    uint64            `json:"t"`
	Updates []MeterTransition `json:"updates"`
}

// GroupListMessage carries the live group names in creation order.
type GroupListMessage struct {
	Ver    int      `json:"ver"`
	Type   string   `json:"type"`
	Groups []string `json:"groups"`
}

// EncodeMeterSnapshot renders a full-group meter snapshot.
func EncodeMeterSnapshot(group string, meters []MeterInfo) ([]byte, error) {
	if meters == nil {
		meters = []MeterInfo{}
	}
	return json.Marshal(MeterSnapshotMessage{Ver: Version, Type: TypeMeterSnapshot, Group: group, Meters: meters})
}

// EncodeMeterUpdates renders the transitions observed during tick.
func EncodeMeterUpdates(tick uint64, updates []MeterTransition) ([]byte, error) {
	return json.Marshal(MeterUpdatesMessage{Ver: Version, Type: TypeMeterUpdates, Tick: tick, Updates: updates})
}

// EncodeGroupList renders a group enumeration reply.
func EncodeGroupList(names []string) ([]byte, error) {
	if names == nil {
		names = []string{}
	}
	return json.Marshal(GroupListMessage{Ver: Version, Type: TypeGroupList, Groups: names})
}
