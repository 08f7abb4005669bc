package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrUnknownType is returned for a missing or unrecognized "type".
	ErrUnknownType = errors.New("protocol: unknown message type")

	// ErrMissingField is returned when a required field is absent or null.
	ErrMissingField = errors.New("protocol: missing required field")
)

// Inbound is implemented by every message a client may send.
type Inbound interface {
	MessageType() MessageType
}

// PlayerUpdate is position telemetry from a racer.
type PlayerUpdate struct {
	X        float64
	Y        float64
	Rotation float64
}

func (PlayerUpdate) MessageType() MessageType { return TypePlayerUpdate }

// SetRounds asks to change the lap count. Numeric is false when the client
// sent something that is not an integer; the coordinator drops those.
type SetRounds struct {
	Rounds  int
	Numeric bool
}

func (SetRounds) MessageType() MessageType { return TypeSetRounds }

type RequestStartGame struct{}

func (RequestStartGame) MessageType() MessageType { return TypeRequestStartGame }

type RaceFinished struct{}

func (RaceFinished) MessageType() MessageType { return TypeRaceFinished }

type RequestReturnToLobby struct{}

func (RequestReturnToLobby) MessageType() MessageType { return TypeRequestReturnToLobby }

// clientMessage is the union of every inbound field.
type clientMessage struct {
	Type     MessageType     `json:"type"`
	X        *float64        `json:"x"`
	Y        *float64        `json:"y"`
	Rotation *float64        `json:"rotation"`
	Rounds   json.RawMessage `json:"rounds"`
}

// Decode parses one inbound frame. Any error means the frame must be dropped.
func Decode(data []byte) (Inbound, error) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("protocol: malformed payload: %w", err)
	}

	switch msg.Type {
	case TypePlayerUpdate:
		if msg.X == nil || msg.Y == nil || msg.Rotation == nil {
			return nil, fmt.Errorf("%w: playerUpdate needs x, y and rotation", ErrMissingField)
		}
		return PlayerUpdate{X: *msg.X, Y: *msg.Y, Rotation: *msg.Rotation}, nil
	case TypeSetRounds:
		raw := bytes.TrimSpace(msg.Rounds)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			return nil, fmt.Errorf("%w: setRounds needs rounds", ErrMissingField)
		}
		rounds, ok := parseRounds(raw)
		return SetRounds{Rounds: rounds, Numeric: ok}, nil
	case TypeRequestStartGame:
		return RequestStartGame{}, nil
	case TypeRaceFinished:
		return RaceFinished{}, nil
	case TypeRequestReturnToLobby:
		return RequestReturnToLobby{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
}

// parseRounds accepts a JSON integer or a string holding one. Fractional
// values are not integers.
func parseRounds(raw json.RawMessage) (int, bool) {
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		if num != math.Trunc(num) || math.IsInf(num, 0) || math.Abs(num) > math.MaxInt32 {
			return 0, false
		}
		return int(num), true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Encode marshals an outbound message.
func Encode(msg Outbound) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("protocol: cannot encode %s: %w", msg.MessageType(), err)
	}
	return data, nil
}
