package room

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidState is returned by ParseState for messages that do not match
// the PlayerState schema.
var ErrInvalidState = errors.New("invalid player state")

var validate = validator.New(validator.WithRequiredStructEnabled())

// PlayerState is the latest reported state of one player in one room.
type PlayerState struct {
	X        int `json:"x"`
	Y        int `json:"y"`
	Rotation int `json:"rotation"`
	Health   int `json:"health"`
}

// inboundState mirrors PlayerState with pointers so that a missing field can
// be told apart from a zero value.
type inboundState struct {
	X        *int `json:"x" validate:"required"`
	Y        *int `json:"y" validate:"required"`
	Rotation *int `json:"rotation" validate:"required,min=0,max=360"`
	Health   *int `json:"health" validate:"required,min=0,max=100"`
}

// ParseState decodes and validates one inbound state message.
func ParseState(data []byte) (PlayerState, error) {
	var in inboundState
	if err := json.Unmarshal(data, &in); err != nil {
		return PlayerState{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if err := validate.Struct(in); err != nil {
		return PlayerState{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return PlayerState{X: *in.X, Y: *in.Y, Rotation: *in.Rotation, Health: *in.Health}, nil
}

const (
	TypeState    = "state"
	TypeMovement = "movement"
	TypeSystem   = "system"
)

// Message is the envelope for every outbound frame.
type Message struct {
	Type    string       `json:"type"`
	Player  string       `json:"player,omitempty"`
	State   *PlayerState `json:"state,omitempty"`
	Data    *PlayerState `json:"data,omitempty"`
	Content string       `json:"content,omitempty"`
}

// StateMessage replays a cached state to a joining connection.
func StateMessage(player string, s PlayerState) Message {
	return Message{Type: TypeState, Player: player, State: &s}
}

// MovementMessage relays a live state update.
func MovementMessage(player string, s PlayerState) Message {
	return Message{Type: TypeMovement, Player: player, Data: &s}
}

func SystemMessage(content string) Message {
	return Message{Type: TypeSystem, Content: content}
}

func JoinedMessage(player, key string) Message {
	return SystemMessage(fmt.Sprintf("%s joined %s", player, key))
}

func LeftMessage(player string) Message {
	return SystemMessage(fmt.Sprintf("%s left the match", player))
}
