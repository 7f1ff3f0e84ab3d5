// Package messages defines the wire messages exchanged between client and
// server. Every message is a fixed-size record preceded by a one byte type tag.
// Message is a closed set: only the types declared in this package implement it.
package messages

import (
	"errors"
	"fmt"
)

// InputIndex identifies one client input and the state predicted from it.
// It increases by one every client tick and is never reused within a session.
type InputIndex uint32

// Type is the leading tag byte of an encoded message.
type Type uint8

const (
	TypeInvalid Type = iota
	TypePlayerInput
	TypePlayerPosition
	TypeRigidbodySync
	TypeOtherPlayerJoin
	TypeOtherPlayerLeave
	TypeSetScene
	TypePlayerJoinRequest
	TypePlayerJoinAcceptance
	TypePlayerJoinRejection
)

// SceneNameSize is the fixed width of the scene name field.
const SceneNameSize = 64

var (
	// ErrMalformedMessage is matched by every MalformedError.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrUnknownMessage is returned for tags outside the message table.
	ErrUnknownMessage = errors.New("unknown message type")
	// ErrSceneNameTooLong is returned when a scene name does not fit its field.
	ErrSceneNameTooLong = errors.New("scene name too long")
)

// MalformedError reports a buffer shorter than the fixed size of its tag.
type MalformedError struct {
	Type Type
	Got  int
	Want int
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s: got %d bytes, want %d", e.Type, e.Got, e.Want)
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformedMessage
}

// Message is one decoded wire message.
type Message interface {
	Type() Type
	put(w *writer) error
}

type layout struct {
	name   string
	size   int // payload bytes, tag excluded
	decode func(r *reader) Message
}

var layouts = [...]layout{
	TypePlayerInput:          {"PlayerInput", 14, decodePlayerInput},
	TypePlayerPosition:       {"PlayerPosition", 57, decodePlayerPosition},
	TypeRigidbodySync:        {"RigidbodySync", 56, decodeRigidbodySync},
	TypeOtherPlayerJoin:      {"OtherPlayerJoin", 1, decodeOtherPlayerJoin},
	TypeOtherPlayerLeave:     {"OtherPlayerLeave", 1, decodeOtherPlayerLeave},
	TypeSetScene:             {"SetScene", SceneNameSize, decodeSetScene},
	TypePlayerJoinRequest:    {"PlayerJoinRequest", 18, decodePlayerJoinRequest},
	TypePlayerJoinAcceptance: {"PlayerJoinAcceptance", 1, decodePlayerJoinAcceptance},
	TypePlayerJoinRejection:  {"PlayerJoinRejection", 1, decodePlayerJoinRejection},
}

func (t Type) valid() bool {
	return t > TypeInvalid && int(t) < len(layouts)
}

func (t Type) String() string {
	if !t.valid() {
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
	return layouts[t].name
}

// Size returns the encoded size of a message of type t including the tag byte,
// or 0 if t is not a known type.
func (t Type) Size() int {
	if !t.valid() {
		return 0
	}
	return layouts[t].size + 1
}

// Types lists every known message type in tag order.
func Types() []Type {
	out := make([]Type, 0, len(layouts)-1)
	for t := TypePlayerInput; t.valid(); t++ {
		out = append(out, t)
	}
	return out
}

// Encode writes m as its tag byte followed by its fixed-size payload.
func Encode(m Message) ([]byte, error) {
	t := m.Type()
	w := &writer{b: make([]byte, t.Size())}
	w.u8(uint8(t))
	if err := m.put(w); err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}
	return w.b, nil
}

// Decode parses one message from b. Bytes past the fixed size of the tag are ignored.
func Decode(b []byte) (Message, error) {
	if len(b) == 0 {
		return nil, &MalformedError{Type: TypeInvalid, Got: 0, Want: 1}
	}
	t := Type(b[0])
	if !t.valid() {
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownMessage, b[0])
	}
	if want := t.Size(); len(b) < want {
		return nil, &MalformedError{Type: t, Got: len(b), Want: want}
	}
	return layouts[t].decode(&reader{b: b, off: 1}), nil
}
