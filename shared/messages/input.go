package messages

import "github.com/go-gl/mathgl/mgl32"

// PlayerInput is sent from client to server every tick with the local player's
// intent. The server echoes InputIndex back in PlayerPosition once applied.
type PlayerInput struct {
	XZMoveInput mgl32.Vec2
	Sprint      bool
	Jump        bool
	InputIndex  InputIndex
}

func (PlayerInput) Type() Type { return TypePlayerInput }

func (m PlayerInput) put(w *writer) error {
	w.vec2(m.XZMoveInput)
	w.bool(m.Sprint)
	w.bool(m.Jump)
	w.u32(uint32(m.InputIndex))
	return nil
}

func decodePlayerInput(r *reader) Message {
	return PlayerInput{
		XZMoveInput: r.vec2(),
		Sprint:      r.bool(),
		Jump:        r.bool(),
		InputIndex:  InputIndex(r.u32()),
	}
}
