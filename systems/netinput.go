package systems

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/automoto/physnet/shared/messages"
	"github.com/automoto/physnet/shared/physics"
)

// InputSource supplies the local player's intent once per tick. Keyboard,
// gamepad and VR adapters live outside this module; Bot is the built-in one.
type InputSource interface {
	Sample() physics.ControllerData
}

// InputFunc adapts a function to InputSource.
type InputFunc func() physics.ControllerData

func (f InputFunc) Sample() physics.ControllerData { return f() }

// NetInput numbers the local player's inputs. Indices start at 1 so that a
// zero acknowledgement means nothing has been applied yet.
type NetInput struct {
	source InputSource
	next   messages.InputIndex
}

func NewNetInput(source InputSource) *NetInput {
	return &NetInput{source: source, next: 1}
}

// Next samples the source and returns the input for this tick.
func (n *NetInput) Next() messages.PlayerInput {
	intent := n.source.Sample()
	move := intent.Move
	if l := move.Len(); l > 1 {
		move = move.Mul(1 / l)
	}
	in := messages.PlayerInput{
		XZMoveInput: mgl32.Vec2{move.X(), move.Y()},
		Sprint:      intent.Sprint,
		Jump:        intent.Jump,
		InputIndex:  n.next,
	}
	n.next++
	return in
}

// NextIndex is the index the next input will carry.
func (n *NetInput) NextIndex() messages.InputIndex { return n.next }

// Intent converts a wire input to the controller intent it drives.
func Intent(in messages.PlayerInput) physics.ControllerData {
	return physics.ControllerData{
		Move:   in.XZMoveInput,
		Sprint: in.Sprint,
		Jump:   in.Jump,
	}
}
