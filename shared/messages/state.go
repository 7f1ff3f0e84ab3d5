package messages

import "github.com/go-gl/mathgl/mgl32"

// PlayerPosition is the authoritative state of one player's controlled body.
// InputIndex is the last input the server applied for that player.
type PlayerPosition struct {
	ID         uint8
	Pos        mgl32.Vec3
	Rot        mgl32.Quat
	LinVel     mgl32.Vec3
	AngVel     mgl32.Vec3
	InputIndex InputIndex
}

func (PlayerPosition) Type() Type { return TypePlayerPosition }

func (m PlayerPosition) put(w *writer) error {
	w.u8(m.ID)
	w.vec3(m.Pos)
	w.quat(m.Rot)
	w.vec3(m.LinVel)
	w.vec3(m.AngVel)
	w.u32(uint32(m.InputIndex))
	return nil
}

func decodePlayerPosition(r *reader) Message {
	return PlayerPosition{
		ID:         r.u8(),
		Pos:        r.vec3(),
		Rot:        r.quat(),
		LinVel:     r.vec3(),
		AngVel:     r.vec3(),
		InputIndex: InputIndex(r.u32()),
	}
}

// RigidbodySync is the authoritative state of one networked world body.
// EntID is the body's network id, assigned in scene load order.
type RigidbodySync struct {
	EntID  uint32
	Pos    mgl32.Vec3
	Rot    mgl32.Quat
	LinVel mgl32.Vec3
	AngVel mgl32.Vec3
}

func (RigidbodySync) Type() Type { return TypeRigidbodySync }

func (m RigidbodySync) put(w *writer) error {
	w.u32(m.EntID)
	w.vec3(m.Pos)
	w.quat(m.Rot)
	w.vec3(m.LinVel)
	w.vec3(m.AngVel)
	return nil
}

func decodeRigidbodySync(r *reader) Message {
	return RigidbodySync{
		EntID:  r.u32(),
		Pos:    r.vec3(),
		Rot:    r.quat(),
		LinVel: r.vec3(),
		AngVel: r.vec3(),
	}
}
