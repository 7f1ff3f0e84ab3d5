package messages

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// writer and reader operate on buffers already sized from the layout table,
// so neither checks bounds.
type writer struct {
	b   []byte
	off int
}

func (w *writer) u8(v uint8) {
	w.b[w.off] = v
	w.off++
}

func (w *writer) u16(v uint16) {
	binary.LittleEndian.PutUint16(w.b[w.off:], v)
	w.off += 2
}

func (w *writer) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.b[w.off:], v)
	w.off += 4
}

func (w *writer) u64(v uint64) {
	binary.LittleEndian.PutUint64(w.b[w.off:], v)
	w.off += 8
}

func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }

func (w *writer) bool(v bool) {
	if v {
		w.u8(1)
		return
	}
	w.u8(0)
}

func (w *writer) vec2(v mgl32.Vec2) {
	w.f32(v[0])
	w.f32(v[1])
}

func (w *writer) vec3(v mgl32.Vec3) {
	w.f32(v[0])
	w.f32(v[1])
	w.f32(v[2])
}

// quat is written x, y, z, w.
func (w *writer) quat(q mgl32.Quat) {
	w.vec3(q.V)
	w.f32(q.W)
}

func (w *writer) bytes(p []byte) {
	w.off += copy(w.b[w.off:], p)
}

type reader struct {
	b   []byte
	off int
}

func (r *reader) u8() uint8 {
	v := r.b[r.off]
	r.off++
	return v
}

func (r *reader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.b[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.b[r.off:])
	r.off += 4
	return v
}

func (r *reader) u64() uint64 {
	v := binary.LittleEndian.Uint64(r.b[r.off:])
	r.off += 8
	return v
}

func (r *reader) f32() float32 { return math.Float32frombits(r.u32()) }

func (r *reader) bool() bool { return r.u8() != 0 }

func (r *reader) vec2() mgl32.Vec2 {
	return mgl32.Vec2{r.f32(), r.f32()}
}

func (r *reader) vec3() mgl32.Vec3 {
	return mgl32.Vec3{r.f32(), r.f32(), r.f32()}
}

func (r *reader) quat() mgl32.Quat {
	v := r.vec3()
	return mgl32.Quat{W: r.f32(), V: v}
}

func (r *reader) bytes(n int) []byte {
	p := r.b[r.off : r.off+n]
	r.off += n
	return p
}
