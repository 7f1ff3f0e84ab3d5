package physics

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"

	"github.com/automoto/physnet/shared/netcomponents"
)

// Attach joins b to a at offset. b stops integrating on its own and follows a.
func (w *World) Attach(a, b donburi.Entity, offset mgl32.Vec3) donburi.Entity {
	j := w.ecs.Create(Joint)
	Joint.SetValue(w.ecs.Entry(j), JointData{A: a, B: b, Offset: offset})
	Body.Get(w.ecs.Entry(b)).Driven = true
	w.enforce(JointData{A: a, B: b, Offset: offset})
	return j
}

// Detach releases joint j. The driven body simulates freely again.
func (w *World) Detach(j donburi.Entity) {
	if !w.ecs.Valid(j) {
		return
	}
	jd := Joint.Get(w.ecs.Entry(j))
	if w.ecs.Valid(jd.B) {
		b := Body.Get(w.ecs.Entry(jd.B))
		b.Driven = false
		w.wake(b)
	}
	w.ecs.Remove(j)
}

// Joints returns every joint attached to e.
func (w *World) Joints(e donburi.Entity) []donburi.Entity {
	var out []donburi.Entity
	jointQuery.Each(w.ecs, func(entry *donburi.Entry) {
		jd := Joint.Get(entry)
		if jd.A == e || jd.B == e {
			out = append(out, entry.Entity())
		}
	})
	return out
}

func (w *World) enforceJoints() {
	jointQuery.Each(w.ecs, func(entry *donburi.Entry) {
		w.enforce(*Joint.Get(entry))
	})
}

func (w *World) enforce(jd JointData) {
	if !w.ecs.Valid(jd.A) || !w.ecs.Valid(jd.B) {
		return
	}
	a, b := w.ecs.Entry(jd.A), w.ecs.Entry(jd.B)
	pa := netcomponents.Pose.Get(a)
	netcomponents.Pose.SetValue(b, netcomponents.PoseData{
		Position: pa.Position.Add(jd.Offset),
		Rotation: pa.Rotation,
	})
	netcomponents.Velocity.SetValue(b, netcomponents.VelocityData{
		Linear: netcomponents.Velocity.Get(a).Linear,
	})
	w.syncCollider(b)
}
