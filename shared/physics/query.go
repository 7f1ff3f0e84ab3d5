package physics

import (
	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"

	"github.com/automoto/physnet/shared/netcomponents"
)

// BoxAt returns the bounding box of half extents h centered on pos.
func BoxAt(pos, h mgl32.Vec3) cube.BBox {
	return cube.Box(
		pos.X()-h.X(), pos.Y()-h.Y(), pos.Z()-h.Z(),
		pos.X()+h.X(), pos.Y()+h.Y(), pos.Z()+h.Z(),
	)
}

// BBox returns the current bounding box of e.
func (w *World) BBox(e donburi.Entity) cube.BBox {
	entry := w.ecs.Entry(e)
	return BoxAt(netcomponents.Pose.Get(entry).Position, Body.Get(entry).HalfExtents)
}

// QueryBox returns every body intersecting box.
func (w *World) QueryBox(box cube.BBox) []donburi.Entity {
	var out []donburi.Entity
	bodyQuery.Each(w.ecs, func(entry *donburi.Entry) {
		bb := BoxAt(netcomponents.Pose.Get(entry).Position, Body.Get(entry).HalfExtents)
		if bb.IntersectsWith(box) {
			out = append(out, entry.Entity())
		}
	})
	return out
}

// Overlapping returns the bodies intersecting e, excluding e and bodies
// jointed to it.
func (w *World) Overlapping(e donburi.Entity) []donburi.Entity {
	linked := map[donburi.Entity]bool{e: true}
	for _, j := range w.Joints(e) {
		jd := Joint.Get(w.ecs.Entry(j))
		linked[jd.A], linked[jd.B] = true, true
	}
	var out []donburi.Entity
	for _, o := range w.QueryBox(w.BBox(e)) {
		if !linked[o] {
			out = append(out, o)
		}
	}
	return out
}

// ClearAt reports whether a box of half extents h centered on pos touches no body.
func (w *World) ClearAt(pos, h mgl32.Vec3) bool {
	return len(w.QueryBox(BoxAt(pos, h))) == 0
}

// push lets controlled bodies shove the dynamic bodies they overlap, waking
// sleepers. Static bodies are never moved.
func (w *World) push() {
	controllerQuery.Each(w.ecs, func(entry *donburi.Entry) {
		pusher := Body.Get(entry)
		pv := netcomponents.Velocity.Get(entry).Linear
		for _, o := range w.Overlapping(entry.Entity()) {
			oe := w.ecs.Entry(o)
			ob := Body.Get(oe)
			if !ob.Dynamic || ob.Driven || oe.HasComponent(Controller) {
				continue
			}
			w.wake(ob)
			ov := netcomponents.Velocity.Get(oe)
			share := float32(0.5)
			if total := pusher.Mass + ob.Mass; total > 0 {
				share = pusher.Mass / total
			}
			ov.Linear[0] += (pv.X() - ov.Linear.X()) * share
			ov.Linear[2] += (pv.Z() - ov.Linear.Z()) * share
		}
	})
}
