// Package physics is a small rigid body simulation used as the authoritative
// simulation on the server and as the prediction model on the client. Bodies
// are axis-aligned boxes standing on a ground plane at y = 0; walls block
// motion in the XZ plane.
package physics

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/solarlune/resolv"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"

	"github.com/automoto/physnet/shared/netcomponents"
)

var (
	bodyQuery       = donburi.NewQuery(filter.Contains(Body, netcomponents.Pose, netcomponents.Velocity))
	jointQuery      = donburi.NewQuery(filter.Contains(Joint))
	controllerQuery = donburi.NewQuery(filter.Contains(Body, Controller, netcomponents.Pose, netcomponents.Velocity))
)

// The XZ collision space works in centimeters. resolv treats an object as
// covering the cells up to X+W-1, which is only negligible at that scale.
const (
	unitsPerMeter = 100
	cellSize      = 50
)

func toUnits(m float32) float64 { return float64(m) * unitsPerMeter }

func fromUnits(u float64) float32 { return float32(u / unitsPerMeter) }

// World owns the bodies of one scene.
type World struct {
	ecs    donburi.World
	params Params
	space  *resolv.Space
}

// NewWorld creates a world whose collision space covers width by depth meters.
func NewWorld(ecs donburi.World, width, depth int, params Params) *World {
	if width < 1 {
		width = 1
	}
	if depth < 1 {
		depth = 1
	}
	return &World{
		ecs:    ecs,
		params: params,
		space:  resolv.NewSpace(width*unitsPerMeter, depth*unitsPerMeter, cellSize, cellSize),
	}
}

func (w *World) ECS() donburi.World { return w.ecs }

func (w *World) Params() Params { return w.params }

// CreateBody adds a box body and returns its entity.
func (w *World) CreateBody(desc BodyDesc) donburi.Entity {
	comps := append([]donburi.IComponentType{Body, netcomponents.Pose, netcomponents.Velocity}, desc.Components...)
	e := w.ecs.Create(comps...)
	entry := w.ecs.Entry(e)

	rot := desc.Rotation
	if rot == (mgl32.Quat{}) {
		rot = mgl32.QuatIdent()
	}
	netcomponents.Pose.SetValue(entry, netcomponents.PoseData{Position: desc.Position, Rotation: rot})

	tag := ResolvWall
	if desc.Dynamic {
		tag = ResolvBody
	}
	h := desc.HalfExtents
	obj := resolv.NewObject(
		toUnits(desc.Position.X()-h.X()), toUnits(desc.Position.Z()-h.Z()),
		toUnits(2*h.X()), toUnits(2*h.Z()), tag)
	obj.SetShape(resolv.NewRectangle(0, 0, obj.W, obj.H))
	w.space.Add(obj)

	Body.SetValue(entry, BodyData{
		HalfExtents: h,
		Mass:        desc.Mass,
		Dynamic:     desc.Dynamic,
		Collider:    obj,
	})
	return e
}

// Destroy removes e together with every joint attached to it.
func (w *World) Destroy(e donburi.Entity) {
	if !w.ecs.Valid(e) {
		return
	}
	for _, j := range w.Joints(e) {
		w.Detach(j)
	}
	entry := w.ecs.Entry(e)
	if entry.HasComponent(Body) {
		if obj := Body.Get(entry).Collider; obj != nil {
			w.space.Remove(obj)
		}
	}
	w.ecs.Remove(e)
}

// Valid reports whether e still exists.
func (w *World) Valid(e donburi.Entity) bool { return w.ecs.Valid(e) }

func (w *World) Pose(e donburi.Entity) netcomponents.PoseData {
	return *netcomponents.Pose.Get(w.ecs.Entry(e))
}

// SetPose teleports e.
func (w *World) SetPose(e donburi.Entity, pos mgl32.Vec3, rot mgl32.Quat) {
	entry := w.ecs.Entry(e)
	netcomponents.Pose.SetValue(entry, netcomponents.PoseData{Position: pos, Rotation: rot})
	w.syncCollider(entry)
}

func (w *World) Velocity(e donburi.Entity) netcomponents.VelocityData {
	return *netcomponents.Velocity.Get(w.ecs.Entry(e))
}

// SetVelocity overwrites the velocities of e and wakes it.
func (w *World) SetVelocity(e donburi.Entity, linear, angular mgl32.Vec3) {
	entry := w.ecs.Entry(e)
	netcomponents.Velocity.SetValue(entry, netcomponents.VelocityData{Linear: linear, Angular: angular})
	w.wake(Body.Get(entry))
}

func (w *World) IsSleeping(e donburi.Entity) bool {
	return Body.Get(w.ecs.Entry(e)).Sleeping
}

// Wake makes e simulate again.
func (w *World) Wake(e donburi.Entity) {
	w.wake(Body.Get(w.ecs.Entry(e)))
}

func (w *World) wake(b *BodyData) {
	b.Sleeping = false
	b.quietTicks = 0
}

// SetIntent stores the controller intent of e. A jump request stays latched
// until a step consumes it.
func (w *World) SetIntent(e donburi.Entity, intent ControllerData) {
	entry := w.ecs.Entry(e)
	if !entry.HasComponent(Controller) {
		entry.AddComponent(Controller)
	}
	c := Controller.Get(entry)
	c.Move = intent.Move
	c.Sprint = intent.Sprint
	c.Jump = c.Jump || intent.Jump
	w.wake(Body.Get(entry))
}

// Intent returns the current controller intent of e.
func (w *World) Intent(e donburi.Entity) ControllerData {
	entry := w.ecs.Entry(e)
	if !entry.HasComponent(Controller) {
		return ControllerData{}
	}
	return *Controller.Get(entry)
}

func (w *World) syncCollider(entry *donburi.Entry) {
	b := Body.Get(entry)
	if b.Collider == nil {
		return
	}
	pos := netcomponents.Pose.Get(entry).Position
	b.Collider.X = toUnits(pos.X() - b.HalfExtents.X())
	b.Collider.Y = toUnits(pos.Z() - b.HalfExtents.Z())
	b.Collider.Update()
}

// Bodies returns every body entity.
func (w *World) Bodies() []donburi.Entity {
	var out []donburi.Entity
	bodyQuery.Each(w.ecs, func(entry *donburi.Entry) {
		out = append(out, entry.Entity())
	})
	return out
}
