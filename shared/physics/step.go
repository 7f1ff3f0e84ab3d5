package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/solarlune/resolv"
	"github.com/yohamta/donburi"

	"github.com/automoto/physnet/shared/netcomponents"
)

var up = mgl32.Vec3{0, 1, 0}

// Step advances every awake dynamic body by dt seconds.
//
// Position is integrated from the velocity at the start of the step and the
// velocity is updated afterwards, so a body that meets no wall moves exactly
// position += velocity*dt per step.
func (w *World) Step(dt float32) {
	bodyQuery.Each(w.ecs, func(entry *donburi.Entry) {
		b := Body.Get(entry)
		if !b.Dynamic || b.Sleeping || b.Driven {
			return
		}
		w.integrate(entry, b, dt)
	})
	w.enforceJoints()
	w.push()
}

func (w *World) integrate(entry *donburi.Entry, b *BodyData, dt float32) {
	p := w.params
	pose := netcomponents.Pose.Get(entry)
	vel := netcomponents.Velocity.Get(entry)

	// Position.
	w.moveXZ(b, pose, vel, vel.Linear.X()*dt, vel.Linear.Z()*dt)
	pose.Position[1] += vel.Linear.Y() * dt

	// Orientation.
	if vel.Angular.Len() > 0 {
		spin := mgl32.Quat{V: vel.Angular}.Mul(pose.Rotation).Scale(0.5 * dt)
		pose.Rotation = pose.Rotation.Add(spin).Normalize()
	}

	// Velocity.
	var ctrl *ControllerData
	if entry.HasComponent(Controller) {
		ctrl = Controller.Get(entry)
	}
	accel := mgl32.Vec3{0, -p.Gravity, 0}
	maxSpeed := p.MaxSpeed
	if ctrl != nil {
		move := ctrl.Move
		if l := move.Len(); l > 1 {
			move = move.Mul(1 / l)
		}
		a := p.MoveAcceleration
		if ctrl.Sprint {
			a *= p.SprintMultiplier
			maxSpeed *= p.SprintMultiplier
		}
		accel = accel.Add(mgl32.Vec3{move.X() * a, 0, move.Y() * a})
	}
	vel.Linear = vel.Linear.Add(accel.Mul(dt))

	// Ground contact.
	if pose.Position.Y()-b.HalfExtents.Y() <= 0 {
		pose.Position[1] = b.HalfExtents.Y()
		if vel.Linear.Y() < 0 {
			vel.Linear[1] = 0
		}
		b.OnGround = true
		damp := math32.Max(0, 1-p.GroundFriction*dt)
		vel.Linear[0] *= damp
		vel.Linear[2] *= damp
	} else {
		b.OnGround = false
	}

	if ctrl != nil {
		if ctrl.Jump && b.OnGround {
			vel.Linear[1] = p.JumpSpeed
			b.OnGround = false
		}
		ctrl.Jump = false
		vel.Linear = clampHorizontal(vel.Linear, maxSpeed)
		// Controlled bodies roll without slipping.
		if r := b.HalfExtents.Y(); r > 0 {
			vel.Angular = up.Cross(mgl32.Vec3{vel.Linear.X(), 0, vel.Linear.Z()}).Mul(1 / r)
		}
	} else {
		vel.Angular = vel.Angular.Mul(math32.Max(0, 1-p.AngularDamping*dt))
	}

	w.settle(b, vel, ctrl)
}

// moveXZ moves the body footprint through the collision space, stopping at
// walls. resolv narrows the candidates by cell and reports the contact
// distance; overlap against the candidate boxes is checked exactly.
func (w *World) moveXZ(b *BodyData, pose *netcomponents.PoseData, vel *netcomponents.VelocityData, dx, dz float32) {
	obj := b.Collider
	if obj == nil {
		pose.Position[0] += dx
		pose.Position[2] += dz
		return
	}
	if dx != 0 {
		if check := obj.Check(toUnits(dx), 0, ResolvWall); check != nil {
			if wall := blocking(obj, check.ObjectsByTags(ResolvWall), toUnits(dx), 0); wall != nil {
				dx = fromUnits(check.ContactWithObject(wall).X())
				vel.Linear[0] = 0
			}
		}
		pose.Position[0] += dx
	}
	if dz != 0 {
		if check := obj.Check(0, toUnits(dz), ResolvWall); check != nil {
			if wall := blocking(obj, check.ObjectsByTags(ResolvWall), 0, toUnits(dz)); wall != nil {
				dz = fromUnits(check.ContactWithObject(wall).Y())
				vel.Linear[2] = 0
			}
		}
		pose.Position[2] += dz
	}
	obj.X = toUnits(pose.Position.X() - b.HalfExtents.X())
	obj.Y = toUnits(pose.Position.Z() - b.HalfExtents.Z())
	obj.Update()
}

// blocking returns the first wall obj would overlap after moving by dx, dy.
func blocking(obj *resolv.Object, walls []*resolv.Object, dx, dy float64) *resolv.Object {
	x0, y0 := obj.X+dx, obj.Y+dy
	x1, y1 := x0+obj.W, y0+obj.H
	for _, wall := range walls {
		if x0 < wall.X+wall.W && x1 > wall.X && y0 < wall.Y+wall.H && y1 > wall.Y {
			return wall
		}
	}
	return nil
}

// settle puts bodies to sleep after SleepTicks quiet steps on the ground.
// Controlled bodies never sleep.
func (w *World) settle(b *BodyData, vel *netcomponents.VelocityData, ctrl *ControllerData) {
	if ctrl != nil || !b.OnGround ||
		vel.Linear.Len() > w.params.SleepSpeed || vel.Angular.Len() > w.params.SleepSpeed {
		b.quietTicks = 0
		return
	}
	b.quietTicks++
	if b.quietTicks >= w.params.SleepTicks {
		b.Sleeping = true
		vel.Linear = mgl32.Vec3{}
		vel.Angular = mgl32.Vec3{}
	}
}

func clampHorizontal(v mgl32.Vec3, max float32) mgl32.Vec3 {
	h := math32.Hypot(v.X(), v.Z())
	if h <= max || h == 0 {
		return v
	}
	s := max / h
	return mgl32.Vec3{v.X() * s, v.Y(), v.Z() * s}
}
