package systems

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"

	"github.com/automoto/physnet/components"
	"github.com/automoto/physnet/shared/physics"
)

func TestSyncTransforms(t *testing.T) {
	w := physics.NewWorld(donburi.NewWorld(), 10, 10, physics.DefaultParams())
	drawn := w.CreateBody(physics.BodyDesc{
		Position:    mgl32.Vec3{1, 2, 3},
		HalfExtents: mgl32.Vec3{0.5, 1, 0.5},
		Components:  []donburi.IComponentType{components.Transform},
	})
	w.CreateBody(physics.BodyDesc{HalfExtents: mgl32.Vec3{1, 1, 1}})

	rot := mgl32.QuatRotate(1, mgl32.Vec3{0, 1, 0})
	w.SetPose(drawn, mgl32.Vec3{4, 2, 3}, rot)
	SyncTransforms(w.ECS())

	tr := components.Transform.Get(w.ECS().Entry(drawn))
	if tr.Position != (mgl32.Vec3{4, 2, 3}) || !tr.Rotation.ApproxEqual(rot) {
		t.Errorf("transform = %+v", tr)
	}
	if tr.Scale != (mgl32.Vec3{1, 2, 1}) {
		t.Errorf("scale = %v, want body extents", tr.Scale)
	}
}
