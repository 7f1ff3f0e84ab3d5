package netcomponents

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestLerpPoseEndpoints(t *testing.T) {
	a := PoseData{Position: mgl32.Vec3{0, 0, 0}, Rotation: mgl32.QuatIdent()}
	b := PoseData{Position: mgl32.Vec3{2, 4, -6}, Rotation: mgl32.QuatRotate(1, mgl32.Vec3{0, 1, 0})}

	if got := LerpPose(a, b, 0); !got.Position.ApproxEqual(a.Position) || !got.Rotation.ApproxEqual(a.Rotation) {
		t.Fatalf("t=0 gave %+v", got)
	}
	if got := LerpPose(a, b, 1); !got.Position.ApproxEqual(b.Position) || !got.Rotation.ApproxEqual(b.Rotation) {
		t.Fatalf("t=1 gave %+v", got)
	}
	if got := LerpPose(a, b, 0.5); !got.Position.ApproxEqual(mgl32.Vec3{1, 2, -3}) {
		t.Fatalf("t=0.5 position %v", got.Position)
	}
}
