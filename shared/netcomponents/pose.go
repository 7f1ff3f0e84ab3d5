package netcomponents

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
)

// PoseData is the world-space position and orientation of a body's center.
type PoseData struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

var Pose = donburi.NewComponentType[PoseData](PoseData{Rotation: mgl32.QuatIdent()})

// LerpPose interpolates between two poses.
func LerpPose(from, to PoseData, t float32) PoseData {
	return PoseData{
		Position: from.Position.Add(to.Position.Sub(from.Position).Mul(t)),
		Rotation: mgl32.QuatNlerp(from.Rotation, to.Rotation, t),
	}
}
