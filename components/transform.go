package components

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
)

// TransformData is the pose a renderer draws an entity at. It is written at
// the end of every client tick and after each correction.
type TransformData struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// Matrix returns the model matrix of the transform.
func (t TransformData) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z()).
		Mul4(t.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
}

var Transform = donburi.NewComponentType[TransformData](TransformData{
	Rotation: mgl32.QuatIdent(),
	Scale:    mgl32.Vec3{1, 1, 1},
})
