package netcomponents

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
)

type VelocityData struct {
	Linear  mgl32.Vec3
	Angular mgl32.Vec3
}

var Velocity = donburi.NewComponentType[VelocityData]()
