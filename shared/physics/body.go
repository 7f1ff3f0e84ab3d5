package physics

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/solarlune/resolv"
	"github.com/yohamta/donburi"
)

// Resolv tags for the XZ collision space.
const (
	ResolvWall = "wall"
	ResolvBody = "body"
)

// BodyData is an axis-aligned box body.
type BodyData struct {
	HalfExtents mgl32.Vec3
	Mass        float32
	Dynamic     bool
	Sleeping    bool
	OnGround    bool
	// Driven bodies follow a joint instead of integrating.
	Driven     bool
	quietTicks int
	// Collider is the body's footprint in the XZ collision space.
	Collider *resolv.Object
}

var Body = donburi.NewComponentType[BodyData]()

// ControllerData is the movement intent of a player controlled body.
type ControllerData struct {
	Move   mgl32.Vec2 // x and z, each in [-1, 1]
	Sprint bool
	// Jump is latched until one Step consumes it.
	Jump bool
}

var Controller = donburi.NewComponentType[ControllerData]()

// JointData rigidly attaches B to A at Offset from A's position.
type JointData struct {
	A, B   donburi.Entity
	Offset mgl32.Vec3
}

var Joint = donburi.NewComponentType[JointData]()

// BodyDesc describes a body to create.
type BodyDesc struct {
	Position    mgl32.Vec3
	Rotation    mgl32.Quat
	HalfExtents mgl32.Vec3
	Mass        float32
	Dynamic     bool
	// Components are added to the entity alongside the body components.
	Components []donburi.IComponentType
}
