package systems

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"

	"github.com/automoto/physnet/components"
	"github.com/automoto/physnet/shared/netcomponents"
	"github.com/automoto/physnet/shared/physics"
)

var transformQuery = donburi.NewQuery(filter.Contains(components.Transform, netcomponents.Pose, physics.Body))

// SyncTransforms copies every body's pose into its render transform. The
// scale is the body's full extents.
func SyncTransforms(w donburi.World) {
	transformQuery.Each(w, func(entry *donburi.Entry) {
		SyncTransform(entry)
	})
}

// SyncTransform updates the render transform of one entity.
func SyncTransform(entry *donburi.Entry) {
	if !entry.HasComponent(components.Transform) {
		return
	}
	pose := netcomponents.Pose.Get(entry)
	t := components.Transform.Get(entry)
	t.Position = pose.Position
	t.Rotation = pose.Rotation
	if entry.HasComponent(physics.Body) {
		t.Scale = physics.Body.Get(entry).HalfExtents.Mul(2)
	} else {
		t.Scale = mgl32.Vec3{1, 1, 1}
	}
}
