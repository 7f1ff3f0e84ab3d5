// Package archetypes builds the entities of a scene on top of a physics world.
// Client and server build scenes with the same code so networked body ids match.
package archetypes

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"

	"github.com/automoto/physnet/shared/leveldata"
	"github.com/automoto/physnet/shared/netcomponents"
	"github.com/automoto/physnet/shared/physics"
	"github.com/automoto/physnet/tags"
)

// Player rig dimensions.
var (
	LocosphereHalfExtents = mgl32.Vec3{0.4, 0.4, 0.4}
	FenderHalfExtents     = mgl32.Vec3{0.3, 0.5, 0.3}
	FenderOffset          = mgl32.Vec3{0, 0.9, 0}
)

const (
	locosphereMass = 70
	fenderMass     = 10
)

var (
	Wall = newArchetype(
		tags.Wall,
	)
	Prop = newArchetype(
		tags.Prop,
		netcomponents.NetworkID,
	)
	Locosphere = newArchetype(
		tags.Player,
		tags.Locosphere,
		netcomponents.PlayerState,
		physics.Controller,
	)
	Fender = newArchetype(
		tags.Player,
		tags.Fender,
		netcomponents.PlayerState,
	)
)

type archetype struct {
	components []donburi.IComponentType
}

func newArchetype(cs ...donburi.IComponentType) *archetype {
	return &archetype{
		components: cs,
	}
}

// Spawn creates a body carrying the archetype's components plus cs.
func (a *archetype) Spawn(w *physics.World, desc physics.BodyDesc, cs ...donburi.IComponentType) donburi.Entity {
	comps := make([]donburi.IComponentType, 0, len(a.components)+len(cs))
	comps = append(comps, a.components...)
	desc.Components = append(comps, cs...)
	return w.CreateBody(desc)
}

// Rig is a player's locosphere and the fender jointed on top of it.
type Rig struct {
	Locosphere donburi.Entity
	Fender     donburi.Entity
	Joint      donburi.Entity
}

// NewPlayerRig spawns the rig of the player in slot with its locosphere
// resting on the ground at (x, z).
func NewPlayerRig(w *physics.World, slot uint8, x, z float32, cs ...donburi.IComponentType) Rig {
	pos := mgl32.Vec3{x, LocosphereHalfExtents.Y(), z}
	loco := Locosphere.Spawn(w, physics.BodyDesc{
		Position:    pos,
		HalfExtents: LocosphereHalfExtents,
		Mass:        locosphereMass,
		Dynamic:     true,
	}, cs...)
	fender := Fender.Spawn(w, physics.BodyDesc{
		Position:    pos.Add(FenderOffset),
		HalfExtents: FenderHalfExtents,
		Mass:        fenderMass,
		Dynamic:     true,
	}, cs...)

	ecs := w.ECS()
	for _, e := range []donburi.Entity{loco, fender} {
		netcomponents.PlayerState.SetValue(ecs.Entry(e), netcomponents.PlayerStateData{Slot: slot})
	}
	joint := w.Attach(loco, fender, FenderOffset)
	return Rig{Locosphere: loco, Fender: fender, Joint: joint}
}

// Destroy removes both bodies of the rig and the joint between them.
func (r Rig) Destroy(w *physics.World) {
	w.Destroy(r.Fender)
	w.Destroy(r.Locosphere)
	w.Detach(r.Joint)
}

// Entities returns the rig's bodies.
func (r Rig) Entities() []donburi.Entity {
	return []donburi.Entity{r.Locosphere, r.Fender}
}

// BuildScene adds the scene's walls and props to w. Props are tagged
// NetworkedBody and numbered in scene order; the returned slice is indexed by
// network id.
func BuildScene(w *physics.World, scene *leveldata.Scene, cs ...donburi.IComponentType) []donburi.Entity {
	height := w.Params().WallHeight
	for _, wall := range scene.Walls {
		c := wall.Center()
		Wall.Spawn(w, physics.BodyDesc{
			Position:    mgl32.Vec3{c.X(), height / 2, c.Y()},
			HalfExtents: wall.HalfExtents(height),
		})
	}

	bodies := make([]donburi.Entity, 0, len(scene.Props))
	for i, p := range scene.Props {
		comps := append([]donburi.IComponentType{tags.NetworkedBody}, cs...)
		e := Prop.Spawn(w, physics.BodyDesc{
			Position:    p.Position,
			HalfExtents: p.HalfExtents,
			Mass:        p.Mass,
			Dynamic:     true,
		}, comps...)
		netcomponents.NetworkID.SetValue(w.ECS().Entry(e), netcomponents.NetworkIDData{ID: uint32(i)})
		bodies = append(bodies, e)
	}
	return bodies
}

// SpawnPoint picks where the player in slot enters the scene: the first clear
// spawn point starting from slot, or the slot's own point if none is clear.
func SpawnPoint(w *physics.World, scene *leveldata.Scene, slot uint8) (x, z float32) {
	n := len(scene.Spawns)
	if n == 0 {
		return float32(scene.Width) / 2, float32(scene.Depth) / 2
	}
	clearance := mgl32.Vec3{LocosphereHalfExtents.X(), FenderOffset.Y(), LocosphereHalfExtents.Z()}
	for i := 0; i < n; i++ {
		s := scene.Spawns[(int(slot)+i)%n]
		if w.ClearAt(mgl32.Vec3{s.X, clearance.Y(), s.Z}, clearance) {
			return s.X, s.Z
		}
	}
	s := scene.Spawns[int(slot)%n]
	return s.X, s.Z
}
