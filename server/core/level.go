package core

import (
	"github.com/sirupsen/logrus"
	"github.com/yohamta/donburi"

	"github.com/automoto/physnet/archetypes"
	"github.com/automoto/physnet/shared/leveldata"
	"github.com/automoto/physnet/shared/physics"
)

// ServerLevel is the authoritative world of the running scene.
type ServerLevel struct {
	Scene *leveldata.Scene
	ECS   donburi.World
	World *physics.World
	// Bodies are the networked bodies, indexed by network id.
	Bodies []donburi.Entity
}

// NewServerLevel builds a fresh world for scene.
func NewServerLevel(scene *leveldata.Scene, params physics.Params, log logrus.FieldLogger) *ServerLevel {
	ecs := donburi.NewWorld()
	world := physics.NewWorld(ecs, scene.Width, scene.Depth, params)
	bodies := archetypes.BuildScene(world, scene)

	log.WithFields(logrus.Fields{
		"scene":  scene.Name,
		"walls":  len(scene.Walls),
		"bodies": len(bodies),
		"spawns": len(scene.Spawns),
		"size":   [2]int{scene.Width, scene.Depth},
	}).Info("loaded level")

	return &ServerLevel{
		Scene:  scene,
		ECS:    ecs,
		World:  world,
		Bodies: bodies,
	}
}
