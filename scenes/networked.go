// Package scenes drives the client side of a networked session: it applies
// server messages to a local physics world and predicts the local player.
package scenes

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yohamta/donburi"

	"github.com/automoto/physnet/archetypes"
	"github.com/automoto/physnet/components"
	"github.com/automoto/physnet/network"
	"github.com/automoto/physnet/shared/leveldata"
	"github.com/automoto/physnet/shared/logging"
	"github.com/automoto/physnet/shared/messages"
	"github.com/automoto/physnet/shared/netcomponents"
	"github.com/automoto/physnet/shared/netconfig"
	"github.com/automoto/physnet/shared/physics"
	"github.com/automoto/physnet/systems"
	"github.com/automoto/physnet/tags"
)

var (
	ErrUnknownPlayer     = errors.New("unknown player id")
	ErrUnknownEntity     = errors.New("unknown networked body")
	ErrUnknownScene      = errors.New("unknown scene")
	ErrNoScene           = errors.New("no scene loaded")
	ErrUnexpectedMessage = errors.New("unexpected message")
)

// NetworkedSceneConfig configures a NetworkedScene.
type NetworkedSceneConfig struct {
	Scenes  map[string]*leveldata.Scene
	Input   systems.InputSource
	Physics physics.Params
	// Timestep is the fixed tick length. Zero selects netconfig.FixedTimestep.
	Timestep     float32
	HistoryLimit int
	// MaxPlayers bounds the remote player ids accepted from the server. Zero
	// accepts any id a slot table can hold (netconfig.MaxSlotTable).
	MaxPlayers int
}

// NetworkedScene is the client's simulation of the server's world.
type NetworkedScene struct {
	log        logrus.FieldLogger
	client     *network.Client
	cfg        NetworkedSceneConfig
	input      *systems.NetInput
	prediction *systems.NetPrediction

	ecs     donburi.World
	world   *physics.World
	scene   *leveldata.Scene
	bodies  []donburi.Entity // indexed by network id
	local   *archetypes.Rig
	remotes map[uint8]archetypes.Rig

	dropped int
}

func NewNetworkedScene(client *network.Client, c NetworkedSceneConfig, log logrus.FieldLogger) *NetworkedScene {
	if c.Timestep <= 0 {
		c.Timestep = netconfig.FixedTimestep
	}
	if c.MaxPlayers <= 0 || c.MaxPlayers > netconfig.MaxSlotTable {
		c.MaxPlayers = netconfig.MaxSlotTable
	}
	return &NetworkedScene{
		log:        logging.Component(log, "session"),
		client:     client,
		cfg:        c,
		input:      systems.NewNetInput(c.Input),
		prediction: systems.NewNetPrediction(c.HistoryLimit, c.Timestep),
		remotes:    make(map[uint8]archetypes.Rig),
	}
}

// Simulate runs one client tick: apply what the server sent, predict the
// local player for one input, and send that input.
func (ns *NetworkedScene) Simulate() {
	ns.client.ProcessMessages(ns.dispatch)
	if ns.world == nil {
		return
	}

	if ns.ensureLocal() {
		loco := ns.local.Locosphere
		in := ns.input.Next()
		ns.world.SetIntent(loco, systems.Intent(in))
		ns.world.Step(ns.cfg.Timestep)

		vel := ns.world.Velocity(loco)
		ns.prediction.Record(in.InputIndex, ns.world.Pose(loco).Position, vel.Linear, vel.Angular)
		if err := ns.client.SendToServer(in, netconfig.ChannelPlayer, netconfig.Unreliable); err != nil {
			ns.log.WithError(err).WithField("input", in.InputIndex).Warn("dropping input")
		}
	} else {
		ns.world.Step(ns.cfg.Timestep)
	}
	systems.SyncTransforms(ns.ecs)
}

func (ns *NetworkedScene) dispatch(r network.Received) {
	var err error
	switch m := r.Message.(type) {
	case messages.SetScene:
		err = ns.loadScene(m.SceneName)
	case messages.PlayerPosition:
		err = ns.applyPlayerPosition(m)
	case messages.RigidbodySync:
		err = ns.applyRigidbodySync(m)
	case messages.OtherPlayerJoin:
		err = ns.spawnRemote(m.ID)
	case messages.OtherPlayerLeave:
		err = ns.despawnRemote(m.ID)
	default:
		err = fmt.Errorf("%w: %s", ErrUnexpectedMessage, m.Type())
	}
	if err != nil {
		ns.dropped++
		ns.log.WithError(err).WithField("type", r.Message.Type()).Debug("dropping message")
	}
}

func (ns *NetworkedScene) loadScene(name string) error {
	scene, ok := ns.cfg.Scenes[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScene, name)
	}
	ns.ecs = donburi.NewWorld()
	ns.world = physics.NewWorld(ns.ecs, scene.Width, scene.Depth, ns.cfg.Physics)
	ns.scene = scene
	ns.bodies = archetypes.BuildScene(ns.world, scene, components.Transform)
	ns.local = nil
	clear(ns.remotes)
	ns.prediction.Reset()
	ns.log.WithFields(logrus.Fields{"scene": name, "bodies": len(ns.bodies)}).Info("scene loaded")
	return nil
}

// ensureLocal spawns the local rig once the join is accepted and a scene is
// loaded. It reports whether the local rig exists.
func (ns *NetworkedScene) ensureLocal() bool {
	if ns.local != nil {
		return true
	}
	slot, ok := ns.client.ServerSideID()
	if !ok || ns.world == nil {
		return false
	}
	x, z := archetypes.SpawnPoint(ns.world, ns.scene, slot)
	rig := archetypes.NewPlayerRig(ns.world, slot, x, z, tags.LocalPlayer, components.Transform)
	for _, e := range rig.Entities() {
		netcomponents.PlayerState.Get(ns.ecs.Entry(e)).IsLocal = true
	}
	ns.local = &rig
	ns.log.WithField("slot", slot).Info("local player spawned")
	return true
}

func (ns *NetworkedScene) applyPlayerPosition(m messages.PlayerPosition) error {
	if ns.world == nil {
		return ErrNoScene
	}
	if slot, ok := ns.client.ServerSideID(); ok && m.ID == slot {
		ns.ensureLocal()
		c := ns.prediction.Reconcile(m)
		loco := ns.local.Locosphere
		ns.world.SetPose(loco, c.Position, c.Rotation)
		ns.world.SetVelocity(loco, c.LinearVelocity, c.AngularVelocity)
		systems.SyncTransform(ns.ecs.Entry(loco))
		return nil
	}
	if int(m.ID) >= ns.cfg.MaxPlayers {
		return fmt.Errorf("%w: %d", ErrUnknownPlayer, m.ID)
	}

	rig, ok := ns.remotes[m.ID]
	if !ok {
		if err := ns.spawnRemote(m.ID); err != nil {
			return err
		}
		rig = ns.remotes[m.ID]
	}
	ns.world.SetPose(rig.Locosphere, m.Pos, m.Rot)
	ns.world.SetVelocity(rig.Locosphere, m.LinVel, m.AngVel)
	return nil
}

func (ns *NetworkedScene) applyRigidbodySync(m messages.RigidbodySync) error {
	if ns.world == nil {
		return ErrNoScene
	}
	if uint64(m.EntID) >= uint64(len(ns.bodies)) || !ns.world.Valid(ns.bodies[m.EntID]) {
		return fmt.Errorf("%w: %d", ErrUnknownEntity, m.EntID)
	}
	e := ns.bodies[m.EntID]
	ns.world.SetPose(e, m.Pos, m.Rot)
	ns.world.SetVelocity(e, m.LinVel, m.AngVel)
	return nil
}

func (ns *NetworkedScene) spawnRemote(id uint8) error {
	if ns.world == nil {
		return ErrNoScene
	}
	if int(id) >= ns.cfg.MaxPlayers {
		return fmt.Errorf("%w: %d", ErrUnknownPlayer, id)
	}
	if slot, ok := ns.client.ServerSideID(); ok && id == slot {
		return fmt.Errorf("%w: %d is the local player", ErrUnknownPlayer, id)
	}
	if _, ok := ns.remotes[id]; ok {
		return nil
	}
	x, z := archetypes.SpawnPoint(ns.world, ns.scene, id)
	ns.remotes[id] = archetypes.NewPlayerRig(ns.world, id, x, z, tags.RemotePlayer, components.Transform)
	ns.log.WithField("id", id).Info("player joined")
	return nil
}

func (ns *NetworkedScene) despawnRemote(id uint8) error {
	rig, ok := ns.remotes[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPlayer, id)
	}
	rig.Destroy(ns.world)
	delete(ns.remotes, id)
	ns.log.WithField("id", id).Info("player left")
	return nil
}

// World returns the local physics world, nil before the first scene.
func (ns *NetworkedScene) World() *physics.World { return ns.world }

func (ns *NetworkedScene) SceneName() string {
	if ns.scene == nil {
		return ""
	}
	return ns.scene.Name
}

// LocalRig returns the local player's rig once it is spawned.
func (ns *NetworkedScene) LocalRig() (archetypes.Rig, bool) {
	if ns.local == nil {
		return archetypes.Rig{}, false
	}
	return *ns.local, true
}

// RemoteRig returns the rig of the remote player id.
func (ns *NetworkedScene) RemoteRig(id uint8) (archetypes.Rig, bool) {
	r, ok := ns.remotes[id]
	return r, ok
}

func (ns *NetworkedScene) RemoteCount() int { return len(ns.remotes) }

// NetworkedBody returns the body synchronized under id.
func (ns *NetworkedScene) NetworkedBody(id uint32) (donburi.Entity, bool) {
	if uint64(id) >= uint64(len(ns.bodies)) {
		return 0, false
	}
	return ns.bodies[id], true
}

func (ns *NetworkedScene) Prediction() *systems.NetPrediction { return ns.prediction }

// Dropped counts server messages that could not be applied.
func (ns *NetworkedScene) Dropped() int { return ns.dropped }
