package core

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yohamta/donburi"

	"github.com/automoto/physnet/archetypes"
	"github.com/automoto/physnet/network"
	"github.com/automoto/physnet/shared/messages"
	"github.com/automoto/physnet/shared/netconfig"
	"github.com/automoto/physnet/shared/protocol"
)

func (s *Server) onPeerConnect(src network.Source) {
	if !src.HasSlot {
		// It may still claim a slot that frees up before it asks to join.
		s.log.WithField("peer", src.Peer.ID()).Warn("peer connected while the slot table is full")
	}
}

func (s *Server) onPeerDisconnect(src network.Source, reason netconfig.DisconnectReason) {
	if _, ok := s.joinedSlot(src); ok {
		s.leave(src.Slot, reason)
	}
}

// join admits the peer of src into its slot, or answers with a rejection and
// disconnects it.
func (s *Server) join(src network.Source, req messages.PlayerJoinRequest) error {
	if !src.HasSlot {
		src.Slot, src.HasSlot = s.net.ClaimSlot(src.Peer)
	}
	switch {
	case !src.HasSlot:
		return s.reject(src.Peer, netconfig.RejectServerFull, ErrServerFull)
	case s.opts.RequireVersion && !protocol.Compatible(req.GameVersion):
		return s.reject(src.Peer, netconfig.RejectVersionMismatch,
			fmt.Errorf("%w: client %x, server %x", ErrVersionMismatch, req.GameVersion, protocol.Version()))
	case s.slots[src.Slot].Present:
		return s.reject(src.Peer, netconfig.RejectAlreadyJoined, ErrAlreadyJoined)
	}

	slot := src.Slot
	world := s.level.World
	x, z := archetypes.SpawnPoint(world, s.level.Scene, uint8(slot))
	s.slots[slot] = PlayerSlot{
		Present:          true,
		Peer:             src.Peer,
		Rig:              archetypes.NewPlayerRig(world, uint8(slot), x, z),
		UserAuthID:       req.UserAuthID,
		UserAuthUniverse: req.UserAuthUniverse,
	}
	s.players.Add(1)

	// The newcomer builds the scene before learning its id, then hears about
	// everyone already present and the state of every networked body.
	send := func(m messages.Message, ch netconfig.Channel) {
		_ = s.net.SendTo(slot, m, ch, netconfig.Reliable)
	}
	send(messages.SetScene{SceneName: s.level.Scene.Name}, netconfig.ChannelDefault)
	send(messages.PlayerJoinAcceptance{ServerSideID: uint8(slot)}, netconfig.ChannelDefault)
	for i := range s.slots {
		if i != int(slot) && s.slots[i].Present {
			send(messages.OtherPlayerJoin{ID: uint8(i)}, netconfig.ChannelDefault)
		}
	}
	s.eachNetworkedBody(func(id uint32, e donburi.Entity) {
		send(s.rigidbodySync(id, e), netconfig.ChannelWorld)
	})
	s.net.BroadcastExcluding(messages.OtherPlayerJoin{ID: uint8(slot)}, netconfig.ChannelDefault, netconfig.Reliable, slot)

	s.log.WithFields(logrus.Fields{
		"slot":     slot,
		"peer":     src.Peer.ID(),
		"authID":   req.UserAuthID,
		"universe": req.UserAuthUniverse,
	}).Info("player joined")
	return nil
}

func (s *Server) reject(p network.Peer, reason netconfig.RejectReason, cause error) error {
	_ = s.net.SendToPeer(p, messages.PlayerJoinRejection{Reason: reason}, netconfig.ChannelDefault, netconfig.Reliable)
	s.net.DisconnectPeer(p, netconfig.DisconnectRejected)
	s.log.WithFields(logrus.Fields{"peer": p.ID(), "reason": reason}).Warn("join rejected")
	return cause
}

// leave frees slot, destroys the player's rig and tells everyone else.
func (s *Server) leave(slot network.SlotID, reason netconfig.DisconnectReason) {
	s.slots[slot].Rig.Destroy(s.level.World)
	s.slots[slot] = PlayerSlot{}
	s.players.Add(-1)
	s.net.BroadcastExcluding(messages.OtherPlayerLeave{ID: uint8(slot)}, netconfig.ChannelDefault, netconfig.Reliable, slot)
	s.log.WithFields(logrus.Fields{"slot": slot, "reason": reason}).Info("player left")
}

// ChangeScene replaces the world with a fresh one built from the named scene.
// Every present player is told first and then respawned and re-announced to
// the others; acknowledged input indices carry over.
func (s *Server) ChangeScene(name string) error {
	scene, ok := s.opts.Scenes[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScene, name)
	}
	s.level = NewServerLevel(scene, s.opts.Physics, s.log)
	s.net.Broadcast(messages.SetScene{SceneName: scene.Name}, netconfig.ChannelDefault, netconfig.Reliable)

	for i := range s.slots {
		p := &s.slots[i]
		if !p.Present {
			continue
		}
		x, z := archetypes.SpawnPoint(s.level.World, scene, uint8(i))
		p.Rig = archetypes.NewPlayerRig(s.level.World, uint8(i), x, z)
		s.net.BroadcastExcluding(messages.OtherPlayerJoin{ID: uint8(i)}, netconfig.ChannelDefault, netconfig.Reliable, network.SlotID(i))
	}
	s.syncTimer = 0
	s.log.WithField("scene", name).Info("scene changed")
	return nil
}
