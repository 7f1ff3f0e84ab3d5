package core

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"

	"github.com/automoto/physnet/network"
	"github.com/automoto/physnet/shared/messages"
	"github.com/automoto/physnet/shared/netcomponents"
	"github.com/automoto/physnet/shared/netconfig"
	"github.com/automoto/physnet/tags"
)

var networkedBodyQuery = donburi.NewQuery(filter.Contains(tags.NetworkedBody, netcomponents.NetworkID))

// broadcastDue advances the send timer and reports whether this tick sends.
func (s *Server) broadcastDue() bool {
	s.syncTimer++
	if s.syncTimer < s.opts.SendRate {
		return false
	}
	s.syncTimer = 0
	return true
}

// broadcastState sends every present player's pose and every awake networked
// body to all peers. Sleeping bodies have not moved since they fell asleep.
func (s *Server) broadcastState() {
	s.broadcasts++
	for i := range s.slots {
		if !s.slots[i].Present {
			continue
		}
		s.net.Broadcast(s.playerPosition(network.SlotID(i)), netconfig.ChannelPlayer, netconfig.Unreliable)
	}

	world := s.level.World
	s.eachNetworkedBody(func(id uint32, e donburi.Entity) {
		if world.IsSleeping(e) {
			return
		}
		s.net.Broadcast(s.rigidbodySync(id, e), netconfig.ChannelWorld, netconfig.Unreliable)
	})
}

// eachNetworkedBody calls fn for every live body tagged NetworkedBody.
func (s *Server) eachNetworkedBody(fn func(id uint32, e donburi.Entity)) {
	networkedBodyQuery.Each(s.level.ECS, func(entry *donburi.Entry) {
		fn(netcomponents.NetworkID.Get(entry).ID, entry.Entity())
	})
}

func (s *Server) playerPosition(slot network.SlotID) messages.PlayerPosition {
	p := s.slots[slot]
	world := s.level.World
	pose := world.Pose(p.Rig.Locosphere)
	vel := world.Velocity(p.Rig.Locosphere)
	return messages.PlayerPosition{
		ID:         uint8(slot),
		Pos:        pose.Position,
		Rot:        pose.Rotation,
		LinVel:     vel.Linear,
		AngVel:     vel.Angular,
		InputIndex: p.LastAcknowledgedInput,
	}
}

func (s *Server) rigidbodySync(id uint32, e donburi.Entity) messages.RigidbodySync {
	world := s.level.World
	pose := world.Pose(e)
	vel := world.Velocity(e)
	return messages.RigidbodySync{
		EntID:  id,
		Pos:    pose.Position,
		Rot:    pose.Rotation,
		LinVel: vel.Linear,
		AngVel: vel.Angular,
	}
}
