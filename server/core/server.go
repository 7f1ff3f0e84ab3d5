// Package core is the authoritative game server: it owns the player slots,
// applies client inputs to the simulation and broadcasts the results.
package core

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/automoto/physnet/archetypes"
	"github.com/automoto/physnet/network"
	"github.com/automoto/physnet/shared/leveldata"
	"github.com/automoto/physnet/shared/logging"
	"github.com/automoto/physnet/shared/messages"
	"github.com/automoto/physnet/shared/netconfig"
	"github.com/automoto/physnet/shared/physics"
	"github.com/automoto/physnet/systems"
)

var (
	ErrServerFull      = errors.New("server full")
	ErrVersionMismatch = errors.New("protocol version mismatch")
	ErrAlreadyJoined   = errors.New("already joined")
	ErrUnknownScene    = errors.New("unknown scene")
	ErrNotJoined       = errors.New("peer has not joined")
	ErrStaleInput      = errors.New("stale input")
)

// PlayerSlot is one player's server-side record. A slot is either empty or
// holds a live rig; there is no state in between.
type PlayerSlot struct {
	Present               bool
	Peer                  network.Peer
	LastAcknowledgedInput messages.InputIndex
	Rig                   archetypes.Rig

	UserAuthID       uint64
	UserAuthUniverse uint16
}

// Options configure a Server.
type Options struct {
	Scenes map[string]*leveldata.Scene
	// Scene is the scene the server starts in.
	Scene   string
	Physics physics.Params
	// Timestep is the fixed tick length. Zero selects netconfig.FixedTimestep.
	Timestep float32
	// SendRate is the number of ticks between state broadcasts; 0 broadcasts
	// every tick.
	SendRate int
	// RequireVersion rejects clients whose game version differs from
	// protocol.Version().
	RequireVersion bool
}

// Server runs the authoritative simulation. Tick must be called from a
// single goroutine; only PlayerCount is safe to call concurrently.
type Server struct {
	log  logrus.FieldLogger
	net  *network.Server
	opts Options

	slots []PlayerSlot
	level *ServerLevel

	syncTimer  int
	ticks      uint64
	broadcasts uint64
	players    atomic.Int32
}

// NewServer creates a server in opts.Scene. The slot table has one entry per
// slot of net.
func NewServer(net *network.Server, opts Options, log logrus.FieldLogger) (*Server, error) {
	if opts.Timestep <= 0 {
		opts.Timestep = netconfig.FixedTimestep
	}
	if opts.SendRate < 0 {
		opts.SendRate = netconfig.DefaultSendRate
	}
	s := &Server{
		log:   logging.Component(log, "session"),
		net:   net,
		opts:  opts,
		slots: make([]PlayerSlot, net.MaxPlayers()),
	}
	scene, ok := opts.Scenes[opts.Scene]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScene, opts.Scene)
	}
	s.level = NewServerLevel(scene, opts.Physics, s.log)
	return s, nil
}

// Tick runs one simulation step: drain the network, advance the world and
// broadcast when the send rate is due.
func (s *Server) Tick() {
	s.net.ProcessMessages(s.dispatch, network.ServerCallbacks{
		OnPeerConnect:    s.onPeerConnect,
		OnPeerDisconnect: s.onPeerDisconnect,
	})
	s.level.World.Step(s.opts.Timestep)
	s.ticks++
	if s.broadcastDue() {
		s.broadcastState()
	}
}

func (s *Server) dispatch(r network.Received) {
	var err error
	switch m := r.Message.(type) {
	case messages.PlayerInput:
		err = s.applyInput(r.Source, m)
	case messages.PlayerJoinRequest:
		err = s.join(r.Source, m)
	default:
		err = fmt.Errorf("unexpected %s from client", m.Type())
	}
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"peer":    r.Source.Peer.ID(),
			"message": r.Message.Type(),
		}).Debug("dropping message")
	}
}

// applyInput stores the latest intent of a slot. Inputs older than the last
// acknowledged one arrived out of order and are ignored. A jump stays latched
// until the next physics step.
func (s *Server) applyInput(src network.Source, in messages.PlayerInput) error {
	slot, ok := s.joinedSlot(src)
	if !ok {
		return ErrNotJoined
	}
	p := &s.slots[slot]
	if in.InputIndex < p.LastAcknowledgedInput {
		return fmt.Errorf("%w: %d < %d", ErrStaleInput, in.InputIndex, p.LastAcknowledgedInput)
	}
	s.level.World.SetIntent(p.Rig.Locosphere, systems.Intent(in))
	p.LastAcknowledgedInput = in.InputIndex
	return nil
}

func (s *Server) joinedSlot(src network.Source) (network.SlotID, bool) {
	if !src.HasSlot || int(src.Slot) >= len(s.slots) {
		return 0, false
	}
	p := s.slots[src.Slot]
	if !p.Present || p.Peer == nil || p.Peer.ID() != src.Peer.ID() {
		return 0, false
	}
	return src.Slot, true
}

// Slot returns a copy of the record in slot.
func (s *Server) Slot(slot network.SlotID) (PlayerSlot, bool) {
	if int(slot) >= len(s.slots) {
		return PlayerSlot{}, false
	}
	return s.slots[slot], true
}

// Level returns the running level.
func (s *Server) Level() *ServerLevel { return s.level }

// PlayerCount returns the number of joined players. It may be called from
// any goroutine.
func (s *Server) PlayerCount() int { return int(s.players.Load()) }

func (s *Server) MaxPlayers() int { return len(s.slots) }

// Ticks returns the number of simulated ticks.
func (s *Server) Ticks() uint64 { return s.ticks }

// Broadcasts returns the number of state broadcasts sent.
func (s *Server) Broadcasts() uint64 { return s.broadcasts }

// Stop disconnects every peer and closes the transport.
func (s *Server) Stop() error {
	return s.net.Stop()
}
