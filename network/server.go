package network

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/automoto/physnet/shared/logging"
	"github.com/automoto/physnet/shared/messages"
	"github.com/automoto/physnet/shared/netconfig"
)

// ServerCallbacks surface peer transitions. Each fires exactly once per peer.
type ServerCallbacks struct {
	OnPeerConnect    func(src Source)
	OnPeerDisconnect func(src Source, reason netconfig.DisconnectReason)
}

// Server accepts peers and maps each to a player slot. The slot table and the
// reverse index are only touched from the tick goroutine.
type Server struct {
	host Host
	log  logrus.FieldLogger

	slots  []Peer // slot -> peer, nil when free
	byPeer map[PeerID]SlotID
	peers  map[PeerID]Peer // every open peer, slotted or not
}

// NewServer creates a server with maxPlayers slots.
func NewServer(host Host, maxPlayers int, log logrus.FieldLogger) *Server {
	if maxPlayers <= 0 || maxPlayers > netconfig.MaxSlotTable {
		maxPlayers = netconfig.MaxPlayers
	}
	return &Server{
		host:   host,
		log:    logging.Component(log, "server"),
		slots:  make([]Peer, maxPlayers),
		byPeer: make(map[PeerID]SlotID),
		peers:  make(map[PeerID]Peer),
	}
}

// Start begins listening on address.
func (s *Server) Start(address string) error {
	if err := s.host.Listen(address); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	s.log.WithFields(logrus.Fields{"address": address, "maxPlayers": len(s.slots)}).Info("server started")
	return nil
}

// Stop disconnects every peer and closes the host.
func (s *Server) Stop() error {
	for _, p := range s.peers {
		p.Disconnect(netconfig.DisconnectServerShutdown)
	}
	s.slots = make([]Peer, len(s.slots))
	s.byPeer = make(map[PeerID]SlotID)
	s.peers = make(map[PeerID]Peer)
	return s.host.Close()
}

// ProcessMessages drains every buffered event across all peers.
func (s *Server) ProcessMessages(fn DispatchFunc, cb ServerCallbacks) {
	for {
		ev, ok := s.host.Poll()
		if !ok {
			return
		}
		switch ev.Kind {
		case EventConnect:
			s.onConnect(ev.Peer, cb)
		case EventDisconnect:
			s.onDisconnect(ev, cb)
		case EventReceive:
			s.onReceive(ev, fn)
		}
	}
}

func (s *Server) onConnect(p Peer, cb ServerCallbacks) {
	if p == nil {
		return
	}
	s.peers[p.ID()] = p
	entry := s.log.WithFields(logrus.Fields{"peer": p.ID(), "address": p.RemoteAddr()})

	if slot, ok := s.freeSlot(); ok {
		s.slots[slot] = p
		s.byPeer[p.ID()] = slot
		entry.WithField("slot", slot).Info("peer connected")
	} else {
		entry.Warn("peer connected with no free slot")
	}
	if cb.OnPeerConnect != nil {
		cb.OnPeerConnect(s.source(p))
	}
}

func (s *Server) onDisconnect(ev Event, cb ServerCallbacks) {
	if ev.Peer == nil {
		return
	}
	if _, ok := s.peers[ev.Peer.ID()]; !ok {
		return
	}
	src := s.source(ev.Peer)
	if src.HasSlot {
		s.slots[src.Slot] = nil
		delete(s.byPeer, ev.Peer.ID())
	}
	delete(s.peers, ev.Peer.ID())
	s.log.WithFields(logrus.Fields{"peer": ev.Peer.ID(), "slot": src.Slot, "reason": ev.Reason}).Info("peer disconnected")

	if cb.OnPeerDisconnect != nil {
		cb.OnPeerDisconnect(src, ev.Reason)
	}
}

func (s *Server) onReceive(ev Event, fn DispatchFunc) {
	if _, ok := s.peers[ev.Peer.ID()]; !ok {
		return
	}
	msg, err := messages.Decode(ev.Data)
	if err != nil {
		s.log.WithError(err).WithField("peer", ev.Peer.ID()).Warn("dropping message")
		return
	}
	if fn != nil {
		fn(Received{Message: msg, Channel: ev.Channel, Source: s.source(ev.Peer)})
	}
}

func (s *Server) freeSlot() (SlotID, bool) {
	for i, p := range s.slots {
		if p == nil {
			return SlotID(i), true
		}
	}
	return 0, false
}

// ClaimSlot gives p a slot if it has none and one is free. Peers that
// connected while the table was full claim a slot this way once someone
// leaves.
func (s *Server) ClaimSlot(p Peer) (SlotID, bool) {
	if slot, ok := s.byPeer[p.ID()]; ok {
		return slot, true
	}
	if _, ok := s.peers[p.ID()]; !ok {
		return 0, false
	}
	slot, ok := s.freeSlot()
	if !ok {
		return 0, false
	}
	s.slots[slot] = p
	s.byPeer[p.ID()] = slot
	s.log.WithFields(logrus.Fields{"peer": p.ID(), "slot": slot}).Info("peer claimed a freed slot")
	return slot, true
}

func (s *Server) source(p Peer) Source {
	slot, ok := s.byPeer[p.ID()]
	return Source{Peer: p, Slot: slot, HasSlot: ok}
}

// Broadcast sends msg to every slotted peer.
func (s *Server) Broadcast(msg messages.Message, ch netconfig.Channel, rel netconfig.Reliability) {
	s.broadcast(msg, ch, rel, -1)
}

// BroadcastExcluding sends msg to every slotted peer except the one in excluded.
func (s *Server) BroadcastExcluding(msg messages.Message, ch netconfig.Channel, rel netconfig.Reliability, excluded SlotID) {
	s.broadcast(msg, ch, rel, int(excluded))
}

func (s *Server) broadcast(msg messages.Message, ch netconfig.Channel, rel netconfig.Reliability, excluded int) {
	b, err := messages.Encode(msg)
	if err != nil {
		s.log.WithError(err).Error("encode failed")
		return
	}
	for i, p := range s.slots {
		if p == nil || i == excluded {
			continue
		}
		if err := p.Send(ch, rel, b); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"slot": i, "message": msg.Type()}).Warn("send failed")
		}
	}
}

// SendTo unicasts msg to the peer in slot.
func (s *Server) SendTo(slot SlotID, msg messages.Message, ch netconfig.Channel, rel netconfig.Reliability) error {
	p, ok := s.PeerOf(slot)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSlot, slot)
	}
	return s.SendToPeer(p, msg, ch, rel)
}

// SendToPeer unicasts msg to p, which need not hold a slot.
func (s *Server) SendToPeer(p Peer, msg messages.Message, ch netconfig.Channel, rel netconfig.Reliability) error {
	b, err := messages.Encode(msg)
	if err != nil {
		return err
	}
	if err := p.Send(ch, rel, b); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"peer": p.ID(), "message": msg.Type()}).Warn("send failed")
		return err
	}
	return nil
}

// DisconnectPeer closes p. Its OnPeerDisconnect fires on a later ProcessMessages.
func (s *Server) DisconnectPeer(p Peer, reason netconfig.DisconnectReason) {
	p.Disconnect(reason)
}

// PeerOf returns the peer in slot.
func (s *Server) PeerOf(slot SlotID) (Peer, bool) {
	if int(slot) >= len(s.slots) || s.slots[slot] == nil {
		return nil, false
	}
	return s.slots[slot], true
}

// SlotOf returns the slot of the peer with id.
func (s *Server) SlotOf(id PeerID) (SlotID, bool) {
	slot, ok := s.byPeer[id]
	return slot, ok
}

// MaxPlayers returns the size of the slot table.
func (s *Server) MaxPlayers() int { return len(s.slots) }

// PeerCount returns the number of open peers, slotted or not.
func (s *Server) PeerCount() int { return len(s.peers) }
