package network

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/automoto/physnet/shared/netconfig"
)

// LoopbackNetwork connects in-process hosts. Delivery is immediate and in
// order; unreliable sends can be dropped at a seeded rate to exercise lossy
// paths deterministically.
type LoopbackNetwork struct {
	mu        sync.Mutex
	listeners map[string]*LoopbackHost
	nextPeer  PeerID
	rng       *rand.Rand
	dropRate  float64
}

// NewLoopbackNetwork creates an empty network whose drop decisions come from seed.
func NewLoopbackNetwork(seed int64) *LoopbackNetwork {
	return &LoopbackNetwork{
		listeners: make(map[string]*LoopbackHost),
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// SetDropRate sets the probability in [0,1] that an unreliable send is lost.
func (n *LoopbackNetwork) SetDropRate(rate float64) {
	n.mu.Lock()
	n.dropRate = rate
	n.mu.Unlock()
}

// NewHost creates a host attached to the network.
func (n *LoopbackNetwork) NewHost() *LoopbackHost {
	return &LoopbackHost{net: n, peers: make(map[PeerID]*loopbackPeer)}
}

func (n *LoopbackNetwork) drop(rel netconfig.Reliability) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return rel == netconfig.Unreliable && n.dropRate > 0 && n.rng.Float64() < n.dropRate
}

// LoopbackHost is a Host on a LoopbackNetwork.
type LoopbackHost struct {
	net     *LoopbackNetwork
	queue   eventQueue
	address string
	peers   map[PeerID]*loopbackPeer
	closed  bool
}

var _ Host = (*LoopbackHost)(nil)

func (h *LoopbackHost) Listen(address string) error {
	h.net.mu.Lock()
	defer h.net.mu.Unlock()
	if h.closed {
		return ErrHostClosed
	}
	if _, taken := h.net.listeners[address]; taken {
		return fmt.Errorf("listen %s: address in use", address)
	}
	h.net.listeners[address] = h
	h.address = address
	return nil
}

func (h *LoopbackHost) Connect(address string) error {
	h.net.mu.Lock()
	defer h.net.mu.Unlock()
	if h.closed {
		return ErrHostClosed
	}
	remote, ok := h.net.listeners[address]
	if !ok || remote.closed {
		h.queue.push(Event{Kind: EventDisconnect, Reason: netconfig.DisconnectTimeout,
			Err: fmt.Errorf("connect %s: %w", address, ErrUnknownAddress)})
		return nil
	}

	h.net.nextPeer++
	local := &loopbackPeer{id: h.net.nextPeer, owner: h, addr: address}
	h.net.nextPeer++
	far := &loopbackPeer{id: h.net.nextPeer, owner: remote, addr: fmt.Sprintf("loopback#%d", local.id)}
	local.remote, far.remote = far, local

	h.peers[local.id] = local
	remote.peers[far.id] = far
	remote.queue.push(Event{Kind: EventConnect, Peer: far})
	h.queue.push(Event{Kind: EventConnect, Peer: local})
	return nil
}

func (h *LoopbackHost) Poll() (Event, bool) {
	return h.queue.pop()
}

func (h *LoopbackHost) Close() error {
	h.net.mu.Lock()
	if h.closed {
		h.net.mu.Unlock()
		return nil
	}
	peers := make([]*loopbackPeer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}
	h.net.mu.Unlock()

	for _, p := range peers {
		p.Disconnect(netconfig.DisconnectServerShutdown)
	}

	h.net.mu.Lock()
	h.closed = true
	if h.address != "" && h.net.listeners[h.address] == h {
		delete(h.net.listeners, h.address)
	}
	h.net.mu.Unlock()
	h.queue.clear()
	return nil
}

// PeerCount returns the number of open connections on the host.
func (h *LoopbackHost) PeerCount() int {
	h.net.mu.Lock()
	defer h.net.mu.Unlock()
	return len(h.peers)
}

type loopbackPeer struct {
	id     PeerID
	owner  *LoopbackHost
	remote *loopbackPeer
	addr   string
	closed bool
}

func (p *loopbackPeer) ID() PeerID         { return p.id }
func (p *loopbackPeer) RemoteAddr() string { return p.addr }

func (p *loopbackPeer) Send(ch netconfig.Channel, rel netconfig.Reliability, payload []byte) error {
	b, err := encodeFrame(ch, rel, payload)
	if err != nil {
		return err
	}
	p.owner.net.mu.Lock()
	closed := p.closed
	p.owner.net.mu.Unlock()
	if closed {
		return ErrPeerClosed
	}
	if p.owner.net.drop(rel) {
		return nil
	}
	p.remote.owner.receive(p.remote, b)
	return nil
}

func (p *loopbackPeer) Disconnect(reason netconfig.DisconnectReason) {
	n := p.owner.net
	n.mu.Lock()
	if p.closed {
		n.mu.Unlock()
		return
	}
	p.closed, p.remote.closed = true, true
	delete(p.owner.peers, p.id)
	delete(p.remote.owner.peers, p.remote.id)
	n.mu.Unlock()

	p.remote.owner.receive(p.remote, encodeDisconnect(reason))
	p.owner.queue.push(Event{Kind: EventDisconnect, Peer: p, Reason: reason})
}

// receive turns one raw packet into an event on h.
func (h *LoopbackHost) receive(from Peer, b []byte) {
	f, err := decodeFrame(b)
	if err != nil {
		return
	}
	if f.disconnect {
		h.queue.push(Event{Kind: EventDisconnect, Peer: from, Reason: f.reason})
		return
	}
	h.queue.push(Event{Kind: EventReceive, Peer: from, Channel: f.channel, Data: f.payload})
}
