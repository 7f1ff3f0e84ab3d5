package network

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/automoto/physnet/shared/logging"
	"github.com/automoto/physnet/shared/netconfig"
)

// packetConn is one message-framed connection of a socket substrate.
type packetConn interface {
	ReadPacket() ([]byte, error)
	WritePacket(b []byte) error
	Close() error
	RemoteAddr() string
}

// dialer and listener adapt a concrete socket library to ConnHost.
type dialer func(address string) (packetConn, error)

type listener func(address string, accept func(packetConn)) (io.Closer, net.Addr, error)

// ConnHost is a Host over a socket library. Every connection gets one reader
// goroutine that only pushes into the event queue.
type ConnHost struct {
	log    logrus.FieldLogger
	dial   dialer
	listen listener
	queue  eventQueue

	mu     sync.Mutex
	peers  map[PeerID]*connPeer
	nextID PeerID
	ln     io.Closer
	addr   net.Addr
	closed bool
	wg     sync.WaitGroup
}

var _ Host = (*ConnHost)(nil)

func newConnHost(log logrus.FieldLogger, name string, d dialer, l listener) *ConnHost {
	return &ConnHost{
		log:    logging.Component(log, name),
		dial:   d,
		listen: l,
		peers:  make(map[PeerID]*connPeer),
	}
}

func (h *ConnHost) Listen(address string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHostClosed
	}
	ln, addr, err := h.listen(address, h.attach)
	if err != nil {
		return fmt.Errorf("listen %s: %w", address, err)
	}
	h.ln, h.addr = ln, addr
	h.log.WithField("address", addr).Info("listening")
	return nil
}

// Addr returns the bound listen address, or "" before Listen. It resolves
// port 0 to the port the system picked.
func (h *ConnHost) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.addr == nil {
		return ""
	}
	return h.addr.String()
}

func (h *ConnHost) Connect(address string) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return ErrHostClosed
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		conn, err := h.dial(address)
		if err != nil {
			h.queue.push(Event{Kind: EventDisconnect, Reason: netconfig.DisconnectTimeout,
				Err: fmt.Errorf("connect %s: %w", address, err)})
			return
		}
		h.attach(conn)
	}()
	return nil
}

// attach registers conn as a peer and starts its reader.
func (h *ConnHost) attach(conn packetConn) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.nextID++
	p := &connPeer{id: h.nextID, conn: conn, host: h}
	h.peers[p.id] = p
	h.wg.Add(1)
	h.mu.Unlock()

	h.queue.push(Event{Kind: EventConnect, Peer: p})
	go h.read(p)
}

func (h *ConnHost) read(p *connPeer) {
	defer h.wg.Done()
	for {
		b, err := p.conn.ReadPacket()
		if err != nil {
			if p.markClosed() {
				h.forget(p)
				_ = p.conn.Close()
				reason := netconfig.DisconnectTimeout
				if errors.Is(err, io.EOF) {
					reason = netconfig.DisconnectUnknown
				}
				h.queue.push(Event{Kind: EventDisconnect, Peer: p, Reason: reason, Err: err})
			}
			return
		}
		f, err := decodeFrame(b)
		if err != nil {
			h.log.WithError(err).WithField("peer", p.id).Debug("dropping packet")
			continue
		}
		if f.disconnect {
			if p.markClosed() {
				h.forget(p)
				_ = p.conn.Close()
				h.queue.push(Event{Kind: EventDisconnect, Peer: p, Reason: f.reason})
			}
			return
		}
		h.queue.push(Event{Kind: EventReceive, Peer: p, Channel: f.channel, Data: f.payload})
	}
}

func (h *ConnHost) forget(p *connPeer) {
	h.mu.Lock()
	delete(h.peers, p.id)
	h.mu.Unlock()
}

func (h *ConnHost) Poll() (Event, bool) {
	return h.queue.pop()
}

// Close disconnects every peer, stops accepting and waits for the readers.
func (h *ConnHost) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	peers := make([]*connPeer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}
	ln := h.ln
	h.mu.Unlock()

	for _, p := range peers {
		p.Disconnect(netconfig.DisconnectServerShutdown)
	}
	var err error
	if ln != nil {
		err = ln.Close()
	}
	h.wg.Wait()
	h.queue.clear()
	return err
}

type connPeer struct {
	id   PeerID
	conn packetConn
	host *ConnHost

	mu     sync.Mutex
	closed bool
}

func (p *connPeer) ID() PeerID         { return p.id }
func (p *connPeer) RemoteAddr() string { return p.conn.RemoteAddr() }

// Send writes the frame immediately. Both socket substrates deliver every
// packet reliably and in order, so rel only travels in the frame header.
func (p *connPeer) Send(ch netconfig.Channel, rel netconfig.Reliability, payload []byte) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPeerClosed
	}
	b, err := encodeFrame(ch, rel, payload)
	if err != nil {
		return err
	}
	return p.conn.WritePacket(b)
}

func (p *connPeer) Disconnect(reason netconfig.DisconnectReason) {
	if !p.markClosed() {
		return
	}
	if err := p.conn.WritePacket(encodeDisconnect(reason)); err != nil {
		p.host.log.WithError(err).WithField("peer", p.id).Debug("disconnect notification not sent")
	}
	_ = p.conn.Close()
	p.host.forget(p)
	p.host.queue.push(Event{Kind: EventDisconnect, Peer: p, Reason: reason})
}

// markClosed reports whether this call closed the peer.
func (p *connPeer) markClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.closed = true
	return true
}
