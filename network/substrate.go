package network

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/automoto/physnet/shared/netconfig"
)

var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrUnknownSlot      = errors.New("unknown slot")
	ErrPeerClosed       = errors.New("peer closed")
	ErrHostClosed       = errors.New("host closed")
	ErrUnknownAddress   = errors.New("no host listening on address")
	ErrUnknownTransport = errors.New("unknown transport")
)

// PeerID identifies one transport connection for the lifetime of its host.
type PeerID uint32

// Peer is the remote end of one transport connection.
type Peer interface {
	ID() PeerID
	// Send queues payload on a logical channel. It never blocks on the network.
	Send(ch netconfig.Channel, rel netconfig.Reliability, payload []byte) error
	// Disconnect notifies the remote end and closes the connection. The owning
	// host reports an EventDisconnect for the peer on a later Poll.
	Disconnect(reason netconfig.DisconnectReason)
	RemoteAddr() string
}

// EventKind is the kind of a transport event.
type EventKind int

const (
	EventConnect EventKind = iota + 1
	EventDisconnect
	EventReceive
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventReceive:
		return "receive"
	}
	return "none"
}

// Event is one transport occurrence, buffered by a Host until polled.
type Event struct {
	Kind    EventKind
	Peer    Peer // nil for a failed outbound connect
	Channel netconfig.Channel
	Data    []byte
	Reason  netconfig.DisconnectReason
	Err     error
}

// Host is the netcode substrate. Implementations may move bytes on their own
// goroutines but only ever hand them to the caller through Poll.
type Host interface {
	// Listen binds address and starts accepting peers.
	Listen(address string) error
	// Connect starts an outbound connection. The outcome is reported as an
	// EventConnect or an EventDisconnect with a nil Peer.
	Connect(address string) error
	// Poll returns the next buffered event without blocking.
	Poll() (Event, bool)
	// Close disconnects every peer and releases the host.
	Close() error
}

// eventQueue is the FIFO between substrate goroutines and the tick goroutine.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
}

func (q *eventQueue) push(ev Event) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
}

func (q *eventQueue) pop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return Event{}, false
	}
	ev := q.events[0]
	q.events[0] = Event{}
	q.events = q.events[1:]
	return ev, true
}

func (q *eventQueue) clear() {
	q.mu.Lock()
	q.events = nil
	q.mu.Unlock()
}

// Substrate names accepted by NewHost.
const (
	TransportRakNet    = "raknet"
	TransportWebSocket = "websocket"
)

// NewHost creates the named socket substrate.
func NewHost(transport string, log logrus.FieldLogger) (Host, error) {
	switch transport {
	case TransportRakNet:
		return NewRakNetHost(log), nil
	case TransportWebSocket:
		return NewWebSocketHost(log), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, transport)
}
