// Package netconfig defines lightweight types shared between client and server
// for the physics synchronization protocol. It must have zero dependencies on
// the simulation or transport packages so both binaries can import it freely.
package netconfig

import "time"

// DefaultPort is the port the dedicated server listens on when none is configured.
const DefaultPort = 3011

// MaxPlayers is the default size of the server's player slot table.
// Slot ids travel as a single byte on the wire, so a table can never exceed 256.
const MaxPlayers = 32

// MaxSlotTable is the largest slot table a server may run. Player ids are u8,
// so ids stay within 0..254.
const MaxSlotTable = 255

// DefaultSendRate is the number of simulation ticks between state broadcasts.
// A send rate of 0 broadcasts every tick.
const DefaultSendRate = 5

// FixedTimestep is the nominal simulation step in seconds. Reconciliation
// replays buffered predictions with this step.
const FixedTimestep float32 = 0.01

// TickRate is the number of simulation ticks per second at FixedTimestep.
const TickRate = 100

// TickDuration returns the wall-clock duration of one tick at the given rate.
func TickDuration(tickRate int) time.Duration {
	if tickRate <= 0 {
		tickRate = TickRate
	}
	return time.Second / time.Duration(tickRate)
}

// Channel is a logical stream inside one transport connection.
type Channel uint8

const (
	// ChannelDefault carries control messages: join, leave and scene changes.
	ChannelDefault Channel = iota
	// ChannelPlayer carries per-tick player input and player positions.
	ChannelPlayer
	// ChannelWorld carries rigid body synchronization.
	ChannelWorld

	// ChannelCount is the number of logical channels.
	ChannelCount
)

func (c Channel) String() string {
	switch c {
	case ChannelDefault:
		return "default"
	case ChannelPlayer:
		return "player"
	case ChannelWorld:
		return "world"
	}
	return "unknown"
}

// Reliability is a per-send delivery flag. It is not a channel property.
type Reliability uint8

const (
	// Unreliable sends are unordered and best-effort.
	Unreliable Reliability = iota
	// Reliable sends are delivered in order or the connection fails.
	Reliable
)

func (r Reliability) String() string {
	if r == Reliable {
		return "reliable"
	}
	return "unreliable"
}

// RejectReason explains why a join request was refused.
type RejectReason uint8

const (
	RejectNone RejectReason = iota
	RejectServerFull
	RejectVersionMismatch
	RejectAlreadyJoined
)

func (r RejectReason) String() string {
	switch r {
	case RejectServerFull:
		return "server full"
	case RejectVersionMismatch:
		return "version mismatch"
	case RejectAlreadyJoined:
		return "already joined"
	}
	return "none"
}

// DisconnectReason is attached to transport-level disconnect notifications.
type DisconnectReason uint32

const (
	DisconnectUnknown DisconnectReason = iota
	// DisconnectPlayerLeaving is sent by a client that leaves on its own.
	DisconnectPlayerLeaving
	// DisconnectRejected is sent by the server after refusing a join.
	DisconnectRejected
	// DisconnectServerShutdown is sent to every peer when the server stops.
	DisconnectServerShutdown
	// DisconnectTimeout is reported locally when the substrate loses a peer.
	DisconnectTimeout
)

func (r DisconnectReason) String() string {
	switch r {
	case DisconnectPlayerLeaving:
		return "player leaving"
	case DisconnectRejected:
		return "rejected"
	case DisconnectServerShutdown:
		return "server shutdown"
	case DisconnectTimeout:
		return "timeout"
	}
	return "unknown"
}
