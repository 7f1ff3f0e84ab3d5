package network

import (
	"github.com/automoto/physnet/shared/messages"
	"github.com/automoto/physnet/shared/netconfig"
)

// SlotID is a server player slot index. It doubles as the player id on the wire.
type SlotID uint8

// Source identifies where a received message came from.
type Source struct {
	Peer    Peer
	Slot    SlotID
	HasSlot bool
}

// Received is one decoded inbound message.
type Received struct {
	Message messages.Message
	Channel netconfig.Channel
	Source  Source
}

// DispatchFunc handles one received message. Implementations switch on the
// concrete type of r.Message.
type DispatchFunc func(r Received)
