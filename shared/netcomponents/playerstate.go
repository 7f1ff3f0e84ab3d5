package netcomponents

import "github.com/yohamta/donburi"

// PlayerStateData binds a player rig to the server slot that owns it.
type PlayerStateData struct {
	Slot    uint8
	IsLocal bool // client-side only
}

var PlayerState = donburi.NewComponentType[PlayerStateData]()

// NetworkIDData is the id a networked body is synchronized under. Ids are
// assigned in scene load order, so client and server agree without a handshake.
type NetworkIDData struct {
	ID uint32
}

var NetworkID = donburi.NewComponentType[NetworkIDData]()
