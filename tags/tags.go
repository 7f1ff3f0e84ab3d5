package tags

import "github.com/yohamta/donburi"

var (
	Player       = donburi.NewTag().SetName("Player")
	LocalPlayer  = donburi.NewTag().SetName("LocalPlayer")
	RemotePlayer = donburi.NewTag().SetName("RemotePlayer")
	Locosphere   = donburi.NewTag().SetName("Locosphere")
	Fender       = donburi.NewTag().SetName("Fender")
	Wall         = donburi.NewTag().SetName("Wall")
	Prop         = donburi.NewTag().SetName("Prop")
	// NetworkedBody marks dynamic bodies that existed when the scene started.
	// The server broadcasts their state; bodies created later are not synced.
	NetworkedBody = donburi.NewTag().SetName("NetworkedBody")
)
