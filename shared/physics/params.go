package physics

// Params are the tunables of the reference rigid body simulation. Client and
// server must use identical values or every prediction will be corrected.
type Params struct {
	Gravity          float32 `toml:"gravity"`
	MoveAcceleration float32 `toml:"move_acceleration"`
	SprintMultiplier float32 `toml:"sprint_multiplier"`
	MaxSpeed         float32 `toml:"max_speed"`
	JumpSpeed        float32 `toml:"jump_speed"`
	GroundFriction   float32 `toml:"ground_friction"`
	AngularDamping   float32 `toml:"angular_damping"`
	SleepSpeed       float32 `toml:"sleep_speed"`
	SleepTicks       int     `toml:"sleep_ticks"`
	WallHeight       float32 `toml:"wall_height"`
}

func DefaultParams() Params {
	return Params{
		Gravity:          9.81,
		MoveAcceleration: 30,
		SprintMultiplier: 1.6,
		MaxSpeed:         6,
		JumpSpeed:        5,
		GroundFriction:   6,
		AngularDamping:   2,
		SleepSpeed:       0.05,
		SleepTicks:       50,
		WallHeight:       3,
	}
}
