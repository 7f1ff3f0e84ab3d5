package systems

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	cfg "github.com/automoto/physnet/config"
	"github.com/automoto/physnet/shared/physics"
)

// Bot is a scripted InputSource. It holds a random heading for a while, then
// picks a new one; sprinting and jumping are rolled per heading and per tick.
// The same seed always produces the same input sequence.
type Bot struct {
	cfg     cfg.BotConfig
	rng     *rand.Rand
	heading mgl32.Vec2
	sprint  bool
	held    int
}

func NewBot(c cfg.BotConfig) *Bot {
	if c.ChangeInterval < 1 {
		c.ChangeInterval = 1
	}
	return &Bot{
		cfg: c,
		rng: rand.New(rand.NewSource(c.Seed)),
	}
}

func (b *Bot) Sample() physics.ControllerData {
	if b.held == 0 {
		angle := b.rng.Float64() * 2 * math.Pi
		b.heading = mgl32.Vec2{float32(math.Cos(angle)), float32(math.Sin(angle))}
		b.sprint = b.rng.Float64() < b.cfg.SprintChance
	}
	b.held = (b.held + 1) % b.cfg.ChangeInterval

	return physics.ControllerData{
		Move:   b.heading,
		Sprint: b.sprint,
		Jump:   b.rng.Float64() < b.cfg.JumpChance,
	}
}
