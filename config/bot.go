package config

import (
	"fmt"
	"strings"
)

// BotDifficulty sets how erratic a headless bot client drives.
type BotDifficulty int

const (
	BotDifficultyEasy BotDifficulty = iota
	BotDifficultyNormal
	BotDifficultyHard
)

var botDifficultyNames = map[string]BotDifficulty{
	"easy":   BotDifficultyEasy,
	"normal": BotDifficultyNormal,
	"hard":   BotDifficultyHard,
}

// ParseBotDifficulty accepts easy, normal or hard in any case.
func ParseBotDifficulty(s string) (BotDifficulty, error) {
	d, ok := botDifficultyNames[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("%w: unknown bot difficulty %q", ErrInvalidConfig, s)
	}
	return d, nil
}

// BotConfig tunes the scripted input of a bot client.
type BotConfig struct {
	Seed int64 `toml:"seed"`
	// ChangeInterval is the number of ticks a bot holds one direction.
	ChangeInterval int     `toml:"change_interval"`
	SprintChance   float64 `toml:"sprint_chance"`
	JumpChance     float64 `toml:"jump_chance"` // per tick
	// Ticks stops the bot after that many ticks. Zero runs until interrupted.
	Ticks int `toml:"ticks"`
}

var botDifficulties = map[BotDifficulty]BotConfig{
	BotDifficultyEasy: {
		ChangeInterval: 200, // 2 seconds at 100 Hz
		SprintChance:   0,
		JumpChance:     0.002,
	},
	BotDifficultyNormal: {
		ChangeInterval: 100,
		SprintChance:   0.3,
		JumpChance:     0.01,
	},
	BotDifficultyHard: {
		ChangeInterval: 25,
		SprintChance:   0.8,
		JumpChance:     0.05,
	},
}

// DefaultBot returns the bot tuning for d. Unknown difficulties get Normal.
func DefaultBot(d BotDifficulty) BotConfig {
	b, ok := botDifficulties[d]
	if !ok {
		b = botDifficulties[BotDifficultyNormal]
	}
	b.Seed = 1
	return b
}

func (b BotConfig) validate() error {
	switch {
	case b.ChangeInterval < 1:
		return fmt.Errorf("%w: bot change_interval must be positive", ErrInvalidConfig)
	case b.SprintChance < 0 || b.SprintChance > 1 || b.JumpChance < 0 || b.JumpChance > 1:
		return fmt.Errorf("%w: bot chances must be within 0..1", ErrInvalidConfig)
	case b.Ticks < 0:
		return fmt.Errorf("%w: bot ticks must not be negative", ErrInvalidConfig)
	}
	return nil
}
