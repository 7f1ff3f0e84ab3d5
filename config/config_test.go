package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/automoto/physnet/shared/netconfig"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.MaxPlayers != netconfig.MaxPlayers {
		t.Errorf("max players = %d, want default", c.Server.MaxPlayers)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "physnet.toml")
	data := `
[server]
max_players = 8
send_rate = 3
transport = "websocket"

[physics]
gravity = 20.0
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.MaxPlayers != 8 || c.Server.SendRate != 3 || c.Server.Transport != TransportWebSocket {
		t.Errorf("server section not applied: %+v", c.Server)
	}
	if c.Physics.Gravity != 20 {
		t.Errorf("gravity = %v, want 20", c.Physics.Gravity)
	}
	if c.Physics.JumpSpeed != Default().Physics.JumpSpeed {
		t.Errorf("unset physics values must keep their defaults")
	}
	if c.Server.TickRate != netconfig.TickRate {
		t.Errorf("tick rate = %d, want default", c.Server.TickRate)
	}
}

func TestLoadBadToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[server\nmax_players = "), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "physnet.toml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c != Default() {
		t.Errorf("written defaults differ:\n got %+v\nwant %+v", c, Default())
	}
	if err := WriteDefault(path); err == nil {
		t.Error("WriteDefault overwrote an existing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero players", func(c *Config) { c.Server.MaxPlayers = 0 }},
		{"too many players", func(c *Config) { c.Server.MaxPlayers = netconfig.MaxSlotTable + 1 }},
		{"negative client player bound", func(c *Config) { c.Client.MaxPlayers = -1 }},
		{"client player bound beyond u8 ids", func(c *Config) { c.Client.MaxPlayers = 256 }},
		{"negative send rate", func(c *Config) { c.Server.SendRate = -1 }},
		{"zero tick rate", func(c *Config) { c.Client.TickRate = 0 }},
		{"zero history", func(c *Config) { c.Client.HistoryLimit = 0 }},
		{"unknown transport", func(c *Config) { c.Server.Transport = "carrier-pigeon" }},
		{"registration without heartbeat", func(c *Config) {
			c.Server.Registration.MasterURL = "http://localhost"
			c.Server.Registration.HeartbeatSeconds = 0
		}},
		{"bot chance", func(c *Config) { c.Bot.JumpChance = 2 }},
		{"bot interval", func(c *Config) { c.Bot.ChangeInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestDefaultBot(t *testing.T) {
	easy, hard := DefaultBot(BotDifficultyEasy), DefaultBot(BotDifficultyHard)
	if easy.ChangeInterval <= hard.ChangeInterval {
		t.Errorf("easy bots must change direction less often than hard ones")
	}
	if DefaultBot(BotDifficulty(42)) != DefaultBot(BotDifficultyNormal) {
		t.Errorf("unknown difficulty must fall back to normal")
	}
}

func TestParseBotDifficulty(t *testing.T) {
	tests := []struct {
		in   string
		want BotDifficulty
	}{
		{"easy", BotDifficultyEasy},
		{"Normal", BotDifficultyNormal},
		{"HARD", BotDifficultyHard},
	}
	for _, tt := range tests {
		got, err := ParseBotDifficulty(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseBotDifficulty(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseBotDifficulty("insane"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("ParseBotDifficulty(insane) = %v, want ErrInvalidConfig", err)
	}
}

func TestValidateLimits(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"largest slot table", func(c *Config) { c.Server.MaxPlayers = 255 }},
		{"single slot", func(c *Config) { c.Server.MaxPlayers = 1 }},
		{"send every tick", func(c *Config) { c.Server.SendRate = 0 }},
		{"unbounded client ids", func(c *Config) { c.Client.MaxPlayers = 0 }},
		{"client bound 40", func(c *Config) { c.Client.MaxPlayers = 40 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(&c)
			if err := c.Validate(); err != nil {
				t.Errorf("Validate = %v, want nil", err)
			}
		})
	}
}
