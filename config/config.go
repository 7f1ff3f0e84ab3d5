// Package config holds the settings of the server and client binaries. Values
// start from Default, are overridden by an optional TOML file and then by
// command line flags.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/automoto/physnet/assets"
	"github.com/automoto/physnet/network"
	"github.com/automoto/physnet/shared/netconfig"
	"github.com/automoto/physnet/shared/physics"
)

// Transport names accepted by the Transport fields.
const (
	TransportRakNet    = network.TransportRakNet
	TransportWebSocket = network.TransportWebSocket
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Log     LogConfig      `toml:"log"`
	Server  ServerConfig   `toml:"server"`
	Client  ClientConfig   `toml:"client"`
	Physics physics.Params `toml:"physics"`
	Bot     BotConfig      `toml:"bot"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type ServerConfig struct {
	Address    string `toml:"address"`
	Transport  string `toml:"transport"`
	MaxPlayers int    `toml:"max_players"`
	TickRate   int    `toml:"tick_rate"`
	// SendRate is the number of ticks between two world broadcasts; 0
	// broadcasts every tick.
	SendRate int    `toml:"send_rate"`
	Scene    string `toml:"scene"`
	// StatsAddress serves runtime charts when set, e.g. "localhost:18066".
	StatsAddress string `toml:"stats_address"`
	SentryDSN    string `toml:"sentry_dsn"`
	// RequireVersion rejects clients whose protocol fingerprint differs.
	RequireVersion bool `toml:"require_version"`

	Registration RegistrationConfig `toml:"registration"`
}

// RegistrationConfig announces the server to a server list. It is disabled
// when MasterURL is empty.
type RegistrationConfig struct {
	MasterURL        string `toml:"master_url"`
	Name             string `toml:"name"`
	PublicAddress    string `toml:"public_address"`
	Region           string `toml:"region"`
	HeartbeatSeconds int    `toml:"heartbeat_seconds"`
}

type ClientConfig struct {
	Address      string `toml:"address"`
	Transport    string `toml:"transport"`
	TickRate     int    `toml:"tick_rate"`
	HistoryLimit int    `toml:"history_limit"`
	AuthID       uint64 `toml:"auth_id"`
	AuthUniverse uint16 `toml:"auth_universe"`
	// MaxPlayers bounds the remote player ids the client accepts. Zero accepts
	// any id a server can assign.
	MaxPlayers int `toml:"max_players"`
}

func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Server: ServerConfig{
			Address:        fmt.Sprintf(":%d", netconfig.DefaultPort),
			Transport:      TransportRakNet,
			MaxPlayers:     netconfig.MaxPlayers,
			TickRate:       netconfig.TickRate,
			SendRate:       netconfig.DefaultSendRate,
			Scene:          assets.DefaultScene,
			RequireVersion: true,
			Registration: RegistrationConfig{
				Name:             "physnet server",
				HeartbeatSeconds: 30,
			},
		},
		Client: ClientConfig{
			Address:      fmt.Sprintf("127.0.0.1:%d", netconfig.DefaultPort),
			Transport:    TransportRakNet,
			TickRate:     netconfig.TickRate,
			HistoryLimit: 1024,
		},
		Physics: physics.DefaultParams(),
		Bot:     DefaultBot(BotDifficultyNormal),
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// WriteDefault creates path holding the default config. It fails if the file
// already exists.
func WriteDefault(path string) error {
	data, err := toml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write config: %w", err)
	}
	return f.Close()
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	switch {
	case c.Server.MaxPlayers < 1 || c.Server.MaxPlayers > netconfig.MaxSlotTable:
		return fmt.Errorf("%w: max_players %d outside 1..%d", ErrInvalidConfig, c.Server.MaxPlayers, netconfig.MaxSlotTable)
	case c.Client.MaxPlayers < 0 || c.Client.MaxPlayers > netconfig.MaxSlotTable:
		return fmt.Errorf("%w: client max_players %d outside 0..%d", ErrInvalidConfig, c.Client.MaxPlayers, netconfig.MaxSlotTable)
	case c.Server.TickRate < 1 || c.Client.TickRate < 1:
		return fmt.Errorf("%w: tick_rate must be positive", ErrInvalidConfig)
	case c.Server.SendRate < 0:
		return fmt.Errorf("%w: send_rate must not be negative", ErrInvalidConfig)
	case c.Client.HistoryLimit < 1:
		return fmt.Errorf("%w: history_limit must be positive", ErrInvalidConfig)
	case c.Server.Registration.MasterURL != "" && c.Server.Registration.HeartbeatSeconds < 1:
		return fmt.Errorf("%w: heartbeat_seconds must be positive", ErrInvalidConfig)
	}
	for _, t := range []string{c.Server.Transport, c.Client.Transport} {
		if t != TransportRakNet && t != TransportWebSocket {
			return fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, t)
		}
	}
	return c.Bot.validate()
}
