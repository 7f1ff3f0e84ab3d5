package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/automoto/physnet/shared/logging"
	"github.com/automoto/physnet/shared/protocol"
)

// PlayerCounter reports the current number of joined players.
type PlayerCounter interface {
	PlayerCount() int
}

// RegistrationConfig describes how the server announces itself to a master
// server list.
type RegistrationConfig struct {
	MasterURL  string
	Name       string
	Address    string
	Region     string
	MaxPlayers int
	Heartbeat  time.Duration
}

// Registration handles registering and heartbeating with the master server.
type Registration struct {
	cfg      RegistrationConfig
	log      logrus.FieldLogger
	mu       sync.Mutex
	serverID string
	players  PlayerCounter
	client   *http.Client
	stopCh   chan struct{}
	done     chan struct{}
}

type regRequest struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Version    string `json:"version"`
	Region     string `json:"region"`
}

type regResponse struct {
	ID string `json:"id"`
}

type heartbeatRequest struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
}

func NewRegistration(cfg RegistrationConfig, players PlayerCounter, log logrus.FieldLogger) *Registration {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 30 * time.Second
	}
	return &Registration{
		cfg:     cfg,
		log:     logging.Component(log, "registration"),
		players: players,
		client:  &http.Client{Timeout: 5 * time.Second},
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start registers once and keeps heartbeating until Stop.
func (r *Registration) Start() {
	if err := r.register(); err != nil {
		r.log.WithError(err).Warn("initial registration failed")
	}
	go r.heartbeatLoop()
}

func (r *Registration) Stop() {
	close(r.stopCh)
	<-r.done
}

// ServerID returns the id the master assigned, empty until registered.
func (r *Registration) ServerID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.serverID
}

func (r *Registration) register() error {
	body, err := json.Marshal(regRequest{
		Name:       r.cfg.Name,
		Address:    r.cfg.Address,
		Players:    r.players.PlayerCount(),
		MaxPlayers: r.cfg.MaxPlayers,
		Version:    protocol.VersionString(),
		Region:     r.cfg.Region,
	})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	resp, err := r.client.Post(r.cfg.MasterURL+"/servers/register", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result regResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	r.mu.Lock()
	r.serverID = result.ID
	r.mu.Unlock()
	r.log.WithField("id", result.ID).Info("registered with master")
	return nil
}

func (r *Registration) heartbeatLoop() {
	defer close(r.done)
	ticker := time.NewTicker(r.cfg.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			if err := r.sendHeartbeat(); err != nil {
				r.log.WithError(err).Warn("heartbeat failed")
			}
		}
	}
}

func (r *Registration) sendHeartbeat() error {
	id := r.ServerID()
	if id == "" {
		return r.register()
	}
	body, err := json.Marshal(heartbeatRequest{
		ID:      id,
		Players: r.players.PlayerCount(),
	})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	resp, err := r.client.Post(r.cfg.MasterURL+"/servers/heartbeat", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		r.log.Info("master lost our registration, re-registering")
		return r.register()
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}
