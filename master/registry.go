// Package master is the server list: game servers register and heartbeat,
// clients list them to find one to join.
package master

import (
	"sort"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"

	"github.com/automoto/physnet/shared/logging"
)

// ServerInfo describes a game server visible to clients.
type ServerInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Version    string `json:"version"`
	Region     string `json:"region"`
}

type serverRecord struct {
	ServerInfo
	LastSeen time.Time
}

// Registry is an in-memory store of active game servers. Servers that miss
// heartbeats for longer than the TTL expire.
type Registry struct {
	mu      sync.RWMutex
	servers map[string]*serverRecord
	ttl     time.Duration
	log     logrus.FieldLogger
	now     func() time.Time
	stopCh  chan struct{}
}

func NewRegistry(ttl time.Duration, log logrus.FieldLogger) *Registry {
	return &Registry{
		servers: make(map[string]*serverRecord),
		ttl:     ttl,
		log:     logging.Component(log, "master"),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// Run expires stale servers every interval until Stop.
func (r *Registry) Run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.Expire()
		}
	}
}

func (r *Registry) Stop() {
	close(r.stopCh)
}

// Register stores info under a fresh id and returns the id.
func (r *Registry) Register(info ServerInfo) string {
	info.ID = ksuid.New().String()

	r.mu.Lock()
	r.servers[info.ID] = &serverRecord{
		ServerInfo: info,
		LastSeen:   r.now(),
	}
	r.mu.Unlock()

	return info.ID
}

// Heartbeat refreshes a server. It returns false for unknown ids.
func (r *Registry) Heartbeat(id string, players int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.servers[id]
	if !ok {
		return false
	}
	rec.LastSeen = r.now()
	rec.Players = players
	return true
}

// List returns the registered servers ordered by id, newest first to the
// second.
func (r *Registry) List() []ServerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ServerInfo, 0, len(r.servers))
	for _, rec := range r.servers {
		result = append(result, rec.ServerInfo)
	}
	// ksuids sort by creation time.
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result
}

// Expire drops every server not seen within the TTL.
func (r *Registry) Expire() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	expired := 0
	for id, rec := range r.servers {
		if since := now.Sub(rec.LastSeen); since >= r.ttl {
			r.log.WithFields(logrus.Fields{
				"id":       id,
				"name":     rec.Name,
				"lastSeen": since.Round(time.Second),
			}).Info("expired server")
			delete(r.servers, id)
			expired++
		}
	}
	return expired
}
