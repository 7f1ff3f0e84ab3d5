package scenes

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/automoto/physnet/master"
	"github.com/automoto/physnet/shared/logging"
	"github.com/automoto/physnet/shared/protocol"
)

var ErrNoServer = errors.New("no compatible server with a free slot")

// ServerBrowser lists the servers known to a master server. Refresh fetches
// in the background; Poll applies the result on the caller's goroutine.
type ServerBrowser struct {
	baseURL    string
	httpClient *http.Client
	log        logrus.FieldLogger

	mu             sync.Mutex
	fetchedServers []master.ServerInfo
	fetchErr       error
	fetchDone      bool
	fetching       bool

	servers []master.ServerInfo
	err     error
}

func NewServerBrowser(baseURL string, log logrus.FieldLogger) *ServerBrowser {
	return &ServerBrowser{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		log:        logging.Component(log, "browser"),
	}
}

// Fetch queries the master synchronously and replaces the current list.
func (b *ServerBrowser) Fetch(ctx context.Context) error {
	servers, err := master.FetchServers(ctx, b.httpClient, b.baseURL)
	b.servers, b.err = servers, err
	if err != nil {
		b.log.WithError(err).Warn("master server query failed")
	}
	return err
}

// Refresh starts a background query unless one is in flight.
func (b *ServerBrowser) Refresh() {
	b.mu.Lock()
	if b.fetching {
		b.mu.Unlock()
		return
	}
	b.fetching = true
	b.mu.Unlock()

	go b.queryMasterServer()
}

func (b *ServerBrowser) queryMasterServer() {
	ctx, cancel := context.WithTimeout(context.Background(), b.httpClient.Timeout)
	defer cancel()
	servers, err := master.FetchServers(ctx, b.httpClient, b.baseURL)
	if err != nil {
		b.log.WithError(err).Warn("master server query failed")
	}

	b.mu.Lock()
	b.fetchedServers, b.fetchErr = servers, err
	b.fetchDone = true
	b.fetching = false
	b.mu.Unlock()
}

// Poll applies a finished background query. It reports whether the list
// changed.
func (b *ServerBrowser) Poll() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.fetchDone {
		return false
	}
	b.servers, b.err = b.fetchedServers, b.fetchErr
	b.fetchedServers, b.fetchErr = nil, nil
	b.fetchDone = false
	return true
}

// Servers returns the last fetched list.
func (b *ServerBrowser) Servers() []master.ServerInfo { return b.servers }

// Err returns the error of the last fetch.
func (b *ServerBrowser) Err() error { return b.err }

// Pick returns the least populated server that speaks our protocol and has a
// free slot.
func (b *ServerBrowser) Pick() (master.ServerInfo, error) {
	version := protocol.VersionString()
	var best master.ServerInfo
	found := false
	for _, s := range b.servers {
		if s.Version != version || s.Players >= s.MaxPlayers {
			continue
		}
		if !found || s.Players < best.Players {
			best, found = s, true
		}
	}
	if !found {
		return master.ServerInfo{}, ErrNoServer
	}
	return best, nil
}
