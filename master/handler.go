package master

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/automoto/physnet/shared/netconfig"
)

type registerRequest struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Version    string `json:"version"`
	Region     string `json:"region"`
}

// validate checks what clients rely on when picking a server: a dialable
// address, a slot count a server can run, and a protocol version they can
// compare against their own.
func (req registerRequest) validate() error {
	switch {
	case req.Name == "" || req.Address == "":
		return errors.New("name and address required")
	case req.MaxPlayers < 1 || req.MaxPlayers > netconfig.MaxSlotTable:
		return fmt.Errorf("maxPlayers must be within 1..%d", netconfig.MaxSlotTable)
	case req.Players < 0 || req.Players > req.MaxPlayers:
		return errors.New("players must be within 0..maxPlayers")
	}
	if _, _, err := net.SplitHostPort(req.Address); err != nil {
		return fmt.Errorf("address: %w", err)
	}
	if _, err := parseVersion(req.Version); err != nil {
		return err
	}
	return nil
}

// parseVersion reads a protocol version as listed by game servers: the
// 64-bit hash in hex.
func parseVersion(v string) (uint64, error) {
	n, err := strconv.ParseUint(v, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("version %q is not a hex protocol version", v)
	}
	return n, nil
}

type registerResponse struct {
	ID string `json:"id"`
}

type heartbeatRequest struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
}

const maxRequestBody = 1 << 16 // 64 KB

// NewHandler serves the registry over HTTP.
func NewHandler(reg *Registry) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /servers", listServers(reg))
	mux.HandleFunc("POST /servers/register", registerServer(reg))
	mux.HandleFunc("POST /servers/heartbeat", heartbeat(reg))
	mux.HandleFunc("GET /health", health())
	return mux
}

// listServers answers with every registered server, or with those speaking
// the protocol version given in ?version=.
func listServers(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		servers := reg.List()
		if v := r.URL.Query().Get("version"); v != "" {
			want, err := parseVersion(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			servers = filterVersion(servers, want)
		}
		if err := json.NewEncoder(w).Encode(servers); err != nil {
			reg.log.WithError(err).Warn("list encode error")
		}
	}
}

func registerServer(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
			return
		}
		if err := req.validate(); err != nil {
			reg.log.WithError(err).WithField("address", req.Address).Warn("rejected registration")
			writeError(w, http.StatusBadRequest, err)
			return
		}

		id := reg.Register(ServerInfo{
			Name:       req.Name,
			Address:    req.Address,
			Players:    req.Players,
			MaxPlayers: req.MaxPlayers,
			Version:    req.Version,
			Region:     req.Region,
		})
		reg.log.WithFields(logrus.Fields{"id": id, "name": req.Name, "address": req.Address}).Info("registered server")

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(registerResponse{ID: id})
	}
}

func heartbeat(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		var req heartbeatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
			return
		}

		if req.Players < 0 {
			writeError(w, http.StatusBadRequest, errors.New("players must not be negative"))
			return
		}
		if !reg.Heartbeat(req.ID, req.Players) {
			http.Error(w, `{"error":"unknown server"}`, http.StatusNotFound)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

func health() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

func filterVersion(servers []ServerInfo, want uint64) []ServerInfo {
	out := servers[:0]
	for _, s := range servers {
		if v, err := parseVersion(s.Version); err == nil && v == want {
			out = append(out, s)
		}
	}
	return out
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
