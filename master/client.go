package master

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// FetchServers lists the servers registered at the master at baseURL.
func FetchServers(ctx context.Context, client *http.Client, baseURL string) ([]ServerInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/servers", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get servers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	var servers []ServerInfo
	if err := json.NewDecoder(resp.Body).Decode(&servers); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return servers, nil
}
