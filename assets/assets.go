// Package assets embeds the scenes shipped with both binaries.
package assets

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/automoto/physnet/shared/leveldata"
)

// ScenesDir is the directory of the embedded scenes.
const ScenesDir = "scenes"

// DefaultScene is the scene a server starts with when none is configured.
const DefaultScene = "arena"

//go:embed scenes/*.tmx
var sceneFS embed.FS

// FS returns the embedded asset filesystem.
func FS() fs.FS { return sceneFS }

// LoadScenes loads every embedded scene.
func LoadScenes() (map[string]*leveldata.Scene, []string, error) {
	scenes, names, err := leveldata.LoadAllScenes(sceneFS, ScenesDir)
	if err != nil {
		return nil, nil, fmt.Errorf("load embedded scenes: %w", err)
	}
	return scenes, names, nil
}
