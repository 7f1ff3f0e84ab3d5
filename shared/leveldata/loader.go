package leveldata

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lafriks/go-tiled"
)

// Layer and object group names read from a scene.
const (
	LayerWalls       = "walls"
	GroupProps       = "Props"
	GroupPlayerSpawn = "PlayerSpawn"
)

const (
	defaultPropHeight = 1
	defaultPropMass   = 1
)

var ErrNoScenes = errors.New("no scenes found")

// LoadScene parses a TMX file. It takes an fs.FS so callers can pass the
// embedded assets or os.DirFS.
func LoadScene(fsys fs.FS, tmxPath string) (*Scene, error) {
	m, err := tiled.LoadFile(tmxPath, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("load TMX %s: %w", tmxPath, err)
	}
	if m.TileWidth <= 0 || m.TileHeight <= 0 {
		return nil, fmt.Errorf("load TMX %s: invalid tile size %dx%d", tmxPath, m.TileWidth, m.TileHeight)
	}

	scene := &Scene{
		Name:  strings.TrimSuffix(filepath.Base(tmxPath), ".tmx"),
		Width: m.Width,
		Depth: m.Height,
	}
	tileW := float32(m.TileWidth)
	tileH := float32(m.TileHeight)

	// Walls: each row's runs of solid tiles become one box.
	for _, layer := range m.Layers {
		if layer.Name != LayerWalls {
			continue
		}
		for z := 0; z < m.Height; z++ {
			start := -1
			for x := 0; x <= m.Width; x++ {
				solid := x < m.Width && !layer.Tiles[z*m.Width+x].IsNil()
				switch {
				case solid && start < 0:
					start = x
				case !solid && start >= 0:
					scene.Walls = append(scene.Walls, Wall{
						MinX: float32(start), MinZ: float32(z),
						MaxX: float32(x), MaxZ: float32(z + 1),
					})
					start = -1
				}
			}
		}
		break
	}

	for _, og := range m.ObjectGroups {
		switch og.Name {
		case GroupProps:
			for _, o := range og.Objects {
				height := float32(o.Properties.GetFloat("height"))
				if height <= 0 {
					height = defaultPropHeight
				}
				mass := float32(o.Properties.GetFloat("mass"))
				if mass <= 0 {
					mass = defaultPropMass
				}
				w := float32(o.Width) / tileW
				d := float32(o.Height) / tileH
				scene.Props = append(scene.Props, Prop{
					Name: o.Name,
					Position: mgl32.Vec3{
						float32(o.X)/tileW + w/2,
						height / 2,
						float32(o.Y)/tileH + d/2,
					},
					HalfExtents: mgl32.Vec3{w / 2, height / 2, d / 2},
					Mass:        mass,
				})
			}
		case GroupPlayerSpawn:
			for _, o := range og.Objects {
				scene.Spawns = append(scene.Spawns, SpawnPoint{
					X:     float32(o.X) / tileW,
					Z:     float32(o.Y) / tileH,
					Index: o.Properties.GetInt("spawnIndex"),
				})
			}
		}
	}

	// Sort spawns by index for consistent assignment
	sort.SliceStable(scene.Spawns, func(i, j int) bool {
		return scene.Spawns[i].Index < scene.Spawns[j].Index
	})

	return scene, nil
}

// LoadAllScenes discovers all .tmx files in dir within fsys and returns them
// keyed by stem name plus a sorted list of names.
func LoadAllScenes(fsys fs.FS, dir string) (map[string]*Scene, []string, error) {
	pattern := dir + "/*.tmx"
	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, nil, fmt.Errorf("%w in %s", ErrNoScenes, dir)
	}

	scenes := make(map[string]*Scene, len(matches))
	names := make([]string, 0, len(matches))
	for _, path := range matches {
		scene, err := LoadScene(fsys, path)
		if err != nil {
			return nil, nil, err
		}
		scenes[scene.Name] = scene
		names = append(names, scene.Name)
	}

	sort.Strings(names)
	return scenes, names, nil
}
