package assets

import "testing"

func TestEmbeddedScenes(t *testing.T) {
	scenes, names, err := LoadScenes()
	if err != nil {
		t.Fatalf("LoadScenes: %v", err)
	}
	if len(names) != 2 || names[0] != "arena" || names[1] != "warehouse" {
		t.Fatalf("names = %v", names)
	}
	arena, ok := scenes[DefaultScene]
	if !ok {
		t.Fatal("default scene missing")
	}
	if len(arena.Props) != 5 || len(arena.Walls) == 0 {
		t.Fatalf("arena has %d props and %d walls", len(arena.Props), len(arena.Walls))
	}
	if len(arena.Spawns) < 4 {
		t.Fatalf("arena has %d spawns", len(arena.Spawns))
	}
}
