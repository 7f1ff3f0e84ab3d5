// Package leveldata parses TMX scenes shared between client and server.
// One tile is one meter; the map's Y axis is the world's Z axis.
// It has no dependencies on donburi or resolv, pure data only.
package leveldata

import "github.com/go-gl/mathgl/mgl32"

// Scene is everything a world needs to start a scene.
type Scene struct {
	Name   string
	Width  int // meters along X
	Depth  int // meters along Z
	Walls  []Wall
	Props  []Prop
	Spawns []SpawnPoint
}

// Wall is a static box standing on the ground, given by its XZ footprint.
type Wall struct {
	MinX, MinZ, MaxX, MaxZ float32
}

// Center returns the center of the wall footprint.
func (w Wall) Center() mgl32.Vec2 {
	return mgl32.Vec2{(w.MinX + w.MaxX) / 2, (w.MinZ + w.MaxZ) / 2}
}

// HalfExtents returns the half extents of a wall of the given height.
func (w Wall) HalfExtents(height float32) mgl32.Vec3 {
	return mgl32.Vec3{(w.MaxX - w.MinX) / 2, height / 2, (w.MaxZ - w.MinZ) / 2}
}

// Prop is a dynamic body resting on the ground when the scene starts.
type Prop struct {
	Name        string
	Position    mgl32.Vec3 // center
	HalfExtents mgl32.Vec3
	Mass        float32
}

// SpawnPoint is a player spawn location on the ground.
type SpawnPoint struct {
	X, Z  float32
	Index int
}
