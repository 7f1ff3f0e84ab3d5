package systems

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"

	"github.com/automoto/physnet/shared/messages"
	"github.com/automoto/physnet/shared/physics"
)

func TestErrorHistory(t *testing.T) {
	var h ErrorHistory
	if _, ok := h.Latest(); ok {
		t.Fatal("empty history has a latest sample")
	}
	if h.Mean() != 0 || h.Max() != 0 {
		t.Fatal("empty history must report zero")
	}
	for i := 0; i < ErrorHistorySize+2; i++ {
		h.Add(float32(i))
	}
	if h.Len() != ErrorHistorySize {
		t.Fatalf("Len = %d, want %d", h.Len(), ErrorHistorySize)
	}
	if l, _ := h.Latest(); l != float32(ErrorHistorySize+1) {
		t.Errorf("Latest = %v", l)
	}
	s := h.Samples()
	if s[0] != 2 || s[len(s)-1] != float32(ErrorHistorySize+1) {
		t.Errorf("samples not oldest first: first %v last %v", s[0], s[len(s)-1])
	}
	if h.Max() != float32(ErrorHistorySize+1) {
		t.Errorf("Max = %v", h.Max())
	}
	// Mean of 2..129.
	if m := h.Mean(); m != 65.5 {
		t.Errorf("Mean = %v, want 65.5", m)
	}
}

func TestReconcileWithoutError(t *testing.T) {
	p := NewNetPrediction(0, 0.01)
	p.Record(5, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{}, mgl32.Vec3{})

	c := p.Reconcile(messages.PlayerPosition{
		ID:         0,
		Pos:        mgl32.Vec3{0, 1, 0},
		Rot:        mgl32.QuatIdent(),
		InputIndex: 5,
	})
	if c.Position != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("reconciled position = %v, want (0,1,0)", c.Position)
	}
	if !c.Matched || c.Error != 0 || c.Replayed != 0 {
		t.Errorf("correction = %+v", c)
	}
	if l, ok := p.Errors.Latest(); !ok || l != 0 {
		t.Errorf("error sample = %v, %v", l, ok)
	}
}

func TestReconcileLookupMiss(t *testing.T) {
	p := NewNetPrediction(0, 0.5)
	p.Record(8, mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{})
	p.Record(9, mgl32.Vec3{}, mgl32.Vec3{2, 0, 0}, mgl32.Vec3{})

	// Index 7 was never recorded: the snapshot is applied and 8 and 9 replayed.
	c := p.Reconcile(messages.PlayerPosition{
		Pos:        mgl32.Vec3{10, 0, 0},
		LinVel:     mgl32.Vec3{2, 0, 0},
		InputIndex: 7,
	})
	if c.Matched {
		t.Error("miss reported as matched")
	}
	if p.Errors.Len() != 0 {
		t.Error("a miss must not record an error sample")
	}
	if c.Replayed != 2 {
		t.Fatalf("replayed %d, want 2", c.Replayed)
	}
	// pos 10 -> 11 (v=2) -> v=3 -> 12.5 (v=3) -> v=4
	if !c.Position.ApproxEqual(mgl32.Vec3{12.5, 0, 0}) {
		t.Errorf("position = %v, want (12.5,0,0)", c.Position)
	}
	if !c.LinearVelocity.ApproxEqual(mgl32.Vec3{4, 0, 0}) {
		t.Errorf("velocity = %v, want (4,0,0)", c.LinearVelocity)
	}
}

func TestReconcilePrunes(t *testing.T) {
	p := NewNetPrediction(0, 0.01)
	for i := messages.InputIndex(1); i <= 10; i++ {
		p.Record(i, mgl32.Vec3{float32(i), 0, 0}, mgl32.Vec3{}, mgl32.Vec3{})
	}
	c := p.Reconcile(messages.PlayerPosition{Pos: mgl32.Vec3{6.5, 0, 0}, InputIndex: 6})
	if !c.Matched || c.Error != 0.5 {
		t.Errorf("error = %v matched %v, want 0.5", c.Error, c.Matched)
	}
	idx := p.Buffer.Indices()
	if len(idx) != 5 || idx[0] != 6 {
		t.Errorf("retained %v, want 6..10", idx)
	}
	if c.Replayed != 4 {
		t.Errorf("replayed %d, want 4", c.Replayed)
	}
}

// A prediction that matches the server exactly must reconcile to the current
// predicted position.
func TestReconcileConvergesOnMatchingTrajectory(t *testing.T) {
	const dt = 0.01
	w := physics.NewWorld(donburi.NewWorld(), 20, 20, physics.DefaultParams())
	e := w.CreateBody(physics.BodyDesc{
		Position:    mgl32.Vec3{5, 0.4, 5},
		HalfExtents: mgl32.Vec3{0.4, 0.4, 0.4},
		Mass:        70,
		Dynamic:     true,
		Components:  []donburi.IComponentType{physics.Controller},
	})

	p := NewNetPrediction(0, dt)
	type state struct{ pos, lin, ang mgl32.Vec3 }
	history := map[messages.InputIndex]state{}
	for i := messages.InputIndex(1); i <= 30; i++ {
		move := mgl32.Vec2{1, 0.5}
		if i > 20 {
			move = mgl32.Vec2{0, -1}
		}
		w.SetIntent(e, physics.ControllerData{Move: move, Sprint: i%2 == 0})
		w.Step(dt)
		v := w.Velocity(e)
		pos := w.Pose(e).Position
		p.Record(i, pos, v.Linear, v.Angular)
		history[i] = state{pos, v.Linear, v.Angular}
	}

	snap := history[10]
	c := p.Reconcile(messages.PlayerPosition{
		Pos:        snap.pos,
		Rot:        mgl32.QuatIdent(),
		LinVel:     snap.lin,
		AngVel:     snap.ang,
		InputIndex: 10,
	})
	if c.Replayed != 20 {
		t.Fatalf("replayed %d, want 20", c.Replayed)
	}
	if want := history[30].pos; !c.Position.ApproxEqualThreshold(want, 1e-4) {
		t.Errorf("reconciled to %v, want %v", c.Position, want)
	}
	if want := history[30].lin; !c.LinearVelocity.ApproxEqualThreshold(want, 1e-4) {
		t.Errorf("velocity %v, want %v", c.LinearVelocity, want)
	}
	if !c.Matched || c.Error != 0 {
		t.Errorf("expected an exact match, got error %v", c.Error)
	}
}

func TestResetClearsHistory(t *testing.T) {
	p := NewNetPrediction(0, 0)
	if p.Timestep <= 0 {
		t.Fatal("zero timestep not replaced by the default")
	}
	p.Record(3, mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{})
	p.Reset()
	if p.Buffer.Len() != 0 {
		t.Fatal("history survived Reset")
	}
	// After a reset the delta is measured from rest again.
	p.Record(1, mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{})
	st, _ := p.Buffer.Lookup(1)
	if st.DeltaVelocity != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("delta = %v", st.DeltaVelocity)
	}
}
