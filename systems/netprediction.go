package systems

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/automoto/physnet/network"
	"github.com/automoto/physnet/shared/messages"
	"github.com/automoto/physnet/shared/netconfig"
)

// ErrorHistorySize is the number of prediction error samples kept for
// diagnostics.
const ErrorHistorySize = 128

// ErrorHistory is a circular buffer of prediction errors in meters.
type ErrorHistory struct {
	samples [ErrorHistorySize]float32
	next    int
	count   int
}

// Add records one sample, overwriting the oldest once full.
func (h *ErrorHistory) Add(e float32) {
	h.samples[h.next] = e
	h.next = (h.next + 1) % ErrorHistorySize
	if h.count < ErrorHistorySize {
		h.count++
	}
}

func (h *ErrorHistory) Len() int { return h.count }

// Latest returns the most recent sample.
func (h *ErrorHistory) Latest() (float32, bool) {
	if h.count == 0 {
		return 0, false
	}
	return h.samples[(h.next+ErrorHistorySize-1)%ErrorHistorySize], true
}

func (h *ErrorHistory) Mean() float32 {
	if h.count == 0 {
		return 0
	}
	var sum float32
	for _, s := range h.Samples() {
		sum += s
	}
	return sum / float32(h.count)
}

func (h *ErrorHistory) Max() float32 {
	var m float32
	for _, s := range h.Samples() {
		if s > m {
			m = s
		}
	}
	return m
}

// Samples returns the retained samples, oldest first.
func (h *ErrorHistory) Samples() []float32 {
	out := make([]float32, 0, h.count)
	start := (h.next - h.count + ErrorHistorySize) % ErrorHistorySize
	for i := 0; i < h.count; i++ {
		out = append(out, h.samples[(start+i)%ErrorHistorySize])
	}
	return out
}

// Correction is the state the local body is teleported to after a snapshot.
type Correction struct {
	Position        mgl32.Vec3
	Rotation        mgl32.Quat
	LinearVelocity  mgl32.Vec3
	AngularVelocity mgl32.Vec3
	// Replayed is the number of unacknowledged predictions applied on top of
	// the snapshot.
	Replayed int
	// Matched is set when a prediction for the snapshot's input was retained.
	Matched bool
	Error   float32
}

// NetPrediction owns client-side prediction state for the local player.
type NetPrediction struct {
	Buffer *network.PredictionBuffer
	Errors ErrorHistory

	// Timestep is the nominal tick length used when replaying history.
	Timestep float32

	prevVelocity mgl32.Vec3
}

// NewNetPrediction creates a prediction system keeping at most historyLimit
// unacknowledged states.
func NewNetPrediction(historyLimit int, timestep float32) *NetPrediction {
	if timestep <= 0 {
		timestep = netconfig.FixedTimestep
	}
	return &NetPrediction{
		Buffer:   network.NewPredictionBuffer(historyLimit),
		Timestep: timestep,
	}
}

// Record stores the predicted state of the local body after the tick that
// applied input index. The velocity change since the previous record is
// stored alongside for replay.
func (p *NetPrediction) Record(index messages.InputIndex, pos, linear, angular mgl32.Vec3) bool {
	delta := linear.Sub(p.prevVelocity)
	p.prevVelocity = linear
	return p.Buffer.Record(network.PredictedState{
		Position:        pos,
		LinearVelocity:  linear,
		AngularVelocity: angular,
		DeltaVelocity:   delta,
		InputIndex:      index,
	})
}

// Reconcile corrects the local prediction with an authoritative snapshot of
// the local body. The snapshot is the base; the inputs the server has not
// acknowledged yet are replayed on top of it.
func (p *NetPrediction) Reconcile(snap messages.PlayerPosition) Correction {
	c := Correction{
		Position:        snap.Pos,
		Rotation:        snap.Rot,
		LinearVelocity:  snap.LinVel,
		AngularVelocity: snap.AngVel,
	}
	if e, ok := p.Buffer.PredictionError(snap.InputIndex, snap.Pos); ok {
		p.Errors.Add(e)
		c.Matched, c.Error = true, e
	}
	p.Buffer.PruneOlderThan(snap.InputIndex)

	for _, st := range p.Buffer.After(snap.InputIndex) {
		c.Position = c.Position.Add(c.LinearVelocity.Mul(p.Timestep))
		c.LinearVelocity = c.LinearVelocity.Add(st.DeltaVelocity)
		c.AngularVelocity = st.AngularVelocity
		c.Replayed++
	}
	p.prevVelocity = c.LinearVelocity
	return c
}

// Reset forgets all history, e.g. when the local body is respawned.
func (p *NetPrediction) Reset() {
	p.Buffer.Clear()
	p.prevVelocity = mgl32.Vec3{}
}
