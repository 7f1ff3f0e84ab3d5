package network

import (
	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/automoto/physnet/shared/messages"
)

// DefaultHistoryLimit caps the prediction history if the server stops
// acknowledging inputs. At 100 ticks per second it covers ten seconds of
// round trip.
const DefaultHistoryLimit = 1024

// PredictedState is the locally simulated state of the controlled body right
// after applying one input.
type PredictedState struct {
	Position        mgl32.Vec3
	LinearVelocity  mgl32.Vec3
	AngularVelocity mgl32.Vec3
	// DeltaVelocity is the change in linear velocity during the tick that
	// produced this state.
	DeltaVelocity mgl32.Vec3
	InputIndex    messages.InputIndex
}

// PredictionBuffer stores predicted states keyed by input index, oldest first.
// Input indices are appended in increasing order, so the insertion order of
// the underlying map is also index order.
type PredictionBuffer struct {
	history  *orderedmap.OrderedMap[messages.InputIndex, PredictedState]
	limit    int
	last     messages.InputIndex
	recorded bool
}

// NewPredictionBuffer creates an empty buffer holding at most limit entries.
// A non-positive limit selects DefaultHistoryLimit.
func NewPredictionBuffer(limit int) *PredictionBuffer {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &PredictionBuffer{
		history: orderedmap.NewOrderedMap[messages.InputIndex, PredictedState](),
		limit:   limit,
	}
}

// Record appends a predicted state. A state whose index is not newer than the
// last recorded one is refused and Record returns false.
func (pb *PredictionBuffer) Record(state PredictedState) bool {
	if pb.recorded && state.InputIndex <= pb.last {
		return false
	}
	pb.history.Set(state.InputIndex, state)
	pb.last = state.InputIndex
	pb.recorded = true

	for pb.history.Len() > pb.limit {
		pb.history.Delete(pb.history.Front().Key)
	}
	return true
}

// Lookup returns the state recorded for index. A miss is normal: the entry
// may never have been recorded or may already be pruned.
func (pb *PredictionBuffer) Lookup(index messages.InputIndex) (PredictedState, bool) {
	return pb.history.Get(index)
}

// PruneOlderThan removes every entry with an index lower than index and
// returns how many were removed.
func (pb *PredictionBuffer) PruneOlderThan(index messages.InputIndex) int {
	removed := 0
	for el := pb.history.Front(); el != nil && el.Key < index; el = pb.history.Front() {
		pb.history.Delete(el.Key)
		removed++
	}
	return removed
}

// After returns the entries newer than index in increasing index order.
func (pb *PredictionBuffer) After(index messages.InputIndex) []PredictedState {
	var out []PredictedState
	for el := pb.history.Front(); el != nil; el = el.Next() {
		if el.Key > index {
			out = append(out, el.Value)
		}
	}
	return out
}

// Indices returns the retained input indices, oldest first.
func (pb *PredictionBuffer) Indices() []messages.InputIndex {
	return pb.history.Keys()
}

// Len returns the number of retained entries.
func (pb *PredictionBuffer) Len() int {
	return pb.history.Len()
}

// Clear drops all history, e.g. when the scene changes.
func (pb *PredictionBuffer) Clear() {
	pb.history = orderedmap.NewOrderedMap[messages.InputIndex, PredictedState]()
	pb.recorded = false
	pb.last = 0
}

// PredictionError returns the distance between the prediction for index and
// the authoritative position. ok is false if no prediction is retained.
func (pb *PredictionBuffer) PredictionError(index messages.InputIndex, authoritative mgl32.Vec3) (float32, bool) {
	state, ok := pb.Lookup(index)
	if !ok {
		return 0, false
	}
	return state.Position.Sub(authoritative).Len(), true
}
