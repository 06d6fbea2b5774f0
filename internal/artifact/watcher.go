package artifact

import (
	"reflect"

	"github.com/studyfold/studyspace-backend/internal/platform/logger"
	"github.com/studyfold/studyspace-backend/internal/types"
)

type State string

const (
	StatePending State = "pending"
	StateReady   State = "ready"
)

// Watcher tracks one artifact kind of one learning space from the viewer's
// perspective: pending until a snapshot shows a populated, valid slot, ready
// afterwards. Ready is sticky; a later snapshot with a nulled or malformed
// slot never demotes the watcher, it only fails to update the value.
//
// Watchers are view-scoped, not shared: every mounted consumer builds its
// own from the snapshot it fetched at mount time, then feeds it every event
// from its (spaceID, kind) feed subscription. Not safe for concurrent use.
type Watcher struct {
	kind  Kind
	state State
	value *Value
	log   *logger.Logger
}

// NewWatcher derives the initial state from a mount-time snapshot. A
// malformed slot in the snapshot logs loudly and starts the watcher in
// pending, matching the "still generating" fallback the viewer shows.
func NewWatcher(log *logger.Logger, kind Kind, snapshot *types.LearningSpace) *Watcher {
	w := &Watcher{
		kind:  kind,
		state: StatePending,
		log:   log.With("component", "ArtifactWatcher", "kind", string(kind)),
	}
	val, err := Decode(kind, snapshot)
	if err != nil {
		w.log.Error("malformed artifact slot in mount snapshot; staying pending", "error", err)
		return w
	}
	if val != nil {
		w.state = StateReady
		w.value = val
	}
	return w
}

// Apply feeds one change-feed snapshot to the watcher. It returns true when
// the event changed the observable state or value. A populated slot that
// fails validation returns the decode error and leaves the watcher as-is.
func (w *Watcher) Apply(snapshot *types.LearningSpace) (bool, error) {
	val, err := Decode(w.kind, snapshot)
	if err != nil {
		return false, err
	}
	if val == nil {
		// Slot still (or again) null. Ready never reverts to pending.
		return false, nil
	}
	if w.kind == KindAudioOverview && w.state == StateReady && val.AudioVersion <= w.value.AudioVersion {
		// Stale write from the slower of the two audio paths.
		return false, nil
	}
	changed := w.state != StateReady || !reflect.DeepEqual(val, w.value)
	w.state = StateReady
	w.value = val
	return changed, nil
}

func (w *Watcher) State() State { return w.state }

// Value returns the artifact payload, or nil while pending.
func (w *Watcher) Value() *Value { return w.value }
