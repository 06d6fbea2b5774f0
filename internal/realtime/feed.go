package realtime

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/studyfold/studyspace-backend/internal/artifact"
	"github.com/studyfold/studyspace-backend/internal/platform/logger"
	"github.com/studyfold/studyspace-backend/internal/types"
)

// Feed is the typed, in-process face of the change feed: one subscription
// per (learning space, artifact kind), delivering full row snapshots. It
// only sees mutations published while subscribed; consumers seed their
// initial state from the snapshot they fetched at mount time.
type Feed struct {
	hub *Hub
	log *logger.Logger
}

func NewFeed(hub *Hub, log *logger.Logger) *Feed {
	return &Feed{
		hub: hub,
		log: log.With("component", "ArtifactFeed"),
	}
}

// Subscription delivers row snapshots on C. C closes when Unsubscribe is
// called or when the learning space's deletion event arrives, whichever
// comes first; a closed C with no Unsubscribe call means the row is gone.
type Subscription struct {
	C <-chan *types.LearningSpace

	feed    *Feed
	client  *Client
	channel string
}

func (f *Feed) Subscribe(spaceID int64, kind artifact.Kind) *Subscription {
	channel := artifact.Channel(spaceID, kind)
	client := f.hub.NewClient(uuid.Nil)
	f.hub.AddChannel(client, channel)

	out := make(chan *types.LearningSpace, 16)
	go func() {
		defer close(out)
		for {
			select {
			case <-client.Done():
				return
			case msg := <-client.Outbound:
				if msg.Event == EventLearningSpaceDeleted {
					f.hub.CloseClient(client)
					return
				}
				snapshot := f.decode(msg)
				if snapshot == nil {
					continue
				}
				select {
				case out <- snapshot:
				case <-client.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		C:       out,
		feed:    f,
		client:  client,
		channel: channel,
	}
}

func (f *Feed) decode(msg Message) *types.LearningSpace {
	if msg.Event != EventArtifactUpdated || len(msg.Data) == 0 {
		return nil
	}
	var snapshot types.LearningSpace
	if err := json.Unmarshal(msg.Data, &snapshot); err != nil {
		f.log.Warn("undecodable feed payload", "channel", msg.Channel, "error", err)
		return nil
	}
	return &snapshot
}

// Unsubscribe releases the hub channel. Idempotent.
func (s *Subscription) Unsubscribe() {
	s.feed.hub.CloseClient(s.client)
}

// Watch couples a subscription with a per-artifact watcher seeded from a
// mount snapshot: every feed snapshot is applied, decode failures are
// logged loudly and skipped, and onChange fires on each observable change.
// The returned subscription must still be released by the caller.
func (f *Feed) Watch(spaceID int64, kind artifact.Kind, snapshot *types.LearningSpace, onChange func(w *artifact.Watcher)) *Subscription {
	w := artifact.NewWatcher(f.log, kind, snapshot)
	sub := f.Subscribe(spaceID, kind)
	go func() {
		for snap := range sub.C {
			changed, err := w.Apply(snap)
			if err != nil {
				f.log.Error("malformed artifact feed payload", "space_id", spaceID, "kind", string(kind), "error", err)
				continue
			}
			if changed && onChange != nil {
				onChange(w)
			}
		}
	}()
	return sub
}
