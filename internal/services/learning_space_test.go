package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/studyfold/studyspace-backend/internal/artifact"
	"github.com/studyfold/studyspace-backend/internal/realtime"
)

// fakeBucket keeps uploads in memory.
type fakeBucket struct {
	objects map[string]string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: make(map[string]string)}
}

func (b *fakeBucket) UploadFile(ctx context.Context, key string, file io.Reader, contentType string) error {
	body, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	b.objects[key] = string(body)
	return nil
}

func (b *fakeBucket) DeleteFile(ctx context.Context, key string) error {
	delete(b.objects, key)
	return nil
}

func (b *fakeBucket) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func TestCreate_PersistsAndTriggersOnce(t *testing.T) {
	db, spaces, log := newTestStore(t)
	agent := &fakeAgent{}
	svc := NewLearningSpaceService(db, log, spaces, agent, newFakeBucket(), nil)

	userID := uuid.New()
	pdf := "https://cdn.example.com/sources/intro.pdf"
	space, err := svc.Create(context.Background(), userID, "  intro to genetics ", &pdf, nil)
	require.NoError(t, err)
	require.NotZero(t, space.ID)
	require.Equal(t, "intro to genetics", space.Topic)
	require.Equal(t, 1, agent.invokeCount())
	require.Equal(t, space.ID, agent.invokes[0])

	stored, err := spaces.GetByID(context.Background(), nil, space.ID)
	require.NoError(t, err)
	require.Equal(t, userID, stored.UserID)
	require.Equal(t, pdf, *stored.PDFSource)
	// all artifact slots start unpopulated
	require.Empty(t, stored.SummaryNotes)
	require.Nil(t, stored.Mindmap)
	require.Nil(t, stored.AudioOverview)
	require.Empty(t, stored.Quiz)
	require.Empty(t, stored.Recommendations)
}

func TestCreate_TriggerFailureKeepsRecord(t *testing.T) {
	db, spaces, log := newTestStore(t)
	agent := &fakeAgent{invokeErr: fmt.Errorf("agent unavailable")}
	svc := NewLearningSpaceService(db, log, spaces, agent, newFakeBucket(), nil)

	userID := uuid.New()
	space, err := svc.Create(context.Background(), userID, "thermodynamics", nil, nil)
	require.ErrorIs(t, err, ErrTriggerFailed)
	require.NotNil(t, space, "created space is returned with the trigger error")

	stored, err := spaces.GetByID(context.Background(), nil, space.ID)
	require.NoError(t, err)
	require.NotNil(t, stored, "row persists in all-pending state")
	require.Equal(t, 1, agent.invokeCount(), "no automatic retry")
}

func TestCreate_Validation(t *testing.T) {
	db, spaces, log := newTestStore(t)
	svc := NewLearningSpaceService(db, log, spaces, &fakeAgent{}, newFakeBucket(), nil)

	_, err := svc.Create(context.Background(), uuid.Nil, "topic", nil, nil)
	requireAPIError(t, err, http.StatusUnauthorized, "unauthorized")

	_, err = svc.Create(context.Background(), uuid.New(), "   ", nil, nil)
	requireAPIError(t, err, http.StatusBadRequest, "missing_topic")
}

func TestRetrigger_FiresForOwnedSpace(t *testing.T) {
	db, spaces, log := newTestStore(t)
	agent := &fakeAgent{}
	svc := NewLearningSpaceService(db, log, spaces, agent, newFakeBucket(), nil)
	owner := uuid.New()
	space := createSpace(t, spaces, owner)

	require.NoError(t, svc.Retrigger(context.Background(), owner, space.ID))
	require.Equal(t, 1, agent.invokeCount())

	err := svc.Retrigger(context.Background(), uuid.New(), space.ID)
	requireAPIError(t, err, http.StatusForbidden, "not_owner")
	require.Equal(t, 1, agent.invokeCount())
}

func TestRetrigger_FailureWrapsTriggerError(t *testing.T) {
	db, spaces, log := newTestStore(t)
	agent := &fakeAgent{invokeErr: fmt.Errorf("agent unavailable")}
	svc := NewLearningSpaceService(db, log, spaces, agent, newFakeBucket(), nil)
	owner := uuid.New()
	space := createSpace(t, spaces, owner)

	err := svc.Retrigger(context.Background(), owner, space.ID)
	require.ErrorIs(t, err, ErrTriggerFailed)
}

func TestRetrigger_CoalescesConcurrentCalls(t *testing.T) {
	db, spaces, log := newTestStore(t)
	release := make(chan struct{})
	agent := &fakeAgent{block: release, started: make(chan struct{}, 3)}
	svc := NewLearningSpaceService(db, log, spaces, agent, newFakeBucket(), nil)
	owner := uuid.New()
	space := createSpace(t, spaces, owner)

	errs := make([]error, 3)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = svc.Retrigger(context.Background(), owner, space.ID)
	}()
	<-agent.started // first retry is in flight, agent is stalling

	for i := 1; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Retrigger(context.Background(), owner, space.ID)
		}(i)
	}
	// let the stragglers reach the in-flight call before releasing it
	time.Sleep(200 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "retry %d", i)
	}
	require.Equal(t, 1, agent.invokeCount(), "concurrent retries must share one agent call")
}

func TestGet_OwnershipAndMissing(t *testing.T) {
	db, spaces, log := newTestStore(t)
	svc := NewLearningSpaceService(db, log, spaces, &fakeAgent{}, newFakeBucket(), nil)
	owner := uuid.New()
	space := createSpace(t, spaces, owner)

	got, err := svc.Get(context.Background(), owner, space.ID)
	require.NoError(t, err)
	require.Equal(t, space.ID, got.ID)

	_, err = svc.Get(context.Background(), uuid.New(), space.ID)
	requireAPIError(t, err, http.StatusForbidden, "not_owner")

	_, err = svc.Get(context.Background(), owner, 9999)
	requireAPIError(t, err, http.StatusNotFound, "not_found")
}

func TestList_OnlyCallersSpaces(t *testing.T) {
	db, spaces, log := newTestStore(t)
	svc := NewLearningSpaceService(db, log, spaces, &fakeAgent{}, newFakeBucket(), nil)
	owner := uuid.New()
	createSpace(t, spaces, owner)
	createSpace(t, spaces, owner)
	createSpace(t, spaces, uuid.New())

	out, err := svc.List(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, s := range out {
		require.Equal(t, owner, s.UserID)
	}
}

func TestDelete_OwnerOnly(t *testing.T) {
	db, spaces, log := newTestStore(t)
	svc := NewLearningSpaceService(db, log, spaces, &fakeAgent{}, newFakeBucket(), nil)
	owner := uuid.New()
	space := createSpace(t, spaces, owner)

	err := svc.Delete(context.Background(), uuid.New(), space.ID)
	requireAPIError(t, err, http.StatusForbidden, "not_owner")

	require.NoError(t, svc.Delete(context.Background(), owner, space.ID))
	stored, err := spaces.GetByID(context.Background(), nil, space.ID)
	require.NoError(t, err)
	require.Nil(t, stored)
}

func TestDelete_AnnouncesOnEveryArtifactChannel(t *testing.T) {
	db, spaces, log := newTestStore(t)
	feed := newCapturedFeed(t)
	svc := NewLearningSpaceService(db, log, spaces, &fakeAgent{}, newFakeBucket(), feed)
	owner := uuid.New()
	space := createSpace(t, spaces, owner)

	require.NoError(t, svc.Delete(context.Background(), owner, space.ID))

	msgs := feed.published()
	require.Len(t, msgs, len(artifact.Kinds()))
	seen := make(map[string]bool)
	for _, m := range msgs {
		require.Equal(t, realtime.EventLearningSpaceDeleted, m.Event)
		seen[m.Channel] = true
	}
	for _, kind := range artifact.Kinds() {
		require.True(t, seen[artifact.Channel(space.ID, kind)], "missing channel for %s", kind)
	}
}

// failFirstFeed rejects its first publish and records the rest.
type failFirstFeed struct {
	mu       sync.Mutex
	failed   bool
	channels []string
}

func (f *failFirstFeed) Publish(ctx context.Context, msg realtime.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.failed {
		f.failed = true
		return fmt.Errorf("publish failed")
	}
	f.channels = append(f.channels, msg.Channel)
	return nil
}

func (f *failFirstFeed) StartForwarder(ctx context.Context, onMsg func(realtime.Message)) error {
	return nil
}

func (f *failFirstFeed) Close() error { return nil }

func TestDelete_AnnounceContinuesPastPublishFailure(t *testing.T) {
	db, spaces, log := newTestStore(t)
	feed := &failFirstFeed{}
	svc := NewLearningSpaceService(db, log, spaces, &fakeAgent{}, newFakeBucket(), feed)
	owner := uuid.New()
	space := createSpace(t, spaces, owner)

	require.NoError(t, svc.Delete(context.Background(), owner, space.ID))

	feed.mu.Lock()
	defer feed.mu.Unlock()
	require.Len(t, feed.channels, len(artifact.Kinds())-1,
		"one failed publish must not silence the remaining channels")
}

func TestUploadSource_KeyLayoutAndURL(t *testing.T) {
	db, spaces, log := newTestStore(t)
	bucket := newFakeBucket()
	svc := NewLearningSpaceService(db, log, spaces, &fakeAgent{}, bucket, nil)
	userID := uuid.New()

	up, err := svc.UploadSource(context.Background(), userID, "Intro to Genetics!", "notes.pdf", "application/pdf", strings.NewReader("pdf-bytes"))
	require.NoError(t, err)

	wantKey := fmt.Sprintf("sources/%s/intro-to-genetics/notes.pdf", userID)
	require.Equal(t, wantKey, up.Path)
	require.Equal(t, "https://cdn.example.com/"+wantKey, up.PublicURL)
	require.Equal(t, "pdf-bytes", bucket.objects[wantKey])
}

func TestUploadSource_Validation(t *testing.T) {
	db, spaces, log := newTestStore(t)
	svc := NewLearningSpaceService(db, log, spaces, &fakeAgent{}, newFakeBucket(), nil)

	_, err := svc.UploadSource(context.Background(), uuid.New(), "t", "  ", "", strings.NewReader(""))
	requireAPIError(t, err, http.StatusBadRequest, "missing_filename")

	noBucket := NewLearningSpaceService(db, log, spaces, &fakeAgent{}, nil, nil)
	_, err = noBucket.UploadSource(context.Background(), uuid.New(), "t", "f.pdf", "", strings.NewReader(""))
	requireAPIError(t, err, http.StatusServiceUnavailable, "storage_unavailable")
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Intro to Genetics!": "intro-to-genetics",
		"  CS 101  ":         "cs-101",
		"!!!":                "space",
	}
	for in, want := range cases {
		require.Equal(t, want, slugify(in), "slugify(%q)", in)
	}
}
