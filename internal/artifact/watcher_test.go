package artifact

import (
	"encoding/json"
	"testing"

	"gorm.io/datatypes"

	"github.com/studyfold/studyspace-backend/internal/platform/logger"
	"github.com/studyfold/studyspace-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func mustJSON(t *testing.T, v any) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return datatypes.JSON(raw)
}

func strptr(s string) *string { return &s }

func emptySpace() *types.LearningSpace {
	return &types.LearningSpace{ID: 7, Topic: "photosynthesis"}
}

func validQuiz(t *testing.T) datatypes.JSON {
	return mustJSON(t, types.Quiz{
		Title: "Photosynthesis basics",
		Questions: []types.Question{{
			Question:      "Where does the light reaction happen?",
			Hint:          "Think membranes.",
			Options:       types.QuestionOptions{A: "Stroma", B: "Thylakoid", C: "Cytosol", D: "Nucleus"},
			CorrectAnswer: "B",
			Explaination:  "Light reactions run in the thylakoid membrane.",
		}},
	})
}

func TestNewWatcher_AllSlotsNullStartsPending(t *testing.T) {
	log := testLogger(t)
	for _, kind := range Kinds() {
		w := NewWatcher(log, kind, emptySpace())
		if w.State() != StatePending {
			t.Fatalf("kind %s: expected pending, got %s", kind, w.State())
		}
		if w.Value() != nil {
			t.Fatalf("kind %s: expected nil value while pending", kind)
		}
	}
}

func TestNewWatcher_PopulatedSlotStartsReady(t *testing.T) {
	space := emptySpace()
	space.SummaryNotes = mustJSON(t, types.SummaryNotes{Title: "T", Summary: "S"})
	w := NewWatcher(testLogger(t), KindSummaryNotes, space)
	if w.State() != StateReady {
		t.Fatalf("expected ready, got %s", w.State())
	}
	if w.Value().SummaryNotes.Title != "T" {
		t.Fatalf("unexpected value: %+v", w.Value())
	}
}

func TestNewWatcher_MalformedSlotStaysPending(t *testing.T) {
	space := emptySpace()
	space.Quiz = datatypes.JSON(`{"title": "broken"`)
	w := NewWatcher(testLogger(t), KindQuiz, space)
	if w.State() != StatePending {
		t.Fatalf("expected pending for malformed slot, got %s", w.State())
	}
}

func TestApply_PendingToReadyExactlyOnce(t *testing.T) {
	w := NewWatcher(testLogger(t), KindQuiz, emptySpace())

	space := emptySpace()
	space.Quiz = validQuiz(t)
	changed, err := w.Apply(space)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !changed || w.State() != StateReady {
		t.Fatalf("expected pending -> ready transition, changed=%v state=%s", changed, w.State())
	}

	// Redelivery of the identical snapshot is not a change.
	changed, err = w.Apply(space)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if changed {
		t.Fatalf("expected identical snapshot to be a no-op")
	}
}

func TestApply_NeverRevertsReadyToPending(t *testing.T) {
	space := emptySpace()
	space.Mindmap = strptr("https://cdn.example.com/mindmap/7.svg")
	w := NewWatcher(testLogger(t), KindMindmap, space)
	if w.State() != StateReady {
		t.Fatalf("expected ready")
	}

	changed, err := w.Apply(emptySpace())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if changed || w.State() != StateReady {
		t.Fatalf("ready must be sticky, changed=%v state=%s", changed, w.State())
	}
	if w.Value().URL == "" {
		t.Fatalf("expected retained value after nulled snapshot")
	}
}

func TestApply_MalformedPayloadErrorsWithoutStateChange(t *testing.T) {
	space := emptySpace()
	space.Recommendations = mustJSON(t, types.RecommendationList{Recommendations: []types.Recommendation{{
		Title:       "Khan Academy",
		Description: "Free course",
		URL:         "https://khanacademy.org",
	}}})
	w := NewWatcher(testLogger(t), KindRecommendations, space)

	bad := emptySpace()
	bad.Recommendations = datatypes.JSON(`{"recommendations": [{"title": ""}]}`)
	changed, err := w.Apply(bad)
	if err == nil {
		t.Fatalf("expected validation error for malformed payload")
	}
	if changed {
		t.Fatalf("malformed payload must not report a change")
	}
	if w.State() != StateReady || w.Value().Recommendations == nil {
		t.Fatalf("malformed payload must leave prior state intact")
	}
}

func TestApply_AudioVersionIsMonotonic(t *testing.T) {
	v2 := emptySpace()
	v2.AudioOverview = strptr("https://cdn.example.com/audio/7-v2.mp3")
	v2.AudioVersion = 2
	w := NewWatcher(testLogger(t), KindAudioOverview, v2)

	// Slower writer lands with an older version: ignored.
	v1 := emptySpace()
	v1.AudioOverview = strptr("https://cdn.example.com/audio/7-v1.mp3")
	v1.AudioVersion = 1
	changed, err := w.Apply(v1)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if changed {
		t.Fatalf("stale audio version must not apply")
	}
	if got := w.Value().URL; got != *v2.AudioOverview {
		t.Fatalf("expected v2 url retained, got %s", got)
	}

	v3 := emptySpace()
	v3.AudioOverview = strptr("https://cdn.example.com/audio/7-v3.mp3")
	v3.AudioVersion = 3
	changed, err = w.Apply(v3)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !changed || w.Value().AudioVersion != 3 {
		t.Fatalf("expected newer audio version to apply, changed=%v version=%d", changed, w.Value().AudioVersion)
	}
}

func TestDecode_RecommendationNullSentinel(t *testing.T) {
	space := emptySpace()
	space.Recommendations = mustJSON(t, types.RecommendationList{Recommendations: []types.Recommendation{{
		Title:       "Offline reading",
		Description: "No link available",
		URL:         types.RecommendationNullURL,
	}}})
	val, err := Decode(KindRecommendations, space)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if val.Recommendations.Recommendations[0].HasURL() {
		t.Fatalf("NULL sentinel must read as no url")
	}
}

func TestDecode_UnknownKind(t *testing.T) {
	if _, err := Decode(Kind("poster"), emptySpace()); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestChannelName(t *testing.T) {
	if got := Channel(42, KindQuiz); got != "space:42:artifact:quiz" {
		t.Fatalf("unexpected channel name %q", got)
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("audio_overview")
	if err != nil || k != KindAudioOverview {
		t.Fatalf("ParseKind: %v %v", k, err)
	}
	if _, err := ParseKind("posters"); err == nil {
		t.Fatalf("expected error for unknown kind string")
	}
}
