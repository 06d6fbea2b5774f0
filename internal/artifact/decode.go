package artifact

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/studyfold/studyspace-backend/internal/types"
)

// Value is the tagged, validated form of one artifact slot. Consumers never
// inspect raw JSON shapes; every slot crosses the feed boundary through Decode
// exactly once and is statically typed afterwards.
type Value struct {
	Kind Kind

	SummaryNotes    *types.SummaryNotes
	URL             string // mindmap and audio_overview
	AudioVersion    int64  // audio_overview only
	Quiz            *types.Quiz
	Recommendations *types.RecommendationList
}

// Decode extracts the slot for kind from a row snapshot. It returns
// (nil, nil) when the slot is still unpopulated, and a non-nil error when
// the slot is populated but malformed. A malformed slot is a bug in the
// producer and must surface loudly instead of being swallowed.
func Decode(kind Kind, space *types.LearningSpace) (*Value, error) {
	if space == nil {
		return nil, fmt.Errorf("nil learning space snapshot")
	}
	switch kind {
	case KindSummaryNotes:
		if len(space.SummaryNotes) == 0 {
			return nil, nil
		}
		var notes types.SummaryNotes
		if err := json.Unmarshal(space.SummaryNotes, &notes); err != nil {
			return nil, fmt.Errorf("decode summary_notes for space %d: %w", space.ID, err)
		}
		if err := notes.Validate(); err != nil {
			return nil, fmt.Errorf("invalid summary_notes for space %d: %w", space.ID, err)
		}
		return &Value{Kind: kind, SummaryNotes: &notes}, nil

	case KindMindmap:
		if space.Mindmap == nil || strings.TrimSpace(*space.Mindmap) == "" {
			return nil, nil
		}
		return &Value{Kind: kind, URL: *space.Mindmap}, nil

	case KindAudioOverview:
		if space.AudioOverview == nil || strings.TrimSpace(*space.AudioOverview) == "" {
			return nil, nil
		}
		return &Value{Kind: kind, URL: *space.AudioOverview, AudioVersion: space.AudioVersion}, nil

	case KindQuiz:
		if len(space.Quiz) == 0 {
			return nil, nil
		}
		var quiz types.Quiz
		if err := json.Unmarshal(space.Quiz, &quiz); err != nil {
			return nil, fmt.Errorf("decode quiz for space %d: %w", space.ID, err)
		}
		if err := quiz.Validate(); err != nil {
			return nil, fmt.Errorf("invalid quiz for space %d: %w", space.ID, err)
		}
		return &Value{Kind: kind, Quiz: &quiz}, nil

	case KindRecommendations:
		if len(space.Recommendations) == 0 {
			return nil, nil
		}
		var recs types.RecommendationList
		if err := json.Unmarshal(space.Recommendations, &recs); err != nil {
			return nil, fmt.Errorf("decode recommendations for space %d: %w", space.ID, err)
		}
		if err := recs.Validate(); err != nil {
			return nil, fmt.Errorf("invalid recommendations for space %d: %w", space.ID, err)
		}
		return &Value{Kind: kind, Recommendations: &recs}, nil

	default:
		return nil, fmt.Errorf("unknown artifact kind %q", kind)
	}
}
