package artifact

import "fmt"

// Kind names one of the five agent-produced artifacts of a learning space.
type Kind string

const (
	KindSummaryNotes    Kind = "summary_notes"
	KindMindmap         Kind = "mindmap"
	KindAudioOverview   Kind = "audio_overview"
	KindQuiz            Kind = "quiz"
	KindRecommendations Kind = "recommendations"
)

func Kinds() []Kind {
	return []Kind{
		KindSummaryNotes,
		KindMindmap,
		KindAudioOverview,
		KindQuiz,
		KindRecommendations,
	}
}

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSummaryNotes, KindMindmap, KindAudioOverview, KindQuiz, KindRecommendations:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown artifact kind %q", s)
	}
}

// Channel returns the feed channel for one artifact of one learning space.
// The record id is part of the channel identity itself, so subscriber
// isolation never depends on a server-side row filter alone.
func Channel(spaceID int64, kind Kind) string {
	return fmt.Sprintf("space:%d:artifact:%s", spaceID, kind)
}
