package types

import (
	"fmt"
	"strings"
)

// RecommendationNullURL is the sentinel the agent emits when a
// recommendation has no source URL. It must never be rendered as a link.
const RecommendationNullURL = "NULL"

type SummaryNotes struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

func (s *SummaryNotes) Validate() error {
	if s == nil {
		return fmt.Errorf("summary notes payload is nil")
	}
	if strings.TrimSpace(s.Summary) == "" {
		return fmt.Errorf("summary notes missing summary body")
	}
	return nil
}

type QuestionOptions struct {
	A string `json:"A"`
	B string `json:"B"`
	C string `json:"C"`
	D string `json:"D"`
}

// Text returns the option body for a choice key, or "" for an unknown key.
func (o QuestionOptions) Text(choice string) string {
	switch choice {
	case "A":
		return o.A
	case "B":
		return o.B
	case "C":
		return o.C
	case "D":
		return o.D
	default:
		return ""
	}
}

type Question struct {
	Question      string          `json:"question"`
	Hint          string          `json:"hint"`
	Options       QuestionOptions `json:"options"`
	CorrectAnswer string          `json:"correctAnswer"`
	Explaination  string          `json:"explaination"`
}

func (q *Question) Validate() error {
	if q == nil {
		return fmt.Errorf("question payload is nil")
	}
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("question text is empty")
	}
	for _, choice := range []string{"A", "B", "C", "D"} {
		if strings.TrimSpace(q.Options.Text(choice)) == "" {
			return fmt.Errorf("question %q missing option %s", q.Question, choice)
		}
	}
	switch q.CorrectAnswer {
	case "A", "B", "C", "D":
		return nil
	default:
		return fmt.Errorf("question %q has correctAnswer %q, want one of A, B, C, D", q.Question, q.CorrectAnswer)
	}
}

type Quiz struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

func (q *Quiz) Validate() error {
	if q == nil {
		return fmt.Errorf("quiz payload is nil")
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("quiz %q has no questions", q.Title)
	}
	for i := range q.Questions {
		if err := q.Questions[i].Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	return nil
}

type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// HasURL reports whether the recommendation carries a renderable link.
func (r Recommendation) HasURL() bool {
	u := strings.TrimSpace(r.URL)
	return u != "" && u != RecommendationNullURL
}

type RecommendationList struct {
	Recommendations []Recommendation `json:"recommendations"`
}

func (r *RecommendationList) Validate() error {
	if r == nil {
		return fmt.Errorf("recommendations payload is nil")
	}
	for i, rec := range r.Recommendations {
		if strings.TrimSpace(rec.Title) == "" {
			return fmt.Errorf("recommendation %d missing title", i)
		}
	}
	return nil
}
