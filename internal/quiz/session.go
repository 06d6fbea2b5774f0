package quiz

import (
	"fmt"
	"math"
	"time"

	"github.com/studyfold/studyspace-backend/internal/types"
)

type Phase string

const (
	PhaseInProgress Phase = "in_progress"
	PhaseComplete   Phase = "complete"
)

// PointsPerCorrect is the flat award per correctly answered question.
const PointsPerCorrect = 2

// Session administers one attempt at an already-fetched quiz payload. It is
// purely local state: no network calls, no randomness, single goroutine.
// The payload is validated once at construction and trusted afterwards.
type Session struct {
	quiz types.Quiz

	phase      Phase
	index      int
	answers    []string
	selected   string
	revealed   bool
	hintShown  bool
	startedAt  time.Time
	finishedAt time.Time

	now func() time.Time
}

func NewSession(q types.Quiz) (*Session, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("quiz payload: %w", err)
	}
	s := &Session{
		quiz: q,
		now:  time.Now,
	}
	s.reset()
	return s, nil
}

func (s *Session) reset() {
	s.phase = PhaseInProgress
	s.index = 0
	s.answers = make([]string, len(s.quiz.Questions))
	s.selected = ""
	s.revealed = false
	s.hintShown = false
	s.startedAt = s.now()
	s.finishedAt = time.Time{}
}

func (s *Session) Phase() Phase     { return s.phase }
func (s *Session) Index() int       { return s.index }
func (s *Session) Selected() string { return s.selected }
func (s *Session) Revealed() bool   { return s.revealed }
func (s *Session) HintShown() bool  { return s.hintShown }
func (s *Session) Title() string    { return s.quiz.Title }

// Question returns the question at the current index.
func (s *Session) Question() types.Question {
	return s.quiz.Questions[s.index]
}

// SelectAnswer records a tentative choice for the current question. It is
// rejected once the answer has been submitted and feedback revealed.
func (s *Session) SelectAnswer(choice string) error {
	if s.phase != PhaseInProgress {
		return fmt.Errorf("quiz already complete")
	}
	if s.revealed {
		return fmt.Errorf("answer already submitted for question %d", s.index)
	}
	switch choice {
	case "A", "B", "C", "D":
	default:
		return fmt.Errorf("invalid choice %q", choice)
	}
	s.selected = choice
	return nil
}

// SubmitAnswer commits the selected choice into the answer sheet and
// reveals feedback for the current question.
func (s *Session) SubmitAnswer() error {
	if s.phase != PhaseInProgress {
		return fmt.Errorf("quiz already complete")
	}
	if s.revealed {
		return fmt.Errorf("answer already submitted for question %d", s.index)
	}
	if s.selected == "" {
		return fmt.Errorf("no answer selected")
	}
	s.answers[s.index] = s.selected
	s.revealed = true
	return nil
}

// Next advances to the following question, or completes the attempt when
// called on the last one. Selection, feedback and hint visibility reset.
func (s *Session) Next() {
	if s.phase != PhaseInProgress {
		return
	}
	if s.index == len(s.quiz.Questions)-1 {
		s.phase = PhaseComplete
		s.finishedAt = s.now()
		return
	}
	s.index++
	s.selected = ""
	s.revealed = false
	s.hintShown = false
}

// Previous steps back one question, restoring the answer previously
// recorded for the question being returned to. At index 0 it leaves the
// index untouched. Feedback and hint visibility reset either way.
func (s *Session) Previous() {
	if s.phase != PhaseInProgress {
		return
	}
	if s.index > 0 {
		s.index--
		s.selected = s.answers[s.index]
	}
	s.revealed = false
	s.hintShown = false
}

// Restart discards all recorded answers and begins a fresh attempt.
func (s *Session) Restart() {
	s.reset()
}

// ToggleHint flips hint visibility for the current question and returns the
// new state. Hints are presentation-only and never affect scoring.
func (s *Session) ToggleHint() bool {
	s.hintShown = !s.hintShown
	return s.hintShown
}

type QuestionResult struct {
	Index   int    `json:"index"`
	Answer  string `json:"answer"`
	Correct bool   `json:"correct"`
}

type Results struct {
	Correct    int              `json:"correct"`
	Total      int              `json:"total"`
	Score      int              `json:"score"`
	MaxScore   int              `json:"max_score"`
	Percentage int              `json:"percentage"`
	Elapsed    time.Duration    `json:"elapsed"`
	Review     []QuestionResult `json:"review"`
}

// Results scores the attempt. Only valid once the session is complete.
func (s *Session) Results() (Results, error) {
	if s.phase != PhaseComplete {
		return Results{}, fmt.Errorf("quiz not complete")
	}
	total := len(s.quiz.Questions)
	review := make([]QuestionResult, total)
	correct := 0
	for i, q := range s.quiz.Questions {
		ok := s.answers[i] == q.CorrectAnswer
		if ok {
			correct++
		}
		review[i] = QuestionResult{Index: i, Answer: s.answers[i], Correct: ok}
	}
	return Results{
		Correct:    correct,
		Total:      total,
		Score:      correct * PointsPerCorrect,
		MaxScore:   total * PointsPerCorrect,
		Percentage: int(math.Round(float64(correct) / float64(total) * 100)),
		Elapsed:    s.finishedAt.Sub(s.startedAt),
		Review:     review,
	}, nil
}
