package types

import "testing"

func validQuestion() Question {
	return Question{
		Question:      "What pigment drives photosynthesis?",
		Hint:          "It is green.",
		Options:       QuestionOptions{A: "Melanin", B: "Chlorophyll", C: "Keratin", D: "Hemoglobin"},
		CorrectAnswer: "B",
		Explaination:  "Chlorophyll absorbs red and blue light.",
	}
}

func TestSummaryNotesValidate(t *testing.T) {
	notes := SummaryNotes{Title: "Cells", Summary: "Cells are the unit of life."}
	if err := notes.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	empty := SummaryNotes{Title: "Cells"}
	if err := empty.Validate(); err == nil {
		t.Fatalf("expected error for empty summary body")
	}
}

func TestQuestionValidate(t *testing.T) {
	q := validQuestion()
	if err := q.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missing := validQuestion()
	missing.Options.C = " "
	if err := missing.Validate(); err == nil {
		t.Fatalf("expected error for blank option")
	}

	badKey := validQuestion()
	badKey.CorrectAnswer = "b"
	if err := badKey.Validate(); err == nil {
		t.Fatalf("expected error for lowercase answer key")
	}
}

func TestQuizValidate(t *testing.T) {
	quiz := Quiz{Title: "Biology", Questions: []Question{validQuestion()}}
	if err := quiz.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	empty := Quiz{Title: "Biology"}
	if err := empty.Validate(); err == nil {
		t.Fatalf("expected error for quiz with no questions")
	}

	quiz.Questions = append(quiz.Questions, Question{})
	if err := quiz.Validate(); err == nil {
		t.Fatalf("expected error to name the failing question")
	}
}

func TestQuestionOptionsText(t *testing.T) {
	opts := QuestionOptions{A: "1", B: "2", C: "3", D: "4"}
	if opts.Text("C") != "3" {
		t.Fatalf("got %q", opts.Text("C"))
	}
	if opts.Text("E") != "" {
		t.Fatalf("unknown key must return empty string")
	}
}

func TestRecommendationHasURL(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://ocw.mit.edu", true},
		{RecommendationNullURL, false},
		{"", false},
		{"  ", false},
	}
	for _, c := range cases {
		r := Recommendation{Title: "t", URL: c.url}
		if r.HasURL() != c.want {
			t.Fatalf("HasURL(%q) = %v, want %v", c.url, !c.want, c.want)
		}
	}
}

func TestRecommendationListValidate(t *testing.T) {
	list := RecommendationList{Recommendations: []Recommendation{
		{Title: "3Blue1Brown", Description: "Visual math", URL: "https://www.3blue1brown.com"},
		{Title: "Library copy", Description: "Print only", URL: RecommendationNullURL},
	}}
	if err := list.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list.Recommendations[1].Title = ""
	if err := list.Validate(); err == nil {
		t.Fatalf("expected error for untitled recommendation")
	}
}
