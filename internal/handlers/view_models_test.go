package handlers

import (
	"testing"

	"storynest/internal/models"
)

func TestToPageResponseCarriesQuestionAnswer(t *testing.T) {
	page := models.Page{
		Index: 1,
		Text:  "The end",
		Question: &models.Question{
			Key:     "q1",
			Prompt:  "What color?",
			Answer:  "red",
			Choices: []string{"red", "blue"},
		},
	}

	resp := toPageResponse(page)
	if resp.Question == nil {
		t.Fatal("question should be present")
	}
	if resp.Question.Answer != "red" {
		t.Errorf("answer = %q, want %q; the player evaluates gates from this payload", resp.Question.Answer, "red")
	}
	if resp.Question.Key != "q1" || len(resp.Question.Choices) != 2 {
		t.Errorf("unexpected question payload: %+v", resp.Question)
	}
}
