package models

import "testing"

func TestQuestionHasChoices(t *testing.T) {
	tests := []struct {
		name     string
		question Question
		expected bool
	}{
		{"MultipleChoice", Question{Choices: []string{"red", "blue"}}, true},
		{"FreeText", Question{}, false},
		{"EmptySlice", Question{Choices: []string{}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.question.HasChoices(); got != tt.expected {
				t.Errorf("HasChoices() = %v, want %v", got, tt.expected)
			}
		})
	}
}
