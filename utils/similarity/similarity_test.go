package similarity

import (
	"testing"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		minScore float64 // minimum acceptable similarity score
	}{
		{
			name:     "Identical strings",
			a:        "The Matrix",
			b:        "The Matrix",
			minScore: 1.0,
		},
		{
			name:     "Case insensitive",
			a:        "The Matrix",
			b:        "the matrix",
			minScore: 1.0,
		},
		{
			name:     "Colon vs space",
			a:        "Spider-Man: No Way Home",
			b:        "Spider Man No Way Home",
			minScore: 1.0,
		},
		{
			name:     "With dots vs spaces",
			a:        "The.Matrix",
			b:        "The Matrix",
			minScore: 0.9,
		},
		{
			name:     "Year in one string",
			a:        "The Matrix 1999",
			b:        "The Matrix",
			minScore: 0.65,
		},
		{
			name:     "Different strings",
			a:        "The Matrix",
			b:        "Inception",
			minScore: 0.0,
		},
		{
			name:     "Ampersand vs and",
			a:        "Law & Order",
			b:        "Law and Order",
			minScore: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := Score(tt.a, tt.b)
			t.Logf("Score(%q, %q) = %.2f", tt.a, tt.b, score)

			if tt.minScore == 1.0 && score != 1.0 {
				t.Errorf("Expected exact match (1.0), got %.2f", score)
			} else if score < tt.minScore {
				t.Errorf("Expected score >= %.2f, got %.2f", tt.minScore, score)
			}
		})
	}
}

func TestTitleMatches(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"The Matrix", "The Matrix", true},
		{"The Matrix", "the.matrix", true},
		{"The Matrix Reloaded", "The Matrix", false},
		{"The Matrix", "Inception", false},
		{"Fight Club", "Fight Clubs", true},
	}

	for _, tt := range tests {
		if got := TitleMatches(tt.a, tt.b); got != tt.want {
			t.Errorf("TitleMatches(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"The Matrix", "the matrix"},
		{"The.Matrix", "the matrix"},
		{"The-Matrix", "the matrix"},
		{"The_Matrix", "the matrix"},
		{"The   Matrix", "the matrix"},
		{"The Matrix (1999)", "the matrix 1999"},
		{"Law & Order", "law and order"},
		{"Me, MYSELF & I", "me myself and i"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := normalize(tt.input)
			if result != tt.expected {
				t.Errorf("normalize(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
