package storage

import "testing"

func TestContainsPatternEscapesWildcards(t *testing.T) {
	cases := map[string]string{
		"sleep":     `%sleep%`,
		"100%":      `%100\%%`,
		"deep_rest": `%deep\_rest%`,
		`a\b`:       `%a\\b%`,
	}
	for in, want := range cases {
		if got := containsPattern(in); got != want {
			t.Fatalf("containsPattern(%q) = %q, want %q", in, got, want)
		}
	}
}
