package repository_test

import (
	"testing"

	"github.com/septivank/smart-meter-api/internal/repository"
)

func TestClampLimit(t *testing.T) {
	cases := []struct {
		name     string
		input    int
		expected int
	}{
		{"below minimum", 0, 1},
		{"negative", -50, 1},
		{"minimum", 1, 1},
		{"in range", 100, 100},
		{"maximum", 1000, 1000},
		{"above maximum", 5000, 1000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := repository.ClampLimit(tc.input); got != tc.expected {
				t.Errorf("ClampLimit(%d) = %d, expected %d", tc.input, got, tc.expected)
			}
		})
	}
}
