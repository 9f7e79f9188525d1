package guess

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase passthrough", "redcar", "redcar"},
		{"uppercase folded", "RED CAR", "redcar"},
		{"mixed case and spaces", "  Red  Car  ", "redcar"},
		{"punctuation stripped", "Red-Car!", "redcar"},
		{"digits kept", "GT3 RS", "gt3rs"},
		{"only punctuation", "?!...", ""},
		{"empty", "", ""},
		{"unicode letters kept", "Škoda Octavia", "škodaoctavia"},
		{"unicode case folded", "ŠKODA", "škoda"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}
