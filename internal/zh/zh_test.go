package zh

import "testing"

func TestSimplified(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"mapped characters convert", "書評", "书评"},
		{"unmapped pass through", "思考的藝術", "思考的藝術"},
		{"mixed", "這本書", "这本书"},
		{"ascii untouched", "Thinking, Fast and Slow", "Thinking, Fast and Slow"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Simplified(tt.input); got != tt.expected {
				t.Errorf("Simplified(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}
