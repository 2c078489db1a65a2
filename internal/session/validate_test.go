package session

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		input  string
		reason string // empty when valid
	}{
		{"main", ""},
		{"work-2", ""},
		{"my_session", ""},
		{"a", ""},
		{strings.Repeat("a", 64), ""},
		{"", "empty"},
		{strings.Repeat("a", 65), "longer than 64"},
		{"Main", "'M' at offset 0"},
		{"my session", "' ' at offset 2"},
		{"my.session", "'.' at offset 2"},
		{"a/b", "'/' at offset 1"},
		{"café", "'é' at offset 3"},
	}
	for _, tt := range tests {
		err := ValidateName(tt.input)
		if tt.reason == "" {
			if err != nil {
				t.Errorf("ValidateName(%q) = %v, want nil", tt.input, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidName) {
			t.Errorf("ValidateName(%q) = %v, want ErrInvalidName", tt.input, err)
			continue
		}
		if !strings.Contains(err.Error(), tt.reason) {
			t.Errorf("ValidateName(%q) = %q, want it to mention %q", tt.input, err, tt.reason)
		}
	}
}
