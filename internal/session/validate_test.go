package session

import (
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "main", false},
		{"valid with numbers", "work123", false},
		{"valid with hyphen", "my-session", false},
		{"valid with underscore", "my_session", false},
		{"valid single char", "a", false},
		{"valid max length", strings.Repeat("a", 64), false},
		{"empty", "", true},
		{"uppercase", "Main", true},
		{"space", "my session", true},
		{"dot", "my.session", true},
		{"too long", strings.Repeat("a", 65), true},
		{"special chars", "my@session", true},
		{"slash", "my/session", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRecipient(t *testing.T) {
	sessionID := "05" + strings.Repeat("ab", 32)
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"session id", sessionID, false},
		{"public chat identifier", "chat.example.1", false},
		{"short key", "05bob", false},
		{"empty", "", true},
		{"space", "05 bob", true},
		{"slash", "a/b", true},
		{"too long", strings.Repeat("a", 257), true},
		{"uppercase session id", "05" + strings.Repeat("AB", 32), true},
		{"non-hex session id", "05" + strings.Repeat("zz", 32), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecipient(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRecipient(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
