package natskv

import "testing"

func TestKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"user:1", "user.1"},
		{"idem:abc def", "idem.abc_def"},
		{"plain", "plain"},
		{"a:*:>", "a._._"},
	}
	for _, tt := range tests {
		if got := Key(tt.in); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
