package sanitizer

import "testing"

func TestClassName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already clean", "Morning Yoga", "Morning Yoga"},
		{"outer whitespace", "  HIIT 45  ", "HIIT 45"},
		{"inner runs", "Power\t\tPilates   Flow", "Power Pilates Flow"},
		{"control chars", "Spin\x00 Class\x07", "Spin Class"},
		{"only spaces", "   ", ""},
		{"unicode kept", "  ヨガ  クラス ", "ヨガ クラス"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassName(tt.input); got != tt.want {
				t.Errorf("ClassName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestToken(t *testing.T) {
	if got := Token(" 481111-1114-abc\n"); got != "481111-1114-abc" {
		t.Errorf("Token() = %q", got)
	}
}

func TestPipeline_Order(t *testing.T) {
	p := Pipeline{
		func(s string) string { return s + "a" },
		func(s string) string { return s + "b" },
	}
	if got := p.Apply("x"); got != "xab" {
		t.Errorf("Apply() = %q, want xab", got)
	}
}
