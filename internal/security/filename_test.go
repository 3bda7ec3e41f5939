package security

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "clean name passes through",
			input: "bench-run.3",
			want:  "bench-run.3",
		},
		{
			name:  "spaces become underscores",
			input: "bench run",
			want:  "bench_run",
		},
		{
			name:  "timestamped session name",
			input: "run 2026-03-14T09:00:00Z",
			want:  "run_2026-03-14T09_00_00Z",
		},
		{
			name:  "path traversal is stripped",
			input: "../../etc/passwd",
			want:  "etc_passwd",
		},
		{
			name:  "runs of bad characters collapse to one underscore",
			input: "a  / \t b",
			want:  "a_b",
		},
		{
			name:  "empty input",
			input: "",
			want:  "unknown",
		},
		{
			name:  "nothing survives sanitizing",
			input: "///",
			want:  "unknown",
		},
		{
			name:  "long input is truncated",
			input: strings.Repeat("a", 300),
			want:  strings.Repeat("a", 128),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeFilename(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
