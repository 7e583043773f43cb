package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"fatal", FatalLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriterLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, WarnLevel)

	log.Info("hidden %d", 1)
	log.Warn("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 2") {
		t.Errorf("expected warn line, got %q", out)
	}
}

func TestWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, DebugLevel)

	log.WithPrefix("map-reduce").WithPrefix("chunk").Info("done")

	if got := buf.String(); !strings.Contains(got, "[INFO] [map-reduce] [chunk] done") {
		t.Errorf("unexpected prefixed output: %q", got)
	}
}

func TestWithPrefix_SharesLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, DebugLevel)
	child := log.WithPrefix("child")

	log.SetLevel(ErrorLevel)
	child.Info("should not appear")

	if buf.Len() != 0 {
		t.Errorf("child logger should follow parent level, got %q", buf.String())
	}
}
