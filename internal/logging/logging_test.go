package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewWithWriterFormats(t *testing.T) {
	var text bytes.Buffer
	NewWithWriter("dev", &text).Debug("dbg", "student_id", "s1")
	if !strings.Contains(text.String(), "level=DEBUG") || !strings.Contains(text.String(), "student_id=s1") {
		t.Fatalf("expected text debug line, got %q", text.String())
	}

	var js bytes.Buffer
	l := NewWithWriter("prod", &js)
	l.Debug("hidden")
	l.Info("shown", "report", "q3")
	out := js.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug must be filtered in prod: %q", out)
	}
	if !strings.Contains(out, `"report":"q3"`) {
		t.Fatalf("expected json attribute, got %q", out)
	}
}
