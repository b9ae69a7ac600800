package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("Running", statusOK, "yes", false)
	if !strings.Contains(line, "Running:") || !strings.Contains(line, "[OK] yes") {
		t.Errorf("unexpected line %q", line)
	}
	if strings.Contains(line, ansiGreen) {
		t.Error("plain render must not contain ANSI codes")
	}
}

func TestRenderStatusLineColorized(t *testing.T) {
	line := renderStatusLine("Queue", statusError, "2 failed", true)
	if !strings.HasPrefix(line, ansiRed) || !strings.HasSuffix(line, ansiReset) {
		t.Errorf("colorized line missing ANSI wrapping: %q", line)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Error("buffer writer must not be colorized")
	}
}
