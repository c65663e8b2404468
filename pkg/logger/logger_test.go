package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestInit_JSONOutput(t *testing.T) {
	Reset()
	defer Reset()

	var buf bytes.Buffer
	log := Init("debug", false, &buf)
	log.Info().Str("component", "test").Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"message":"hello"`) {
		t.Fatalf("expected JSON log line, got %q", out)
	}
	if !strings.Contains(out, `"component":"test"`) {
		t.Fatalf("expected component field, got %q", out)
	}
}

func TestInit_OnlyFirstCallWins(t *testing.T) {
	Reset()
	defer Reset()

	var first, second bytes.Buffer
	Init("info", false, &first)
	log := Init("debug", false, &second)

	log.Info().Msg("routed")
	if second.Len() != 0 {
		t.Fatalf("second Init must not replace the root logger")
	}
	if !strings.Contains(first.String(), "routed") {
		t.Fatalf("expected output on the first writer, got %q", first.String())
	}
}

func TestFor_BeforeInitPanics(t *testing.T) {
	Reset()
	defer Reset()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	For("session")
}

func TestInit_LevelFiltering(t *testing.T) {
	Reset()
	defer Reset()

	var buf bytes.Buffer
	log := Init("warn", false, &buf)
	log.Debug().Msg("suppressed")
	log.Warn().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Fatalf("debug line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Fatalf("warn line missing: %q", out)
	}
}
