package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestStderrLoggerFormatsLevelAndIdentifier(t *testing.T) {
	var buf bytes.Buffer
	l := &stderrLogger{w: &buf, identifier: "llmnrd"}

	l.Warningf("interface %d lost its last address", 3)

	got := buf.String()
	if !strings.Contains(got, "llmnrd") || !strings.Contains(got, "WARNING") || !strings.Contains(got, "interface 3 lost its last address") {
		t.Fatalf("unexpected log line: %q", got)
	}
}

func TestStderrLoggerAllLevels(t *testing.T) {
	var buf bytes.Buffer
	l := &stderrLogger{w: &buf, identifier: "llmnrd"}

	l.Critf("a")
	l.Errf("b")
	l.Warningf("c")
	l.Noticef("d")
	l.Infof("e")
	l.Debugf("f")

	for _, level := range []string{"CRIT", "ERR", "WARNING", "NOTICE", "INFO", "DEBUG"} {
		if !strings.Contains(buf.String(), level) {
			t.Fatalf("missing level %q in output: %q", level, buf.String())
		}
	}
}
