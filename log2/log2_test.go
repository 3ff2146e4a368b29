package log2

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFilter(t *testing.T) {
	t.Parallel()

	buf := bytes.NewBuffer(nil)
	l := NewWriter(buf, LInfo)
	l.SetFlags(0)
	l.Debugf("hidden")
	l.Infof("shown i=%d", 1)
	l.Errorf("shown too")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line leaked through LInfo filter: %q", out)
	}
	if !strings.Contains(out, "shown i=1") || !strings.Contains(out, "error: shown too") {
		t.Errorf("missing expected lines: %q", out)
	}

	l.SetLevel(LDebug)
	l.Debugf("now visible")
	if !strings.Contains(buf.String(), "debug: now visible") {
		t.Errorf("debug line missing after SetLevel: %q", buf.String())
	}
}

func TestNilSafe(t *testing.T) {
	t.Parallel()

	var l *Log
	l.SetLevel(LDebug)
	l.SetPrefix("x")
	if l.Enabled(LError) {
		t.Error("nil log must report disabled")
	}
	l.Errorf("must not panic")
	if c := l.Clone(LInfo); c != nil {
		t.Error("nil Clone must stay nil")
	}
}
