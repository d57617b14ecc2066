package trace

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestDurationsAt(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := &Analysis{
		Start:        base,
		DetectStart:  base,
		DetectEnd:    base.Add(30 * time.Millisecond),
		ResolveStart: base.Add(30 * time.Millisecond),
		ResolveEnd:   base.Add(31 * time.Millisecond),
	}
	d := a.DurationsAt(base.Add(40 * time.Millisecond))
	if d.Total != 40*time.Millisecond || d.Detect != 30*time.Millisecond || d.Resolve != time.Millisecond {
		t.Fatalf("unexpected durations %+v", d)
	}
	if d.Annotate != 0 {
		t.Fatalf("unset stage should be zero, got %v", d.Annotate)
	}
}

func TestLogAtOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)
	logger.SetLevel(log.DebugLevel)
	a := NewAnalysis()
	a.LogAt(logger, time.Now())
	a.LogAt(logger, time.Now())
	if n := strings.Count(buf.String(), "analysis finished"); n != 1 {
		t.Fatalf("logged %d times", n)
	}
	if !strings.Contains(buf.String(), a.ID) {
		t.Fatalf("trace id missing: %q", buf.String())
	}
}

func TestNewTraceIDFormat(t *testing.T) {
	id := newTraceID()
	if len(id) != 36 || strings.Count(id, "-") != 4 {
		t.Fatalf("unexpected id %q", id)
	}
}
