package trace

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Analysis records stage timestamps for one text passing through the
// detect, resolve and annotate stages.
type Analysis struct {
	ID string

	Start time.Time

	DetectStart time.Time
	DetectEnd   time.Time

	ResolveStart time.Time
	ResolveEnd   time.Time

	AnnotateStart time.Time
	AnnotateEnd   time.Time

	logOnce sync.Once
}

func NewAnalysis() *Analysis {
	return &Analysis{ID: newTraceID(), Start: time.Now()}
}

func newTraceID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("trace-%d", time.Now().UnixNano())
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

type Durations struct {
	Total    time.Duration `json:"total"`
	Detect   time.Duration `json:"detect"`
	Resolve  time.Duration `json:"resolve"`
	Annotate time.Duration `json:"annotate"`
}

func (a *Analysis) DurationsAt(end time.Time) Durations {
	if a == nil {
		return Durations{}
	}
	return Durations{
		Total:    durationBetween(a.Start, end),
		Detect:   durationBetween(a.DetectStart, a.DetectEnd),
		Resolve:  durationBetween(a.ResolveStart, a.ResolveEnd),
		Annotate: durationBetween(a.AnnotateStart, a.AnnotateEnd),
	}
}

// LogAt writes the stage durations once at debug level.
func (a *Analysis) LogAt(logger *log.Logger, end time.Time) {
	if a == nil || logger == nil {
		return
	}
	a.logOnce.Do(func() {
		d := a.DurationsAt(end)
		logger.Debug("analysis finished", "trace", a.ID, "total", d.Total, "detect", d.Detect, "resolve", d.Resolve, "annotate", d.Annotate)
	})
}

func durationBetween(start, end time.Time) time.Duration {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return 0
	}
	return end.Sub(start)
}
