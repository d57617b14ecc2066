// Package resolve merges the output of several category detectors into one
// span set with at most one entry per (start, end) pair, and optionally
// reduces that set to mutually disjoint spans.
package resolve

import (
	"sort"
	"strings"

	"nerlight/internal/detect"
)

// ResolvedSpan is the winning annotation for one distinct (Start, End) pair.
type ResolvedSpan struct {
	Start       int             `json:"start"`
	End         int             `json:"end"`
	MatchedText string          `json:"matched_text"`
	Category    detect.Category `json:"category"`
	Confidence  float64         `json:"confidence"`
	EntityType  string          `json:"entity_type,omitempty"`
}

func (s ResolvedSpan) Len() int { return s.End - s.Start }

type spanKey struct {
	start, end int
}

// priorityMarkers in a PCI detection's matched text force the PCI label on
// collision regardless of confidence.
var priorityMarkers = []string{"ACCOUNTNUM", "CREDITCARDNUMBER"}

// Report counts what happened while resolving a batch.
type Report struct {
	Inputs     int `json:"inputs"`
	Resolved   int `json:"resolved"`
	Collisions int `json:"collisions"`
	Overrides  int `json:"overrides"`
	Replaced   int `json:"replaced"`
	Discarded  int `json:"discarded"`
}

// Resolve deduplicates batch by (start, end). On collision a PCI detection
// carrying a priority marker relabels the existing entry as PCI; otherwise a
// strictly more confident detection replaces it, and anything else is
// discarded. The result is sorted by Start, longer spans first.
func Resolve(batch detect.Batch) []ResolvedSpan {
	spans, _ := ResolveWithReport(batch)
	return spans
}

// ResolveChecked validates every detection against text before resolving.
func ResolveChecked(text string, batch detect.Batch) ([]ResolvedSpan, error) {
	if err := detect.ValidateBatch(text, batch); err != nil {
		return nil, err
	}
	return Resolve(batch), nil
}

func ResolveWithReport(batch detect.Batch) ([]ResolvedSpan, Report) {
	var report Report
	if len(batch) == 0 {
		return nil, report
	}

	entries := make(map[spanKey]*ResolvedSpan)
	for _, c := range categoryOrder(batch) {
		for _, d := range batch[c] {
			report.Inputs++
			key := spanKey{start: d.Start, end: d.End}
			cur, ok := entries[key]
			if !ok {
				entries[key] = fromDetection(c, d)
				continue
			}
			report.Collisions++
			switch {
			case overridesLabel(c, d.MatchedText):
				cur.Category = detect.PCI
				report.Overrides++
			case d.Confidence > cur.Confidence:
				*cur = *fromDetection(c, d)
				report.Replaced++
			default:
				report.Discarded++
			}
		}
	}

	if len(entries) == 0 {
		return nil, report
	}
	out := make([]ResolvedSpan, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e)
	}
	SortSpans(out)
	report.Resolved = len(out)
	return out, report
}

func fromDetection(c detect.Category, d detect.Detection) *ResolvedSpan {
	return &ResolvedSpan{
		Start:       d.Start,
		End:         d.End,
		MatchedText: d.MatchedText,
		Category:    c,
		Confidence:  d.Confidence,
		EntityType:  d.EntityType,
	}
}

func overridesLabel(c detect.Category, matched string) bool {
	if c != detect.PCI {
		return false
	}
	for _, m := range priorityMarkers {
		if strings.Contains(matched, m) {
			return true
		}
	}
	return false
}

// categoryOrder visits PII and PHI first, then any other categories sorted
// by name, and PCI last so that its override sees every other detector's
// entry for the same span.
func categoryOrder(batch detect.Batch) []detect.Category {
	rank := func(c detect.Category) int {
		switch c {
		case detect.PII:
			return 0
		case detect.PHI:
			return 1
		case detect.PCI:
			return 3
		default:
			return 2
		}
	}
	out := batch.Categories()
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i]) < rank(out[j])
	})
	return out
}

// SortSpans orders spans by Start ascending, then End descending so that the
// enclosing span precedes anything nested at the same start, then by
// category for a stable result.
func SortSpans(spans []ResolvedSpan) {
	sort.SliceStable(spans, func(i, j int) bool {
		a, b := spans[i], spans[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End > b.End
		}
		return a.Category < b.Category
	})
}
