package resolve

import (
	"fmt"
	"sort"
	"strings"
)

type Policy string

const (
	// PolicyPrefer keeps the preferred span of each overlapping pair: a PCI
	// span carrying a card or account marker first, then higher confidence,
	// then the longer span.
	PolicyPrefer Policy = "prefer"
	// PolicyReject fails on the first overlap.
	PolicyReject Policy = "reject"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyPrefer, nil
	case PolicyPrefer, PolicyReject:
		return p, nil
	default:
		return "", fmt.Errorf("unknown overlap policy %q", s)
	}
}

// OverlapError reports two spans that cannot both be rendered.
type OverlapError struct {
	A, B ResolvedSpan
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("overlapping spans %s [%d,%d) and %s [%d,%d)", e.A.Category, e.A.Start, e.A.End, e.B.Category, e.B.Start, e.B.End)
}

// Disjoint reduces spans to a mutually non-overlapping set sorted by Start.
// Zero-width spans carry nothing to highlight and are always dropped. Under
// PolicyPrefer spans are admitted in preference order and a span is dropped
// only when it overlaps one that was kept. The input slice is not modified.
func Disjoint(spans []ResolvedSpan, policy Policy) (kept, dropped []ResolvedSpan, err error) {
	sorted := make([]ResolvedSpan, 0, len(spans))
	for _, s := range spans {
		if s.Len() <= 0 {
			dropped = append(dropped, s)
			continue
		}
		sorted = append(sorted, s)
	}
	SortSpans(sorted)

	if policy == PolicyReject {
		for i := 1; i < len(sorted); i++ {
			if sorted[i].Start < sorted[i-1].End {
				return nil, nil, &OverlapError{A: sorted[i-1], B: sorted[i]}
			}
		}
		return sorted, dropped, nil
	}

	ranked := make([]ResolvedSpan, len(sorted))
	copy(ranked, sorted)
	sort.SliceStable(ranked, func(i, j int) bool { return prefer(ranked[i], ranked[j]) })

	kept = make([]ResolvedSpan, 0, len(ranked))
	for _, s := range ranked {
		// first kept span ending after s starts; only it can overlap s
		i := sort.Search(len(kept), func(i int) bool { return kept[i].End > s.Start })
		if i < len(kept) && kept[i].Start < s.End {
			dropped = append(dropped, s)
			continue
		}
		kept = append(kept, ResolvedSpan{})
		copy(kept[i+1:], kept[i:])
		kept[i] = s
	}
	return kept, dropped, nil
}

// hasPriorityMarker reports a PCI span labelled as a card or account number.
func hasPriorityMarker(s ResolvedSpan) bool {
	return overridesLabel(s.Category, s.MatchedText) || overridesLabel(s.Category, s.EntityType)
}

// prefer orders spans for admission: marked PCI spans first, then higher
// confidence, then the longer span.
func prefer(a, b ResolvedSpan) bool {
	if pa, pb := hasPriorityMarker(a), hasPriorityMarker(b); pa != pb {
		return pa
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.Len() > b.Len()
}
