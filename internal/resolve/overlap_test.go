package resolve

import (
	"errors"
	"testing"

	"nerlight/internal/detect"
)

func TestDisjointPrefer(t *testing.T) {
	tests := []struct {
		name     string
		spans    []ResolvedSpan
		wantKept []ResolvedSpan
	}{
		{
			name: "already disjoint",
			spans: []ResolvedSpan{
				{Start: 6, End: 9, Category: detect.PII, Confidence: 0.5},
				{Start: 0, End: 3, Category: detect.PHI, Confidence: 0.5},
			},
			wantKept: []ResolvedSpan{
				{Start: 0, End: 3, Category: detect.PHI, Confidence: 0.5},
				{Start: 6, End: 9, Category: detect.PII, Confidence: 0.5},
			},
		},
		{
			name: "touching spans do not overlap",
			spans: []ResolvedSpan{
				{Start: 0, End: 3, Category: detect.PII, Confidence: 0.5},
				{Start: 3, End: 6, Category: detect.PII, Confidence: 0.5},
			},
			wantKept: []ResolvedSpan{
				{Start: 0, End: 3, Category: detect.PII, Confidence: 0.5},
				{Start: 3, End: 6, Category: detect.PII, Confidence: 0.5},
			},
		},
		{
			name: "higher confidence wins",
			spans: []ResolvedSpan{
				{Start: 0, End: 10, Category: detect.PII, Confidence: 0.5},
				{Start: 5, End: 15, Category: detect.PHI, Confidence: 0.9},
			},
			wantKept: []ResolvedSpan{{Start: 5, End: 15, Category: detect.PHI, Confidence: 0.9}},
		},
		{
			name: "marked PCI outranks confidence",
			spans: []ResolvedSpan{
				{Start: 0, End: 16, Category: detect.PCI, Confidence: 0.4, EntityType: "CREDITCARDNUMBER"},
				{Start: 0, End: 9, Category: detect.PII, Confidence: 0.99},
			},
			wantKept: []ResolvedSpan{{Start: 0, End: 16, Category: detect.PCI, Confidence: 0.4, EntityType: "CREDITCARDNUMBER"}},
		},
		{
			name: "marker in matched text",
			spans: []ResolvedSpan{
				{Start: 0, End: 9, Category: detect.PII, Confidence: 0.99},
				{Start: 4, End: 12, MatchedText: "ACCOUNTNUM", Category: detect.PCI, Confidence: 0.2},
			},
			wantKept: []ResolvedSpan{{Start: 4, End: 12, MatchedText: "ACCOUNTNUM", Category: detect.PCI, Confidence: 0.2}},
		},
		{
			name: "unmarked PCI competes on confidence",
			spans: []ResolvedSpan{
				{Start: 0, End: 16, Category: detect.PCI, Confidence: 0.4, EntityType: "IBAN"},
				{Start: 0, End: 9, Category: detect.PII, Confidence: 0.99},
			},
			wantKept: []ResolvedSpan{{Start: 0, End: 9, Category: detect.PII, Confidence: 0.99}},
		},
		{
			name: "span freed by a later winner is kept",
			spans: []ResolvedSpan{
				{Start: 0, End: 10, Category: detect.PII, Confidence: 0.9},
				{Start: 2, End: 4, Category: detect.PHI, Confidence: 0.5},
				{Start: 5, End: 20, Category: detect.PHI, Confidence: 0.95},
			},
			wantKept: []ResolvedSpan{
				{Start: 2, End: 4, Category: detect.PHI, Confidence: 0.5},
				{Start: 5, End: 20, Category: detect.PHI, Confidence: 0.95},
			},
		},
		{
			name: "chain keeps alternating winners",
			spans: []ResolvedSpan{
				{Start: 0, End: 4, Category: detect.PII, Confidence: 0.9},
				{Start: 3, End: 8, Category: detect.PII, Confidence: 0.5},
				{Start: 7, End: 12, Category: detect.PHI, Confidence: 0.8},
			},
			wantKept: []ResolvedSpan{
				{Start: 0, End: 4, Category: detect.PII, Confidence: 0.9},
				{Start: 7, End: 12, Category: detect.PHI, Confidence: 0.8},
			},
		},
		{
			name: "equal confidence keeps longer span",
			spans: []ResolvedSpan{
				{Start: 2, End: 5, Category: detect.PII, Confidence: 0.7},
				{Start: 0, End: 10, Category: detect.PHI, Confidence: 0.7},
			},
			wantKept: []ResolvedSpan{{Start: 0, End: 10, Category: detect.PHI, Confidence: 0.7}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept, dropped, err := Disjoint(tt.spans, PolicyPrefer)
			if err != nil {
				t.Fatal(err)
			}
			if len(kept) != len(tt.wantKept) {
				t.Fatalf("kept=%+v want %+v", kept, tt.wantKept)
			}
			for i := range kept {
				if kept[i] != tt.wantKept[i] {
					t.Fatalf("kept=%+v want %+v", kept, tt.wantKept)
				}
			}
			if len(kept)+len(dropped) != len(tt.spans) {
				t.Fatalf("lost spans: kept=%d dropped=%d in=%d", len(kept), len(dropped), len(tt.spans))
			}
		})
	}
}

func TestDisjointDropsOnlyOverlappingSpans(t *testing.T) {
	in := []ResolvedSpan{
		{Start: 0, End: 10, Category: detect.PII, Confidence: 0.9},
		{Start: 2, End: 4, Category: detect.PHI, Confidence: 0.5},
		{Start: 5, End: 20, Category: detect.PHI, Confidence: 0.95},
		{Start: 18, End: 25, Category: detect.PII, Confidence: 0.3},
	}
	kept, dropped, err := Disjoint(in, PolicyPrefer)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range dropped {
		overlaps := false
		for _, k := range kept {
			if d.Start < k.End && k.Start < d.End {
				overlaps = true
			}
		}
		if !overlaps {
			t.Fatalf("%+v dropped without overlapping any kept span %+v", d, kept)
		}
	}
	for i := 1; i < len(kept); i++ {
		if kept[i].Start < kept[i-1].End {
			t.Fatalf("kept spans overlap: %+v", kept)
		}
	}
}

func TestDisjointDropsZeroWidth(t *testing.T) {
	kept, dropped, err := Disjoint([]ResolvedSpan{{Start: 4, End: 4}, {Start: 0, End: 8}}, PolicyReject)
	if err != nil {
		t.Fatal(err)
	}
	if len(kept) != 1 || len(dropped) != 1 || dropped[0].Start != 4 {
		t.Fatalf("kept=%+v dropped=%+v", kept, dropped)
	}
}

func TestDisjointReject(t *testing.T) {
	_, _, err := Disjoint([]ResolvedSpan{{Start: 0, End: 10}, {Start: 9, End: 12}}, PolicyReject)
	var oe *OverlapError
	if !errors.As(err, &oe) {
		t.Fatalf("expected OverlapError, got %v", err)
	}
	if oe.A.Start != 0 || oe.B.Start != 9 {
		t.Fatalf("unexpected pair %+v", oe)
	}
}

func TestDisjointDoesNotMutateInput(t *testing.T) {
	in := []ResolvedSpan{{Start: 5, End: 6}, {Start: 0, End: 1}}
	if _, _, err := Disjoint(in, PolicyPrefer); err != nil {
		t.Fatal(err)
	}
	if in[0].Start != 5 {
		t.Fatalf("input reordered: %+v", in)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != PolicyPrefer {
		t.Fatalf("p=%q err=%v", p, err)
	}
	if p, err := ParsePolicy(" Reject "); err != nil || p != PolicyReject {
		t.Fatalf("p=%q err=%v", p, err)
	}
	if _, err := ParsePolicy("merge"); err == nil {
		t.Fatal("expected error")
	}
}
