package stats

import (
	"sort"
	"strings"

	"nerlight/internal/detect"
	"nerlight/internal/resolve"
)

type Summary struct {
	Detections  CountStats        `json:"detections"`
	Resolver    resolve.Report    `json:"resolver"`
	Highlighted CountStats        `json:"highlighted"`
	Dropped     []DroppedSpan     `json:"dropped,omitempty"`
	TopTypes    []EntityTypeStats `json:"top_entity_types,omitempty"`
	Coverage    float64           `json:"coverage"`
}

type CountStats struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"by_category"`
}

type DroppedSpan struct {
	Category   string  `json:"category"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
}

type EntityTypeStats struct {
	EntityType string `json:"entity_type"`
	Count      int    `json:"count"`
}

type Options struct {
	TextLen int
	TopN    int
}

// Collect summarises one analysis: what each detector reported, what the
// resolver did with it and what ended up highlighted.
func Collect(batch detect.Batch, report resolve.Report, kept, dropped []resolve.ResolvedSpan, opts Options) Summary {
	topN := opts.TopN
	if topN <= 0 {
		topN = 5
	}
	out := Summary{
		Detections:  CountStats{ByCategory: map[string]int{}},
		Highlighted: CountStats{ByCategory: map[string]int{}},
		Resolver:    report,
	}

	types := map[string]int{}
	for c, ds := range batch {
		key := strings.ToUpper(strings.TrimSpace(c.String()))
		out.Detections.ByCategory[key] += len(ds)
		out.Detections.Total += len(ds)
	}

	covered := 0
	for _, s := range kept {
		key := strings.ToUpper(strings.TrimSpace(s.Category.String()))
		out.Highlighted.ByCategory[key]++
		out.Highlighted.Total++
		covered += s.Len()
		if t := strings.TrimSpace(s.EntityType); t != "" {
			types[strings.ToUpper(t)]++
		}
	}
	if opts.TextLen > 0 {
		out.Coverage = float64(covered) / float64(opts.TextLen)
	}

	for _, s := range dropped {
		out.Dropped = append(out.Dropped, DroppedSpan{Category: s.Category.String(), Start: s.Start, End: s.End, Confidence: s.Confidence})
	}

	for t, n := range types {
		out.TopTypes = append(out.TopTypes, EntityTypeStats{EntityType: t, Count: n})
	}
	sort.Slice(out.TopTypes, func(i, j int) bool {
		if out.TopTypes[i].Count == out.TopTypes[j].Count {
			return out.TopTypes[i].EntityType < out.TopTypes[j].EntityType
		}
		return out.TopTypes[i].Count > out.TopTypes[j].Count
	})
	if len(out.TopTypes) > topN {
		out.TopTypes = out.TopTypes[:topN]
	}
	return out
}
