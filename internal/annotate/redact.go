package annotate

import (
	"sort"
	"strconv"
	"strings"

	"nerlight/internal/resolve"
)

type RedactedItem struct {
	Category    string `json:"category"`
	Original    string `json:"original"`
	Placeholder string `json:"placeholder"`

	seq int
}

// RedactRenderer replaces each entity with a numbered placeholder such as
// [PCI_1]. The same category and value always map to the same placeholder.
// A RedactRenderer holds per-text state; use a new one for every text.
type RedactRenderer struct {
	counters map[string]int
	byValue  map[string]string
	items    map[string]RedactedItem
}

func NewRedactRenderer() *RedactRenderer {
	return &RedactRenderer{
		counters: map[string]int{},
		byValue:  map[string]string{},
		items:    map[string]RedactedItem{},
	}
}

func (r *RedactRenderer) Plain(b *strings.Builder, text string) {
	b.WriteString(text)
}

func (r *RedactRenderer) Entity(b *strings.Builder, span resolve.ResolvedSpan, text, _ string) {
	category := strings.ToUpper(span.Category.String())
	key := category + "|" + text
	placeholder, ok := r.byValue[key]
	if !ok {
		r.counters[category]++
		placeholder = "[" + category + "_" + strconv.Itoa(r.counters[category]) + "]"
		r.byValue[key] = placeholder
		r.items[placeholder] = RedactedItem{Category: category, Original: text, Placeholder: placeholder, seq: r.counters[category]}
	}
	b.WriteString(placeholder)
}

// Items lists every placeholder issued so far, ordered by category and then
// by the order the placeholders were issued.
func (r *RedactRenderer) Items() []RedactedItem {
	items := make([]RedactedItem, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].seq < items[j].seq
	})
	return items
}

// Restore puts the original values back in place of their placeholders.
func Restore(text string, items []RedactedItem) string {
	if len(items) == 0 {
		return text
	}
	pairs := make([]string, 0, len(items)*2)
	for _, item := range items {
		pairs = append(pairs, item.Placeholder, item.Original)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
