// Package catalog holds the chapter catalog of one work: chapter ordinals
// mapped to the translation ids available for them, sorted by ordinal.
package catalog

import (
	"sort"

	"github.com/samber/lo"
)

// Entry is one chapter ordinal with its translations in catalog order
type Entry struct {
	Number         int
	Volume         string
	TranslationIDs []string
}

// Catalog is read-only once built
type Catalog struct {
	WorkID  string
	entries []Entry
}

// New merges entries sharing an ordinal and sorts the result ascending.
// Merging keeps the position and volume of the first occurrence and appends
// the translation ids of later occurrences, dropping duplicates.
func New(workID string, entries []Entry) *Catalog {
	merged := make([]Entry, 0, len(entries))
	index := make(map[int]int, len(entries))

	for _, e := range entries {
		if i, ok := index[e.Number]; ok {
			merged[i].TranslationIDs = lo.Uniq(append(merged[i].TranslationIDs, e.TranslationIDs...))
			continue
		}
		index[e.Number] = len(merged)
		merged = append(merged, Entry{
			Number:         e.Number,
			Volume:         e.Volume,
			TranslationIDs: lo.Uniq(append([]string(nil), e.TranslationIDs...)),
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Number < merged[j].Number
	})

	return &Catalog{WorkID: workID, entries: merged}
}

// Len returns the number of distinct ordinals
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns a copy of all entries in ascending order
func (c *Catalog) Entries() []Entry {
	return lo.Map(c.entries, func(e Entry, _ int) Entry {
		e.TranslationIDs = append([]string(nil), e.TranslationIDs...)
		return e
	})
}

// Numbers returns the ordinals in ascending order
func (c *Catalog) Numbers() []int {
	return lo.Map(c.entries, func(e Entry, _ int) int { return e.Number })
}

// Lookup finds the entry for ordinal n
func (c *Catalog) Lookup(n int) (Entry, bool) {
	i := sort.Search(len(c.entries), func(i int) bool { return c.entries[i].Number >= n })
	if i < len(c.entries) && c.entries[i].Number == n {
		return c.entries[i], true
	}
	return Entry{}, false
}
