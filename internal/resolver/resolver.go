// Package resolver maps a chapter selector and a language onto the concrete
// translation ids to download.
package resolver

import (
	"context"
	"strings"

	"github.com/dacsang97/mdbind/internal/catalog"
	"github.com/dacsang97/mdbind/internal/models"
	"github.com/samber/lo"
)

// MetaSource returns the metadata of one translation id
type MetaSource interface {
	GetChapter(ctx context.Context, chapterID string) (models.ChapterMeta, error)
}

// Resolution is the accepted translation of one chapter ordinal
type Resolution struct {
	Number    int
	ChapterID string
	Meta      models.ChapterMeta
}

// Result lists resolved chapters in ascending ordinal order. Skipped holds
// catalog ordinals that matched the selector but had no usable translation;
// Missing holds single ordinals the catalog does not list at all.
type Result struct {
	Chapters []Resolution
	Skipped  []int
	Missing  []int
	Fetches  int
}

// IDs returns the resolved chapter ids in order
func (r Result) IDs() []string {
	return lo.Map(r.Chapters, func(c Resolution, _ int) string { return c.ChapterID })
}

// Numbers returns the resolved ordinals in order
func (r Result) Numbers() []int {
	return lo.Map(r.Chapters, func(c Resolution, _ int) int { return c.Number })
}

// Resolver walks a catalog against a MetaSource
type Resolver struct {
	meta MetaSource
	logf func(format string, args ...any)
}

// New creates a Resolver. logf may be nil.
func New(meta MetaSource, logf func(format string, args ...any)) *Resolver {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Resolver{meta: meta, logf: logf}
}

// Resolve returns, for every catalog ordinal covered by sel, the first
// translation id in catalog order whose language equals language and which
// is not hosted externally. Ordinals without such an id are skipped. An
// empty overall result is a *models.EmptyResolutionError.
func (r *Resolver) Resolve(ctx context.Context, sel Selector, language string, cat *catalog.Catalog) (Result, error) {
	var res Result
	language = normalizeLanguage(language)

	matched := lo.Filter(cat.Entries(), func(e catalog.Entry, _ int) bool {
		return sel.Contains(e.Number)
	})

	res.Missing = lo.Filter(sel.Singles(), func(n int, _ int) bool {
		_, ok := cat.Lookup(n)
		return !ok
	})

	for _, entry := range matched {
		found, err := r.resolveEntry(ctx, entry, language, &res)
		if err != nil {
			return Result{}, err
		}
		if found == nil {
			r.logf("[-] Chapter %d: no %s translation available, skipping\n", entry.Number, language)
			res.Skipped = append(res.Skipped, entry.Number)
			continue
		}
		r.logf("[+] Chapter %d: using %s\n", entry.Number, found.ChapterID)
		res.Chapters = append(res.Chapters, *found)
	}

	if len(res.Chapters) == 0 {
		return res, &models.EmptyResolutionError{Stage: "chapters", Selector: sel.Raw, Language: language}
	}
	return res, nil
}

func (r *Resolver) resolveEntry(ctx context.Context, entry catalog.Entry, language string, res *Result) (*Resolution, error) {
	for _, id := range entry.TranslationIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		meta, err := r.meta.GetChapter(ctx, id)
		res.Fetches++
		if err != nil {
			return nil, err
		}

		if !MatchLanguage(meta.Language, language) {
			continue
		}
		if meta.External() {
			r.logf("[-] Chapter %d: %s is hosted at %s, skipping\n", entry.Number, id, meta.ExternalURL)
			continue
		}
		return &Resolution{Number: entry.Number, ChapterID: id, Meta: meta}, nil
	}
	return nil, nil
}

// MatchLanguage compares two MangaDex language codes
func MatchLanguage(a, b string) bool {
	return normalizeLanguage(a) == normalizeLanguage(b)
}

func normalizeLanguage(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
