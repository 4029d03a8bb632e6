package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dacsang97/mdbind/internal/models"
	"github.com/samber/lo"
)

// AggregateSource returns the raw aggregate catalog of a work
type AggregateSource interface {
	GetAggregate(ctx context.Context, workID string, languages []string) (models.AggregateResponse, error)
}

// Fetch retrieves the aggregate of workID and builds its Catalog. It either
// returns a complete catalog or a *models.CatalogFetchError.
func Fetch(ctx context.Context, src AggregateSource, workID string, languages []string) (*Catalog, error) {
	resp, err := src.GetAggregate(ctx, workID, languages)
	if err != nil {
		var fetchErr *models.CatalogFetchError
		if errors.As(err, &fetchErr) {
			return nil, err
		}
		return nil, &models.CatalogFetchError{WorkID: workID, Op: "request", Err: err}
	}

	entries, err := Flatten(resp)
	if err != nil {
		return nil, &models.CatalogFetchError{WorkID: workID, Op: "validate", Err: err}
	}
	return New(workID, entries), nil
}

// Flatten walks volumes and chapters in document order and returns one entry
// per chapter whose label is a non-negative integer. Entries are not merged.
func Flatten(resp models.AggregateResponse) ([]Entry, error) {
	if resp.Result != "ok" {
		if summary := models.APIErrorSummary(resp.Errors); summary != "" {
			return nil, fmt.Errorf("result %q: %s", resp.Result, summary)
		}
		return nil, fmt.Errorf("result %q", resp.Result)
	}
	if resp.Volumes == nil {
		return nil, errors.New("missing volumes")
	}

	var entries []Entry
	for vi, volume := range resp.Volumes.Values {
		volLabel := lo.FromPtr(volume.Volume)
		if volLabel == "" {
			volLabel = resp.Volumes.Keys[vi]
		}
		if volume.Chapters == nil {
			return nil, fmt.Errorf("volume %q: missing chapters", volLabel)
		}

		for ci, chapter := range volume.Chapters.Values {
			label := lo.FromPtr(chapter.Chapter)
			if label == "" {
				label = volume.Chapters.Keys[ci]
			}
			if chapter.ID == nil || *chapter.ID == "" {
				return nil, fmt.Errorf("volume %q chapter %q: missing id", volLabel, label)
			}

			number, ok := ParseOrdinal(label)
			if !ok {
				continue
			}

			ids := append([]string{*chapter.ID}, lo.Compact(chapter.Others)...)
			entries = append(entries, Entry{
				Number:         number,
				Volume:         volLabel,
				TranslationIDs: ids,
			})
		}
	}
	return entries, nil
}

// ParseOrdinal parses a chapter label into a non-negative integer ordinal.
// Fractional, negative and free-text labels are rejected.
func ParseOrdinal(label string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(label))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
