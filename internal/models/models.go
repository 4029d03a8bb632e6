package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// APIError is one entry of the "errors" list MangaDex returns alongside
// result "error".
type APIError struct {
	ID     string `json:"id"`
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// AggregateResponse represents the /manga/{id}/aggregate payload
type AggregateResponse struct {
	Result  string                       `json:"result"`
	Volumes *OrderedMap[AggregateVolume] `json:"volumes"`
	Errors  []APIError                   `json:"errors"`
}

// AggregateVolume groups the chapters of one volume label
type AggregateVolume struct {
	Volume   *string                       `json:"volume"`
	Count    int                           `json:"count"`
	Chapters *OrderedMap[AggregateChapter] `json:"chapters"`
}

// AggregateChapter is one chapter label with its primary and alternate
// translation ids.
type AggregateChapter struct {
	Chapter *string  `json:"chapter"`
	ID      *string  `json:"id"`
	Others  []string `json:"others"`
	Count   int      `json:"count"`
}

// ChapterResponse represents the /chapter/{id} payload
type ChapterResponse struct {
	Result string       `json:"result"`
	Data   *ChapterData `json:"data"`
	Errors []APIError   `json:"errors"`
}

// ChapterData is the entity wrapper of a chapter
type ChapterData struct {
	ID         *string            `json:"id"`
	Type       string             `json:"type"`
	Attributes *ChapterAttributes `json:"attributes"`
}

// ChapterAttributes holds the optional fields of a chapter entity
type ChapterAttributes struct {
	Volume             *string `json:"volume"`
	Chapter            *string `json:"chapter"`
	Title              *string `json:"title"`
	TranslatedLanguage *string `json:"translatedLanguage"`
	ExternalURL        *string `json:"externalUrl"`
	Pages              *int    `json:"pages"`
}

// AtHomeResponse represents the /at-home/server/{id} payload
type AtHomeResponse struct {
	Result  string         `json:"result"`
	BaseURL *string        `json:"baseUrl"`
	Chapter *AtHomeChapter `json:"chapter"`
	Errors  []APIError     `json:"errors"`
}

// AtHomeChapter lists page filenames for both quality tiers
type AtHomeChapter struct {
	Hash      *string  `json:"hash"`
	Data      []string `json:"data"`
	DataSaver []string `json:"dataSaver"`
}

// ChapterMeta is the validated view of a chapter entity used during
// resolution.
type ChapterMeta struct {
	ID          string
	Language    string
	Chapter     string
	Volume      string
	Title       string
	Pages       int
	ExternalURL string
}

// External reports whether the chapter is hosted off-site and therefore has
// no pages to fetch.
func (m ChapterMeta) External() bool {
	return strings.TrimSpace(m.ExternalURL) != ""
}

// Quality selects which page set of a chapter is fetched
type Quality int

const (
	QualityStandard Quality = iota
	QualityCompressed
)

// Segment returns the URL path segment of the quality tier
func (q Quality) Segment() string {
	if q == QualityCompressed {
		return "data-saver"
	}
	return "data"
}

func (q Quality) String() string {
	if q == QualityCompressed {
		return "compressed"
	}
	return "standard"
}

// Files picks the filename list matching q.
func (c AtHomeChapter) Files(q Quality) []string {
	if q == QualityCompressed {
		return c.DataSaver
	}
	return c.Data
}

// OrderedMap decodes a JSON object while keeping its key order. MangaDex
// also sends an empty array in place of an empty object, and arrays for some
// titles; both are accepted, array elements get an empty key.
type OrderedMap[T any] struct {
	Keys   []string
	Values []T
}

func (m *OrderedMap[T]) UnmarshalJSON(data []byte) error {
	m.Keys, m.Values = nil, nil

	switch trimmed := bytes.TrimSpace(data); {
	case bytes.Equal(trimmed, []byte("null")):
		return nil
	case bytes.HasPrefix(trimmed, []byte("[")):
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		m.Keys = make([]string, len(items))
		m.Values = items
		return nil
	case bytes.HasPrefix(trimmed, []byte("{")):
		om := orderedmap.New[string, T]()
		if err := json.Unmarshal(trimmed, om); err != nil {
			return err
		}
		for pair := om.Oldest(); pair != nil; pair = pair.Next() {
			m.Keys = append(m.Keys, pair.Key)
			m.Values = append(m.Values, pair.Value)
		}
		return nil
	default:
		return fmt.Errorf("expected object or array, got %.20s", trimmed)
	}
}

// APIErrorSummary joins the titles and details of errs for error messages.
func APIErrorSummary(errs []APIError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := e.Title
		if e.Detail != "" {
			msg += ": " + e.Detail
		}
		if msg != "" {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "; ")
}
