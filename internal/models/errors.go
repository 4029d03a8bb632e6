package models

import (
	"fmt"
	"strings"
)

// Run phases reported by PhaseError
const (
	PhaseCatalog = "catalog aggregation"
	PhaseResolve = "chapter/language resolution"
	PhasePages   = "page retrieval"
	PhaseBind    = "document binding"
	PhaseDump    = "image dump"
	PhaseOutput  = "output"
)

// CatalogFetchError is returned when the aggregate catalog cannot be fetched
// or does not match the expected schema.
type CatalogFetchError struct {
	WorkID string
	Op     string
	Err    error
}

func (e *CatalogFetchError) Error() string {
	return fmt.Sprintf("catalog %s: %s: %v", e.WorkID, e.Op, e.Err)
}

func (e *CatalogFetchError) Unwrap() error { return e.Err }

// MetadataFetchError is returned when a chapter's metadata cannot be fetched
// or validated.
type MetadataFetchError struct {
	ChapterID string
	Op        string
	Err       error
}

func (e *MetadataFetchError) Error() string {
	return fmt.Sprintf("chapter %s metadata: %s: %v", e.ChapterID, e.Op, e.Err)
}

func (e *MetadataFetchError) Unwrap() error { return e.Err }

// PageFetchError is returned when the page list of a chapter cannot be
// fetched or validated.
type PageFetchError struct {
	ChapterID string
	Op        string
	Err       error
}

func (e *PageFetchError) Error() string {
	return fmt.Sprintf("chapter %s pages: %s: %v", e.ChapterID, e.Op, e.Err)
}

func (e *PageFetchError) Unwrap() error { return e.Err }

// ImageFetchError is returned when the bytes of a page image cannot be
// downloaded.
type ImageFetchError struct {
	Index int
	URL   string
	Err   error
}

func (e *ImageFetchError) Error() string {
	return fmt.Sprintf("page %d (%s): fetch: %v", e.Index+1, e.URL, e.Err)
}

func (e *ImageFetchError) Unwrap() error { return e.Err }

// DecodeError is returned for image data that cannot be decoded
type DecodeError struct {
	Index int
	URL   string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("page %d (%s): decode: %v", e.Index+1, e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// UnsupportedColorModelError is returned when a decoded image uses a colour
// model that has no exact PDF mapping.
type UnsupportedColorModelError struct {
	Index int
	URL   string
	Model string
}

func (e *UnsupportedColorModelError) Error() string {
	return fmt.Sprintf("page %d (%s): unsupported color model %s", e.Index+1, e.URL, e.Model)
}

// SelectorParseError reports a malformed selector token. It is a warning:
// the token has already been replaced by Fallback.
type SelectorParseError struct {
	Token    string
	Fallback int
}

func (e *SelectorParseError) Error() string {
	return fmt.Sprintf("malformed chapter token %q, using %d", e.Token, e.Fallback)
}

// EmptyResolutionError is returned when a run resolves to nothing
type EmptyResolutionError struct {
	Stage    string
	Selector string
	Language string
}

func (e *EmptyResolutionError) Error() string {
	switch e.Stage {
	case "pages":
		return fmt.Sprintf("chapters %q (%s) have no pages", e.Selector, e.Language)
	default:
		return fmt.Sprintf("no chapters match %q in language %s", e.Selector, e.Language)
	}
}

// PhaseError tags an error with the run phase it happened in
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return e.Phase + ": " + e.Err.Error()
}

func (e *PhaseError) Unwrap() error { return e.Err }

// InPhase wraps err in a PhaseError unless it is nil or already tagged.
func InPhase(phase string, err error) error {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*PhaseError); ok && strings.TrimSpace(pe.Phase) != "" {
		return err
	}
	return &PhaseError{Phase: phase, Err: err}
}
