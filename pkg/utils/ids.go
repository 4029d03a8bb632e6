package utils

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ParseMangaDexID accepts a bare MangaDex UUID or a mangadex.org URL such as
// https://mangadex.org/title/<id>/<slug> and returns the canonical id.
func ParseMangaDexID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty identifier")
	}

	if id, err := uuid.Parse(raw); err == nil {
		return id.String(), nil
	}

	if !IsAbsoluteURL(raw) {
		return "", fmt.Errorf("%q is neither a UUID nor a URL", raw)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, segment := range segments {
		if (segment == "title" || segment == "manga") && i+1 < len(segments) {
			id, err := uuid.Parse(segments[i+1])
			if err != nil {
				return "", fmt.Errorf("invalid id in %s: %w", raw, err)
			}
			return id.String(), nil
		}
	}

	return "", fmt.Errorf("could not extract id from URL: %s", raw)
}
