package utils

import (
	"net/url"
	"os"
	"path"
	"strings"
)

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether path exists and is a directory
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsAbsoluteURL checks if a URL is absolute
func IsAbsoluteURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// FilenameFromURL extracts a filename from a URL
func FilenameFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	if parsed, err := url.Parse(raw); err == nil {
		if name := path.Base(parsed.Path); name != "" && name != "." && name != "/" {
			return name
		}
	}
	name := path.Base(StripQueryFragment(raw))
	name = strings.Trim(name, "/")
	if name == "" {
		return ""
	}
	return name
}

// StripQueryFragment removes query parameters and fragments from a URL
func StripQueryFragment(link string) string {
	if idx := strings.IndexAny(link, "?#"); idx >= 0 {
		return link[:idx]
	}
	return link
}

// EscapeFilename replaces characters that are invalid in file names
func EscapeFilename(name string) string {
	replacer := strings.NewReplacer(
		"~", "_", "#", "_", "%", "_", "&", "_", "*", "_",
		"{", "_", "}", "_", "\\", "_", "<", "_", ">", "_",
		"?", "_", "/", "_", "`", "_", "'", "_", `"`, "_",
		"|", "_", "+", "_", ":", "_",
	)
	return strings.TrimSpace(replacer.Replace(name))
}
