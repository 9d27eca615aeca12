package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// communityIDRegex matches identifiers safe for URLs, cache keys and file names.
var communityIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateCommunityID validates a community identifier for safety and correctness.
// It rejects identifiers that could be used for path traversal or key injection.
//
// The validation rules are intentionally conservative:
//   - No empty identifiers
//   - No control characters
//   - No path traversal sequences (..)
//   - Maximum length of 128 characters
func ValidateCommunityID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "community id cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "community id too long (max 128 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "community id contains invalid control characters")
		}
	}

	if strings.Contains(id, "..") {
		return New(ErrCodeInvalidInput, "community id contains invalid characters: %q", "..")
	}

	if !communityIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid community id: %q", id)
	}

	return nil
}

// widgetTypeRegex matches registry keys: lowercase, starting with a letter.
var widgetTypeRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// ValidateWidgetType validates a widget type name.
func ValidateWidgetType(name string) error {
	if name == "" {
		return New(ErrCodeInvalidTemplate, "widget type cannot be empty")
	}

	if len(name) > 64 {
		return New(ErrCodeInvalidTemplate, "widget type too long (max 64 characters)")
	}

	if !widgetTypeRegex.MatchString(name) {
		return New(ErrCodeInvalidTemplate, "invalid widget type: %q", name)
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	for _, r := range rawURL {
		if unicode.IsControl(r) || unicode.IsSpace(r) || r == '"' || r == '\'' {
			return New(ErrCodeInvalidInput, "URL contains invalid characters")
		}
	}

	return nil
}

// handleRegex matches Twitter handles with an optional leading @.
var handleRegex = regexp.MustCompile(`^@?[A-Za-z0-9_]{1,15}$`)

// ValidateHandle validates a Twitter handle.
func ValidateHandle(handle string) error {
	if !handleRegex.MatchString(handle) {
		return New(ErrCodeInvalidInput, "invalid handle: %q", handle)
	}
	return nil
}

// colorRegex matches hex colors (#rgb, #rrggbb) and plain CSS color names.
var colorRegex = regexp.MustCompile(`^(#[0-9A-Fa-f]{3}|#[0-9A-Fa-f]{6}|[a-z]{3,20})$`)

// ValidateColor validates a CSS color value used in widget styling.
func ValidateColor(color string) error {
	if !colorRegex.MatchString(color) {
		return New(ErrCodeInvalidInput, "invalid color: %q", color)
	}
	return nil
}
