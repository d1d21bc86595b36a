package middleware

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Input validation and sanitization utilities

// MaxRequirementLength caps free-text requirements accepted over HTTP.
const MaxRequirementLength = 2000

var (
	checklistIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	itemIDPattern      = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)
)

// ValidateChecklistID validates checklist ID format
func ValidateChecklistID(id string) error {
	if id == "" {
		return fmt.Errorf("checklist ID cannot be empty")
	}
	if !checklistIDPattern.MatchString(id) {
		return fmt.Errorf("invalid checklist ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateItemID validates checklist item ID format, e.g. AC-1
func ValidateItemID(id string) error {
	if id == "" {
		return fmt.Errorf("item ID cannot be empty")
	}
	if !itemIDPattern.MatchString(id) {
		return fmt.Errorf("invalid item ID format")
	}
	return nil
}

// ValidateRequirement checks free-text requirement input
func ValidateRequirement(req string) error {
	if strings.TrimSpace(req) == "" {
		return fmt.Errorf("requirement cannot be empty")
	}
	if utf8.RuneCountInString(req) > MaxRequirementLength {
		return fmt.Errorf("requirement exceeds %d characters", MaxRequirementLength)
	}
	return nil
}

// ValidateFilename rejects upload names that try to escape the object key
func ValidateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if filepath.Base(filepath.Clean(name)) != name || strings.Contains(name, "..") {
		return fmt.Errorf("path traversal detected")
	}
	dangerous := []string{"$(", "`", "|", ";", "\n", "\r", "\x00"}
	for _, d := range dangerous {
		if strings.Contains(name, d) {
			return fmt.Errorf("invalid characters in filename")
		}
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// SanitizeHints cleans every hint and drops the empty ones
func SanitizeHints(hints []string) []string {
	out := make([]string, 0, len(hints))
	for _, h := range hints {
		if h = SanitizeString(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidatePage validates 1-based page number
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}
