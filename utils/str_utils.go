package utils

import (
	"path/filepath"
	"strings"
)

// FindFilePathCharacters checks if a string contains illegal file path characters like ".." or the system path separator.
func FindFilePathCharacters(s string) bool {
	return strings.Contains(s, "..") || strings.ContainsRune(s, filepath.Separator) || strings.ContainsRune(s, '/')
}

// IsNotBlank checks if the provided string pointer is non-nil and its trimmed value is not empty.
func IsNotBlank(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
