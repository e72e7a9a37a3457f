package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateOutputFolder checks that an export folder path is usable.
//
// The validation rules are intentionally conservative:
//   - No empty paths
//   - No null bytes or control characters
//   - Maximum length of 1024 characters
//
// Existence and permissions are not checked here; the export pipeline
// reports those per tile so that one bad path never aborts a batch.
func ValidateOutputFolder(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidPath, "output folder cannot be empty")
	}

	const maxPathLength = 1024
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "output folder too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "output folder contains invalid characters")
		}
	}
	return nil
}

// ValidateFilename checks that a produced file name is a plain basename.
// It rejects path separators, traversal and reserved device names.
func ValidateFilename(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPath, "file name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidPath, "file name cannot contain path separators: %q", name)
	}
	if name == "." || name == ".." {
		return New(ErrCodeInvalidPath, "file name cannot be %q", name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "file name contains control characters")
		}
	}
	stem := strings.ToUpper(name)
	if i := strings.IndexByte(stem, '.'); i >= 0 {
		stem = stem[:i]
	}
	if reservedNames[stem] {
		return New(ErrCodeInvalidPath, "file name is a reserved device name: %q", name)
	}
	return nil
}

var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// cardCodeRegex matches ArkhamDB card codes (five digits, optional letter suffix).
var cardCodeRegex = regexp.MustCompile(`^[0-9]{5}[a-z]?$`)

// ValidateCardCode validates an ArkhamDB card code such as "01001" or "01513b".
func ValidateCardCode(code string) error {
	if code == "" {
		return New(ErrCodeInvalidInput, "card code cannot be empty")
	}
	if !cardCodeRegex.MatchString(code) {
		return New(ErrCodeInvalidInput, "invalid card code: %q", code)
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

	return nil
}
