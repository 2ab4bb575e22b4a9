package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrUsage            = errors.New("usage error")
	ErrSourceNotFound   = errors.New("source directory not found")
	ErrManifestNotFound = errors.New("navigation manifest not found")
	ErrUnknownComponent = errors.New("no title configured for component directory")
	ErrBrokenMenuLink   = errors.New("menu link does not resolve to a published page")
	ErrParsing          = errors.New("parsing error")    // Wraps specific parsing error (HTML, YAML, front matter)
	ErrFilesystem       = errors.New("filesystem error") // Wraps os errors
	ErrDatabase         = errors.New("database error")   // Wraps badger errors
	ErrMarkdownRender   = errors.New("failed to render markdown to HTML")
	ErrConfigValidation = errors.New("configuration validation error")
)

// WrapErrorf prefixes err with a formatted message, keeping it matchable via errors.Is.
// Returns nil when err is nil.
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// CategorizeError maps an error to a predefined category string for logging.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrUsage):
		return "Usage"
	case errors.Is(err, ErrSourceNotFound):
		return "Input_SourceMissing"
	case errors.Is(err, ErrManifestNotFound):
		return "Input_ManifestMissing"
	case errors.Is(err, ErrUnknownComponent):
		return "Config_UnknownComponent"
	case errors.Is(err, ErrBrokenMenuLink):
		return "Manifest_BrokenLink"
	case errors.Is(err, ErrParsing):
		errMsg := err.Error()
		if strings.Contains(errMsg, "HTML") {
			return "Content_ParsingHTML"
		}
		if strings.Contains(errMsg, "YAML") {
			return "Content_ParsingYAML"
		}
		if strings.Contains(errMsg, "front matter") {
			return "Content_ParsingFrontMatter"
		}
		return "Content_ParsingOther"
	case errors.Is(err, ErrMarkdownRender):
		return "Content_Render"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "Filesystem_Permission"
		}
		if errors.Is(err, os.ErrNotExist) {
			return "Filesystem_NotExist"
		}
		if errors.Is(err, os.ErrExist) {
			return "Filesystem_Exist"
		}
		return "Filesystem_Other"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// Unwrapped os errors still deserve a filesystem bucket
	if errors.Is(err, os.ErrNotExist) {
		return "Filesystem_NotExist"
	}
	if errors.Is(err, os.ErrPermission) {
		return "Filesystem_Permission"
	}

	return "Unknown"
}
