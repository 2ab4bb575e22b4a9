package utils

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	indentPrefix    = "    "
	entryPrefix     = "├── "
	lastEntryPrefix = "└── "
	verticalLine    = "│   "
)

// GenerateAndSaveTreeStructure renders a text tree of targetDir and writes it to outputFilePath.
// The listing is built in memory first, so outputFilePath may live inside targetDir;
// the output file itself is left out of the listing.
func GenerateAndSaveTreeStructure(targetDir, outputFilePath string, log *logrus.Entry) error {
	log.Debugf("Starting tree generation for target: %s", targetDir)
	if _, err := os.Stat(targetDir); os.IsNotExist(err) {
		return fmt.Errorf("%w: target directory '%s' does not exist: %w", ErrFilesystem, targetDir, err)
	} else if err != nil {
		return fmt.Errorf("%w: checking target directory '%s': %w", ErrFilesystem, targetDir, err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Published tree for: %s\n", targetDir)
	fmt.Fprintf(&buf, "%s\n\n", strings.Repeat("=", 20+len(targetDir)))
	fmt.Fprintf(&buf, "%s/\n", filepath.Base(targetDir))

	skip := filepath.Clean(outputFilePath)
	if err := walkDirRecursive(&buf, targetDir, "", skip, log); err != nil {
		log.Errorf("Error occurred during recursive walk for '%s': %v", targetDir, err)
		return fmt.Errorf("error generating tree structure for '%s': %w", targetDir, err)
	}

	if err := os.WriteFile(outputFilePath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("%w: writing tree structure '%s': %w", ErrFilesystem, outputFilePath, err)
	}
	log.Debugf("Finished tree generation for: %s", targetDir)
	return nil
}

// walkDirRecursive writes one line per entry, directories first, then alphabetical.
func walkDirRecursive(w io.Writer, dirPath, currentIndent, skip string, log *logrus.Entry) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		log.Warnf("Failed to read directory '%s': %v", dirPath, err)
		return fmt.Errorf("%w: failed to read directory '%s': %w", ErrFilesystem, dirPath, err)
	}

	entries = slices.DeleteFunc(entries, func(e os.DirEntry) bool {
		return filepath.Join(dirPath, e.Name()) == skip
	})

	slices.SortFunc(entries, func(a, b os.DirEntry) int {
		aIsDir := a.IsDir()
		bIsDir := b.IsDir()
		if aIsDir && !bIsDir {
			return -1
		}
		if !aIsDir && bIsDir {
			return 1
		}
		return strings.Compare(strings.ToLower(a.Name()), strings.ToLower(b.Name()))
	})

	for i, entry := range entries {
		isLast := i == len(entries)-1

		connector := entryPrefix
		if isLast {
			connector = lastEntryPrefix
		}

		if _, err := fmt.Fprintf(w, "%s%s%s\n", currentIndent, connector, entry.Name()); err != nil {
			return err
		}

		if entry.IsDir() {
			nextIndent := currentIndent + verticalLine
			if isLast {
				nextIndent = currentIndent + indentPrefix
			}
			if err := walkDirRecursive(w, filepath.Join(dirPath, entry.Name()), nextIndent, skip, log); err != nil {
				return err
			}
		}
	}
	return nil
}
