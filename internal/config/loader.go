package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultBookFile is the default book file name searched for in the
// current directory.
const DefaultBookFile = "sitebook.yaml"

// ErrBookNotFound is returned when the book file does not exist.
var ErrBookNotFound = errors.New("book file not found")

// LoadBookFile loads a book file. YAML is the primary format; JSON book
// files from the original compiler parse too because yaml.v3 accepts
// JSON input.
func LoadBookFile(path string) (*Book, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided book file path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	var book Book
	if err := yaml.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("failed to parse book file %s: %w", path, err)
	}

	return &book, nil
}

// FindBookFile searches for the book file in the following order:
//  1. If bookPath is specified, use it directly
//  2. sitebook.yaml in the current directory
//  3. sitebook.yaml in the XDG config directory
//
// Returns the path if found, or empty string if not found.
func FindBookFile(bookPath string) string {
	if bookPath != "" {
		if _, err := os.Stat(bookPath); err == nil {
			return bookPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdBook := filepath.Join(cwd, DefaultBookFile)
		if _, err := os.Stat(cwdBook); err == nil {
			return cwdBook
		}
	}

	xdgBook := filepath.Join(XDGConfigDir(), DefaultBookFile)
	if _, err := os.Stat(xdgBook); err == nil {
		return xdgBook
	}

	return ""
}
