package httpclient

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// LoadBody resolves the request body from an inline value or a file path.
// At most one of the two may be set.
func LoadBody(inline, path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if inline != "" && path != "" {
		return nil, errors.New("body and body file cannot both be provided")
	}
	if inline != "" {
		return []byte(inline), nil
	}
	if path == "" {
		return nil, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("body file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("body file %q is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("body file: %w", err)
	}
	return data, nil
}
