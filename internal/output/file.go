package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/torosent/volley/internal/metrics"
)

// FormatForPath picks a summary format from a file extension.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatText
	}
}

// WriteFile renders into path while holding an advisory lock on
// path+".lock", so concurrent runs sharing an output path do not interleave.
func WriteFile(path string, render func(w io.Writer) error) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	buf := bufio.NewWriter(f)
	if err := render(buf); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := buf.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteSummaryFile writes the summary to path in the format implied by its extension.
func WriteSummaryFile(path string, s metrics.RunSummary) error {
	format := FormatForPath(path)
	return WriteFile(path, func(w io.Writer) error {
		return WriteReport(w, format, s)
	})
}
