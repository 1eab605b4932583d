// Package feeder loads CSV or JSON datasets whose records parameterize the
// requests of a run.
package feeder

import (
	"errors"
	"fmt"
	"strings"
)

// Record represents a single row of data with named fields.
type Record map[string]string

// Dataset is a read-only, indexable collection of records.
// Implementations must be safe for concurrent use.
type Dataset interface {
	// At returns the record for a zero-based position. Positions past the end
	// wrap around, so every position maps to a record in round-robin order.
	At(pos uint64) Record

	// Len returns the total number of records in the dataset.
	Len() int
}

// ErrEmpty is returned when a dataset file holds no records.
var ErrEmpty = errors.New("feeder: dataset has no records")

// Load opens the dataset at path using the given type ("csv" or "json").
func Load(path, kind string) (Dataset, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "csv":
		return NewCSVDataset(path)
	case "json":
		return NewJSONDataset(path)
	default:
		return nil, fmt.Errorf("feeder: unsupported type %q (use csv or json)", kind)
	}
}

// records is the shared in-memory implementation behind both file formats.
type records []Record

func (r records) At(pos uint64) Record {
	if len(r) == 0 {
		return nil
	}
	return r[pos%uint64(len(r))]
}

func (r records) Len() int {
	return len(r)
}
