package feeder

import (
	"encoding/json"
	"fmt"
	"os"
)

// NewJSONDataset reads records from a JSON file holding an array of objects.
// Non-string values are rendered with fmt's default formatting.
func NewJSONDataset(path string) (Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open JSON file: %w", err)
	}
	defer file.Close()

	var raw []map[string]interface{}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmpty
	}

	out := make(records, 0, len(raw))
	for i, obj := range raw {
		if len(obj) == 0 {
			return nil, fmt.Errorf("record %d is empty", i)
		}
		record := make(Record, len(obj))
		for key, value := range obj {
			if s, ok := value.(string); ok {
				record[key] = s
				continue
			}
			record[key] = fmt.Sprintf("%v", value)
		}
		out = append(out, record)
	}
	return out, nil
}
