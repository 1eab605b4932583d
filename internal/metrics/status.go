package metrics

import (
	"sort"
	"strconv"
)

// CountRow is one labelled count in a breakdown table.
type CountRow struct {
	Label string
	Count int64
}

// StatusRows converts status-code counts into rows sorted by descending
// count, then by code for stability.
func StatusRows(codes map[int]int64) []CountRow {
	if len(codes) == 0 {
		return nil
	}
	rows := make([]CountRow, 0, len(codes))
	for code, count := range codes {
		rows = append(rows, CountRow{Label: strconv.Itoa(code), Count: count})
	}
	sortRows(rows)
	return rows
}

// FailureRows converts failure-kind counts into rows with friendly labels.
func FailureRows(kinds map[string]int64) []CountRow {
	if len(kinds) == 0 {
		return nil
	}
	rows := make([]CountRow, 0, len(kinds))
	for kind, count := range kinds {
		rows = append(rows, CountRow{Label: FailureLabel(kind), Count: count})
	}
	sortRows(rows)
	return rows
}

func sortRows(rows []CountRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Label < rows[j].Label
		}
		return rows[i].Count > rows[j].Count
	})
}
