package google

import (
	"fmt"
)

// toValues converts a string table into the matrix the Sheets API expects.
func toValues(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		vals := make([]interface{}, len(row))
		for j, cell := range row {
			vals[j] = cell
		}
		out[i] = vals
	}
	return out
}

// tableRange returns the A1 range covering rows, e.g. "Budget!A1:G6".
func tableRange(sheet string, rows [][]string) string {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	if width == 0 || len(rows) == 0 {
		return fmt.Sprintf("%s!A1", sheet)
	}
	return fmt.Sprintf("%s!A1:%s%d", sheet, columnName(width), len(rows))
}

// columnName converts a 1-based column index to its letter name (1 -> A,
// 27 -> AA).
func columnName(n int) string {
	name := ""
	for n > 0 {
		n--
		name = string(rune('A'+n%26)) + name
		n /= 26
	}
	return name
}
