package google

import (
	"fmt"
	"strings"
)

// firstColumn flattens a column A read into strings. Blank cells stay blank
// so that indexes keep matching sheet rows.
func firstColumn(values [][]any) []string {
	out := make([]string, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(row[0]))
	}
	return out
}

// findRow returns the 1-based sheet row holding id, or 0.
func findRow(ids []string, id string) int {
	for i, v := range ids {
		if i == 0 {
			// header
			continue
		}
		if strings.EqualFold(v, id) {
			return i + 1
		}
	}
	return 0
}

// rowRange addresses a single row starting at column A, e.g. Sessions!A4:I4.
func rowRange(sheet string, row, width int) string {
	return fmt.Sprintf("%s!A%d:%s%d", sheet, row, columnName(width), row)
}

func columnName(n int) string {
	name := ""
	for n > 0 {
		n--
		name = string(rune('A'+n%26)) + name
		n /= 26
	}
	return name
}

func toValues(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}
