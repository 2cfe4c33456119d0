package frame

import (
	"fmt"
	"strings"
)

// Location identifies one cell by row label and column name.
type Location struct {
	Row    interface{} `json:"row"`
	Column string      `json:"column"`
}

func (l Location) String() string {
	return fmt.Sprintf("(%v, %s)", l.Row, l.Column)
}

// BadLocations flattens a column-major failure mask against the cartesian
// product of row labels and the given columns. mask[c][r] refers to
// columns[c] at row position r. Locations come back column by column, rows
// in index order, keeping only positions where the mask is true.
func BadLocations(t *Table, columns []string, mask [][]bool) []Location {
	var bad []Location
	for c, name := range columns {
		if c >= len(mask) {
			break
		}
		for r, failed := range mask[c] {
			if r >= len(t.index) {
				break
			}
			if failed {
				bad = append(bad, Location{Row: t.index[r], Column: name})
			}
		}
	}
	return bad
}

// FormatLocations renders locations as a bracketed list.
func FormatLocations(locs []Location) string {
	parts := make([]string, len(locs))
	for i, l := range locs {
		parts[i] = l.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
