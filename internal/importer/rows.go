package importer

import (
	"strings"
	"unicode"
)

// RawRow is one tokenized table row. Missing trailing cells are empty.
type RawRow struct {
	Index  int
	Label  string
	Length string
	Cells  []string
}

// Line returns the 1-based source line.
func (r RawRow) Line() int {
	return r.Index + 1
}

// Blank reports whether every field of the row is empty.
func (r RawRow) Blank() bool {
	if r.Label != "" || r.Length != "" {
		return false
	}
	for _, cell := range r.Cells {
		if cell != "" {
			return false
		}
	}
	return true
}

// Cell returns the value of table column col (0-based), or "".
func (r RawRow) Cell(col int) string {
	idx := col - 2
	if idx < 0 || idx >= len(r.Cells) {
		return ""
	}
	return r.Cells[idx]
}

// Tokenize trims every cell and splits rows into label, length and user cells.
func Tokenize(table [][]string) []RawRow {
	rows := make([]RawRow, 0, len(table))
	for i, record := range table {
		row := RawRow{Index: i}
		for col, value := range record {
			value = strings.TrimSpace(value)
			switch col {
			case 0:
				row.Label = value
			case 1:
				row.Length = value
			default:
				row.Cells = append(row.Cells, value)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// RowClass is the outcome of ClassifyRow.
type RowClass int

const (
	// RowSkip marks rows that carry no data.
	RowSkip RowClass = iota
	// RowHeader marks the username row.
	RowHeader
	// RowData marks a meeting row.
	RowData
)

func (c RowClass) String() string {
	switch c {
	case RowHeader:
		return "header"
	case RowData:
		return "data"
	default:
		return "skip"
	}
}

// outreachDataStart is the first data row index of an outreach sheet.
const outreachDataStart = 2

var skipPrefixes = []string{"%", "Last", "REQUIREMENT"}

// ClassifyRow decides what a row holds. dataStarted reports whether an
// earlier row of the same table was classified as data.
func ClassifyRow(row RawRow, kind Kind, dataStarted bool) RowClass {
	if row.Index == 0 {
		return RowHeader
	}
	if row.Blank() || isSummaryLabel(row.Label) {
		return RowSkip
	}
	if kind == KindOutreach {
		if row.Index < outreachDataStart {
			return RowSkip
		}
		return RowData
	}
	if dataStarted || strings.IndexFunc(row.Label, unicode.IsDigit) >= 0 {
		return RowData
	}
	return RowSkip
}

func isSummaryLabel(label string) bool {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(label, prefix) {
			return true
		}
	}
	return strings.EqualFold(label, "total")
}

// Column is a user column of the header row.
type Column struct {
	Index int
	Name  string
}

// UserColumns returns the named user columns of the header. The last
// trailing columns hold summary figures; when dropping them would leave no
// user column the sheet has no summary block and every column from 2 on is a
// user.
func UserColumns(header RawRow, trailing int) []Column {
	total := len(header.Cells) + 2
	end := total - trailing
	if end <= 2 {
		end = total
	}
	var columns []Column
	for col := 2; col < end; col++ {
		name := header.Cell(col)
		if name == "" {
			continue
		}
		columns = append(columns, Column{Index: col, Name: name})
	}
	return columns
}
