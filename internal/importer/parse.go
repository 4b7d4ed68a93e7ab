// Package importer turns historical attendance spreadsheets into a plan of
// meetings, attendance hours and excuses. Parsing is pure; the application
// layer resolves users and writes the plan in one transaction.
package importer

import (
	"math"
	"strconv"

	"github.com/example/attendance-engine/internal/interval"
)

// ExcuseMarker is the cell value for an excused absence.
const ExcuseMarker = "*"

// Options tune Parse. A zero TrailingIgnored uses the kind's default.
type Options struct {
	TrailingIgnored int
}

// Cell is one accepted user cell.
type Cell struct {
	Column  int
	User    string
	Excused bool
	Hours   float64
}

// Row is one meeting row of the plan.
type Row struct {
	Line        int
	Date        interval.Date
	Inferred    bool
	Description string
	Length      float64
	Cells       []Cell
}

// Bonus reports whether the row describes a zero-length bonus meeting.
func (r Row) Bonus() bool {
	return r.Length == 0
}

// Partial reports whether hours fall short of the meeting length. Bonus
// meetings are never partial.
func (r Row) Partial(hours float64) bool {
	return !r.Bonus() && hours < r.Length
}

// Plan is the parsed form of a sheet.
type Plan struct {
	Kind        Kind
	Users       []Column
	Rows        []Row
	Diagnostics []RowError
}

type pendingRow struct {
	raw         RawRow
	date        interval.Date
	description string
	length      float64
}

// Parse tokenizes and classifies the table and validates every cell.
// Row level problems become diagnostics; only an empty table is an error.
func Parse(table [][]string, kind Kind, opts Options) (Plan, error) {
	if len(table) == 0 {
		return Plan{}, ErrEmptyTable
	}
	if kind != KindAttendance && kind != KindOutreach {
		return Plan{}, ErrUnknownKind
	}
	trailing := opts.TrailingIgnored
	if trailing <= 0 {
		trailing = kind.TrailingIgnored()
	}

	rows := Tokenize(table)
	plan := Plan{Kind: kind, Users: UserColumns(rows[0], trailing)}

	var pending []pendingRow
	started := false
	for _, raw := range rows {
		if ClassifyRow(raw, kind, started) != RowData {
			continue
		}
		started = true

		length, err := parseLength(raw.Length, kind)
		if err != nil {
			plan.Diagnostics = append(plan.Diagnostics, RowError{Line: raw.Line(), Column: 1, Value: raw.Length, Err: err})
			continue
		}
		date, description, ok := ExtractDate(raw.Label)
		if !ok && kind == KindAttendance {
			plan.Diagnostics = append(plan.Diagnostics, RowError{Line: raw.Line(), Column: 0, Value: raw.Label, Err: ErrNoDate})
			continue
		}
		pending = append(pending, pendingRow{raw: raw, date: date, description: description, length: length})
	}

	dates := make([]interval.Date, len(pending))
	for i, p := range pending {
		dates[i] = p.date
	}
	inferred := InferDates(dates)

	for i, p := range pending {
		if dates[i].IsZero() {
			plan.Diagnostics = append(plan.Diagnostics, RowError{Line: p.raw.Line(), Column: 0, Value: p.raw.Label, Err: ErrNoDate})
			continue
		}
		row := Row{
			Line:        p.raw.Line(),
			Date:        dates[i],
			Inferred:    inferred[i],
			Description: p.description,
			Length:      p.length,
		}
		for _, col := range plan.Users {
			cell, diag, ok := parseCell(p.raw, col, row, kind)
			if diag != nil {
				plan.Diagnostics = append(plan.Diagnostics, *diag)
			}
			if ok {
				row.Cells = append(row.Cells, cell)
			}
		}
		plan.Rows = append(plan.Rows, row)
	}
	return plan, nil
}

func parseLength(value string, kind Kind) (float64, error) {
	if value == "" {
		if kind == KindOutreach {
			return 0, nil
		}
		return 0, ErrMissingLength
	}
	length, err := strconv.ParseFloat(value, 64)
	if err != nil || length < 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return 0, ErrInvalidLength
	}
	return length, nil
}

func parseCell(raw RawRow, col Column, row Row, kind Kind) (Cell, *RowError, bool) {
	value := raw.Cell(col.Index)
	diag := func(err error) *RowError {
		return &RowError{Line: raw.Line(), Column: col.Index, User: col.Name, Value: value, Err: err}
	}

	switch value {
	case "":
		return Cell{}, nil, false
	case ExcuseMarker:
		if kind == KindOutreach {
			return Cell{}, diag(ErrOutreachNotExcusable), false
		}
		return Cell{Column: col.Index, User: col.Name, Excused: true}, nil, true
	}

	hours, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return Cell{}, diag(ErrInvalidHours), false
	}
	if hours <= 0 {
		return Cell{}, nil, false
	}
	if !row.Bonus() && hours > row.Length {
		return Cell{}, diag(ErrHoursExceedLength), false
	}
	return Cell{Column: col.Index, User: col.Name, Hours: hours}, nil, true
}
