package importer

import (
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Kind selects the sheet layout.
type Kind string

const (
	// KindAttendance is the regular meeting sheet.
	KindAttendance Kind = "attendance"
	// KindOutreach is the outreach event sheet.
	KindOutreach Kind = "outreach"
)

// ParseKind validates a kind name.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindAttendance:
		return KindAttendance, nil
	case KindOutreach:
		return KindOutreach, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, value)
	}
}

// TrailingIgnored returns how many summary columns trail the user columns.
func (k Kind) TrailingIgnored() int {
	if k == KindOutreach {
		return 3
	}
	return 5
}

// ReadCSV reads a comma separated table. Rows may have differing lengths.
func ReadCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var table [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("importer: read csv: %w", err)
		}
		table = append(table, record)
	}
	if len(table) == 0 {
		return nil, ErrEmptyTable
	}
	table[0][0] = strings.TrimPrefix(table[0][0], "\ufeff")
	return table, nil
}

// Checksum returns a hex BLAKE2b-256 digest of the table contents.
func Checksum(table [][]string) string {
	h, _ := blake2b.New256(nil)
	for _, row := range table {
		for _, cell := range row {
			h.Write([]byte(strings.TrimSpace(cell)))
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}
