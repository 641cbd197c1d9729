// Package export shapes session collections into downloadable files.
//
// Row order always follows the input. Callers filter and sort before
// exporting.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"pokertracker/internal/core"
)

// Header is the column layout shared by every export format.
var Header = []string{"Date", "Duration (hours)", "Buy-in", "Rebuy", "Cash Out", "Profit/Loss", "Notes"}

// Format names an export file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat defaults to CSV for anything it does not recognize.
func ParseFormat(s string) Format {
	if Format(s) == FormatXLSX {
		return FormatXLSX
	}
	return FormatCSV
}

// ContentType returns the MIME type sent with the download.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename builds the attachment name, e.g. poker-sessions-30days.csv.
func Filename(rangeName string, f Format) string {
	return fmt.Sprintf("poker-sessions-%s.%s", rangeName, f)
}

// Row renders one session in Header order.
func Row(s core.Session) []string {
	return []string{
		s.Date.String(),
		formatHours(s.DurationMinutes),
		s.BuyIn.String(),
		s.Rebuy.String(),
		s.CashOut.String(),
		s.Profit().String(),
		s.NotesText(),
	}
}

// formatHours renders minutes as hours with one decimal, rounding the binary
// value half to even: 15 minutes is "0.2", 45 minutes is "0.8".
func formatHours(minutes int) string {
	return strconv.FormatFloat(float64(minutes)/60, 'f', 1, 64)
}

// WriteCSV writes the header and one row per session. Notes containing a
// comma, quote or newline are quoted.
func WriteCSV(w io.Writer, sessions []core.Session) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, s := range sessions {
		if err := cw.Write(Row(s)); err != nil {
			return fmt.Errorf("write csv row %s: %w", s.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// CSV returns the export as bytes.
func CSV(sessions []core.Session) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sessions); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
