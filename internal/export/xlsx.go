package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"pokertracker/internal/core"
)

const xlsxSheet = "Sessions"

// WriteXLSX writes the same columns as the CSV export into a workbook.
// Duration and money are numeric cells so spreadsheet formulas work on them.
func WriteXLSX(w io.Writer, sessions []core.Session) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}

	for i, s := range sessions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			s.Date.String(),
			s.Hours().Amount.Round(2).InexactFloat64(),
			s.BuyIn.Float64(),
			s.Rebuy.Float64(),
			s.CashOut.Float64(),
			s.Profit().Float64(),
			s.NotesText(),
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("write xlsx row %s: %w", s.ID, err)
		}
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("create money style: %w", err)
	}
	if err := f.SetColStyle(xlsxSheet, "C:F", money); err != nil {
		return fmt.Errorf("apply money style: %w", err)
	}
	_ = f.SetColWidth(xlsxSheet, "A", "A", 12)
	_ = f.SetColWidth(xlsxSheet, "B", "F", 14)
	_ = f.SetColWidth(xlsxSheet, "G", "G", 40)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Write dispatches on f.
func Write(w io.Writer, f Format, sessions []core.Session) error {
	if f == FormatXLSX {
		return WriteXLSX(w, sessions)
	}
	return WriteCSV(w, sessions)
}
