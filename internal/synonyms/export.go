package synonyms

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/sumanths012/SymptoSense/internal/fields"
)

// ExportXLSX writes the catalog as a two-column workbook that LoadFile can read back.
func ExportXLSX(set fields.SynonymSet) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, err
	}
	headers := []string{"Category", "Label", "Position"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}

	row := 2
	for _, cat := range set.Categories() {
		labels, _ := set.Labels(cat)
		for pos, label := range labels {
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, row)
				_ = f.SetCellValue(SheetName, cell, v)
			}
			write(1, string(cat))
			write(2, label)
			write(3, pos)
			row++
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 18)
	_ = f.SetColWidth(SheetName, "B", "B", 36)
	_ = f.SetColWidth(SheetName, "C", "C", 10)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
