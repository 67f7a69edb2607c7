package services

import (
	"fmt"
	"io"

	"food-picker/models"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Restaurants"

// WriteRestaurantsXLSX writes list as a one-sheet workbook: a header row, then one row per restaurant.
func WriteRestaurantsXLSX(w io.Writer, list []models.Restaurant) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}
	if err := sw.SetRow("A1", []interface{}{"#", "Name", "Category"}); err != nil {
		return err
	}
	for i, r := range list {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, []interface{}{i + 1, r.Name, string(r.Category)}); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
