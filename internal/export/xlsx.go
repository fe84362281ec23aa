// Package export writes recipe collections to spreadsheet files.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/recipebox/backend/internal/domain"
)

// SheetName is the worksheet holding the exported recipes
const SheetName = "Recipes"

// ContentType is the MIME type of the workbook WriteRecipes produces
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var header = []interface{}{"recipe_id", "recipe", "tags", "measurement", "ingredient", "created_at"}

// WriteRecipes writes an xlsx workbook with one row per recipe ingredient.
// A recipe without ingredients still gets a single row.
func WriteRecipes(w io.Writer, recipes []domain.Recipe) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	// StreamWriter keeps memory flat for large collections
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	line := 2
	for _, r := range recipes {
		tags := tagNames(r.Tags)
		created := ""
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.UTC().Format(time.RFC3339)
		}

		if len(r.Ingredients) == 0 {
			if err := setRow(sw, line, []interface{}{r.ID, r.Name, tags, "", "", created}); err != nil {
				return err
			}
			line++
			continue
		}
		for _, ri := range r.Ingredients {
			row := []interface{}{r.ID, r.Name, tags, ri.Measurement, ri.Ingredient.Name, created}
			if err := setRow(sw, line, row); err != nil {
				return err
			}
			line++
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(sw *excelize.StreamWriter, line int, row []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, line)
	if err != nil {
		return err
	}
	return sw.SetRow(cell, row)
}

func tagNames(tags []domain.Tag) string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}
