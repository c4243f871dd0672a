// Package report exports course progress as a spreadsheet for download.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/pathgenius/pathgenius/internal/course"
)

const sheetName = "Progress"

// CourseWorkbook builds an xlsx workbook summarizing a course: one header
// block with the overall numbers, then a row per module. The caller owns
// closing the returned file.
func CourseWorkbook(c *course.Course) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	rows := [][]any{
		{"Course", c.Title},
		{"Learning goal", c.LearningGoal},
		{"Overall progress", fmt.Sprintf("%d%%", c.Progress)},
		{},
		{"Module", "Title", "Topics", "Completed", "Progress"},
	}
	for _, m := range c.Modules {
		rows = append(rows, []any{
			m.ID,
			m.Title,
			len(m.Topics),
			len(m.CompletedTopics),
			fmt.Sprintf("%d%%", m.Progress),
		})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	return f, nil
}
