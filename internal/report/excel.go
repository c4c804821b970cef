package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExcelExporter writes the aggregation as a workbook: a Dashboard sheet
// with one row per objective and one sheet per objective listing its
// epics. Companion output to the rendered report, same data.
type ExcelExporter struct {
	Path string
}

func NewExcelExporter(path string) *ExcelExporter {
	return &ExcelExporter{Path: path}
}

func (e *ExcelExporter) Export(agg *Aggregation, title string, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	objectives := make([]string, 0, len(agg.Objectives))
	for objective := range agg.Objectives {
		objectives = append(objectives, objective)
	}
	sort.Strings(objectives)

	if err := e.createDashboardSheet(f, agg, title, objectives, now); err != nil {
		return fmt.Errorf("failed to create dashboard: %w", err)
	}

	for _, objective := range objectives {
		sheetName := sanitizeSheetName(objective)
		if err := e.createObjectiveSheet(f, sheetName, objective, agg); err != nil {
			return fmt.Errorf("failed to create sheet for %s: %w", objective, err)
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	if err := f.SaveAs(e.Path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (e *ExcelExporter) createDashboardSheet(f *excelize.File, agg *Aggregation, title string, objectives []string, now time.Time) error {
	const sheetName = "Dashboard"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(sheetName, "A1", title)
	f.SetCellValue(sheetName, "A2", "Generated:")
	f.SetCellValue(sheetName, "B2", now.Format("2006-01-02"))

	row := 4
	headers := []string{"Objective", "Epics", "Stories", "Done", "Completion"}
	for col, header := range headers {
		cell := cellName(col+1, row)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for _, objective := range objectives {
		row++
		stories, done := 0, 0
		for _, key := range agg.Objectives[objective] {
			stories += agg.Epics[key].StoryCount
			done += agg.Epics[key].DoneCount
		}
		f.SetCellValue(sheetName, cellName(1, row), objective)
		f.SetCellValue(sheetName, cellName(2, row), len(agg.Objectives[objective]))
		f.SetCellValue(sheetName, cellName(3, row), stories)
		f.SetCellValue(sheetName, cellName(4, row), done)
		f.SetCellValue(sheetName, cellName(5, row), agg.Completion[objective].String())
	}

	return nil
}

func (e *ExcelExporter) createObjectiveSheet(f *excelize.File, sheetName, objective string, agg *Aggregation) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#B4C7E7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	headers := []string{"Epic", "Summary", "Owner", "Target Date", "MVP Status", "Stories", "Done", "Completion", "Status Update"}
	for col, header := range headers {
		cell := cellName(col+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	keys := append([]string(nil), agg.Objectives[objective]...)
	sort.Strings(keys)

	row := 1
	for _, key := range keys {
		epic := agg.Epics[key]
		row++
		f.SetCellValue(sheetName, cellName(1, row), epic.Key)
		f.SetCellValue(sheetName, cellName(2, row), epic.Summary)
		f.SetCellValue(sheetName, cellName(3, row), epic.Owner)
		f.SetCellValue(sheetName, cellName(4, row), epic.TargetDate)
		f.SetCellValue(sheetName, cellName(5, row), epic.MVPStatus)
		f.SetCellValue(sheetName, cellName(6, row), epic.StoryCount)
		f.SetCellValue(sheetName, cellName(7, row), epic.DoneCount)
		f.SetCellValue(sheetName, cellName(8, row), epic.PercentComplete.String())
		f.SetCellValue(sheetName, cellName(9, row), epic.StatusUpdate)
	}

	return nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// sanitizeSheetName keeps names within Excel's 31-char limit and strips
// the characters the format forbids.
func sanitizeSheetName(name string) string {
	replacer := strings.NewReplacer(":", "", "\\", "", "/", "", "?", "", "*", "", "[", "", "]", "")
	name = replacer.Replace(name)
	if len(name) > 31 {
		name = name[:31]
	}
	if name == "" {
		name = "Objective"
	}
	return name
}
