package report

import (
	"fmt"

	"visitcheck/internal/rules"

	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet = "總表"
	// maxSheetName is the sheet name limit of the xlsx format.
	maxSheetName = 31
)

var sheetUnsafe = map[rune]bool{'\\': true, '/': true, ':': true, '*': true, '?': true, '[': true, ']': true}

// SheetName makes an interviewer name usable as a worksheet name. A sheet
// name may not start or end with a single quote.
func SheetName(name string) string {
	runes := []rune(SanitizeName(name))
	if len(runes) > maxSheetName {
		runes = runes[:maxSheetName]
	}
	for i, r := range runes {
		if sheetUnsafe[r] {
			runes[i] = '_'
		}
	}
	if len(runes) == 0 {
		return "_"
	}
	if runes[0] == '\'' {
		runes[0] = '_'
	}
	if runes[len(runes)-1] == '\'' {
		runes[len(runes)-1] = '_'
	}
	return string(runes)
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]string, headerStyle int) error {
	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		err = f.SetCellValue(sheet, cell, title)
		if err != nil {
			return fmt.Errorf("set header cell %s: %w", cell, err)
		}
		err = f.SetCellStyle(sheet, cell, cell, headerStyle)
		if err != nil {
			return fmt.Errorf("set header style: %w", err)
		}
	}
	for i, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			err = f.SetCellStr(sheet, cell, value)
			if err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}
	return nil
}

// WriteWorkbook writes the summary and one sheet per interviewer into a
// single xlsx workbook at path.
func WriteWorkbook(path string, issues []rules.Issue) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	err = f.SetSheetName("Sheet1", SummarySheet)
	if err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	summary := Summarize(issues)
	rows := make([][]string, len(summary))
	for i, row := range summary {
		rows[i] = summaryRow(row)
	}
	err = writeSheet(f, SummarySheet, SummaryColumns, rows, headerStyle)
	if err != nil {
		return fmt.Errorf("write summary sheet: %w", err)
	}
	err = f.SetColWidth(SummarySheet, "A", "A", 20)
	if err != nil {
		return err
	}

	groups := Group(issues)
	names := make([]string, len(groups)+1)
	names[0] = SummarySheet
	for i, g := range groups {
		names[i+1] = g.InterviewerName
	}
	sheets := uniqueNames(names, SheetName, maxSheetName)[1:]

	for i, g := range groups {
		_, err = f.NewSheet(sheets[i])
		if err != nil {
			return fmt.Errorf("create sheet of %q: %w", g.InterviewerName, err)
		}
		rows := make([][]string, len(g.Issues))
		for j, issue := range g.Issues {
			rows[j] = issueRow(issue)
		}
		err = writeSheet(f, sheets[i], IssueColumns, rows, headerStyle)
		if err != nil {
			return fmt.Errorf("write sheet of %q: %w", g.InterviewerName, err)
		}
		err = f.SetColWidth(sheets[i], "D", "D", 60)
		if err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	err = f.SaveAs(path)
	if err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
