// Package report renders grade sheets as XLSX workbooks.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/sistemanotas/notas/core/course"
	"github.com/sistemanotas/notas/core/grade"
)

const (
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	gradesSheet = "Notas"
	headerRow   = 3
)

var gradeHeaders = []string{"Código", "Alumno", "Email", "Nota", "Actualizado"}

// GradesFilename returns the download name of the grade sheet of c.
func GradesFilename(c course.Course, now time.Time) string {
	code := strings.NewReplacer(" ", "_", "/", "-").Replace(c.Code)
	return fmt.Sprintf("notas_%s_%s.xlsx", code, now.Format("20060102_150405"))
}

// WriteGrades writes the grade sheet of course c to w. Grades are written in the given order, followed by
// the course average.
func WriteGrades(w io.Writer, c course.Course, grades []grade.Detail) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), gradesSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating style")
	}

	set := func(col, row int, value interface{}) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(gradesSheet, cell, value)
	}

	set(1, 1, "Curso")
	set(2, 1, fmt.Sprintf("%s (%s)", c.Name, c.Code))
	_ = f.SetCellStyle(gradesSheet, "A1", "A1", bold)

	for i, h := range gradeHeaders {
		set(i+1, headerRow, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(gradeHeaders), headerRow)
	_ = f.SetCellStyle(gradesSheet, "A3", last, bold)

	row := headerRow
	for _, g := range grades {
		row++
		set(1, row, g.Student.Code.String)
		set(2, row, g.Student.Name)
		set(3, row, g.Student.Email)
		set(4, row, g.Value)
		set(5, row, g.UpdatedAt.Format("2006-01-02 15:04"))
	}

	row += 2
	set(3, row, "Promedio")
	if avg := grade.Average(grades); avg != nil {
		set(4, row, *avg)
	}
	cell, _ := excelize.CoordinatesToCellName(3, row)
	_ = f.SetCellStyle(gradesSheet, cell, cell, bold)

	_ = f.SetColWidth(gradesSheet, "A", "A", 14)
	_ = f.SetColWidth(gradesSheet, "B", "C", 32)
	_ = f.SetColWidth(gradesSheet, "E", "E", 18)

	return errors.Wrap(f.Write(w), "writing workbook")
}
