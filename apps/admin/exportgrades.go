package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/query"
	"github.com/sistemanotas/notas/services/report"
)

// exportGrades writes the grade sheet of the course with the given code to path.
func (cli *commandLine) exportGrades(code, path string) error {
	ctx := context.Background()
	c, err := cli.courseRepo.GetCourseByCode(ctx, core.CleanString(code))
	if err != nil {
		return err
	}
	grades, err := cli.gradeRepo.ListGrades(ctx, query.Eq(query.FieldCourseID, c.ID))
	if err != nil {
		return errors.Wrap(err, "listing grades")
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = report.WriteGrades(f, c, grades); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	fmt.Printf("%d grades of %s written to %s\n", len(grades), c.Code, path)
	return nil
}
