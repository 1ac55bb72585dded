package sqlxrepos

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/query"
)

// table aliases used by every query of this package
var aliases = map[query.Entity]string{
	query.Users:       "u",
	query.Courses:     "c",
	query.Enrollments: "e",
	query.Grades:      "g",
}

var searchColumns = map[query.Entity][]string{
	query.Users:   {"u.name", "u.email", "COALESCE(u.code, '')"},
	query.Courses: {"c.name", "c.code"},
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// whereClause compiles filter into a " WHERE ..." clause (empty when nothing restricts the rows)
// with `?` placeholders.
func whereClause(entity query.Entity, filter query.Filter) (string, []interface{}, error) {
	if err := query.Validate(entity, filter); err != nil {
		return "", nil, err
	}
	cond, args, err := compileFilter(entity, filter)
	if err != nil || cond == "" {
		return "", nil, err
	}
	return " WHERE " + cond, args, nil
}

func compileFilter(entity query.Entity, filter query.Filter) (string, []interface{}, error) {
	switch f := filter.(type) {
	case nil:
		return "", nil, nil
	case query.RoleFilter:
		return compileScope(entity, f)
	case query.SearchFilter:
		pattern := "%" + likeEscaper.Replace(strings.ToLower(f.Term)) + "%"
		cols := searchColumns[entity]
		parts := make([]string, 0, len(cols))
		args := make([]interface{}, 0, len(cols))
		for _, col := range cols {
			parts = append(parts, "LOWER("+col+`) LIKE ? ESCAPE '\'`)
			args = append(args, pattern)
		}
		return "(" + strings.Join(parts, " OR ") + ")", args, nil
	case query.FieldFilter:
		col, err := fieldColumn(entity, f.Field)
		if err != nil {
			return "", nil, err
		}
		return col + " = ?", []interface{}{f.Value}, nil
	case query.AndFilter:
		var (
			parts []string
			args  []interface{}
		)
		for _, inner := range f {
			cond, innerArgs, err := compileFilter(entity, inner)
			if err != nil {
				return "", nil, err
			}
			if cond == "" {
				continue
			}
			parts = append(parts, cond)
			args = append(args, innerArgs...)
		}
		if len(parts) == 0 {
			return "", nil, nil
		}
		return "(" + strings.Join(parts, " AND ") + ")", args, nil
	}
	return "", nil, errors.Errorf("unsupported filter %T", filter)
}

func compileScope(entity query.Entity, f query.RoleFilter) (string, []interface{}, error) {
	a := aliases[entity]
	args := []interface{}{f.ActorID}

	switch f.Scope {
	case query.ScopeAll:
		return "", nil, nil
	case query.ScopeNone:
		return "1 = 0", nil, nil
	case query.ScopeSelf:
		return a + ".id = ?", args, nil
	case query.ScopeStudent:
		return a + ".student_id = ?", args, nil
	case query.ScopeEnrolled:
		return "EXISTS (SELECT 1 FROM enrollments se WHERE se.course_id = c.id AND se.student_id = ?)", args, nil
	case query.ScopeTeacher:
		if entity == query.Courses {
			return "c.teacher_id = ?", args, nil
		}
		return a + ".course_id IN (SELECT sc.id FROM courses sc WHERE sc.teacher_id = ?)", args, nil
	}
	return "", nil, errors.Errorf("unsupported scope %s", f.Scope)
}

func fieldColumn(entity query.Entity, field query.Field) (string, error) {
	a := aliases[entity]
	switch field {
	case query.FieldRole:
		return a + ".role", nil
	case query.FieldCourseID:
		return a + ".course_id", nil
	case query.FieldStudentID:
		return a + ".student_id", nil
	case query.FieldTeacherID:
		return a + ".teacher_id", nil
	}
	return "", errors.Errorf("unsupported field %q", field)
}

// orderByClause renders ords, qualified with the entity alias.
func orderByClause(entity query.Entity, ords []core.DBOrdering) string {
	if len(ords) == 0 {
		ords = query.DefaultOrdering(entity)
	}
	a := aliases[entity]
	parts := make([]string, 0, len(ords))
	for _, ord := range ords {
		ord.Field = a + "." + ord.Field
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
