package query

import (
	"fmt"
	"strings"

	"github.com/sistemanotas/notas/core"
)

// sortable maps the public field names accepted in `?ordering=` to column names.
var sortable = map[Entity]map[string]string{
	Users: {
		"id":        "id",
		"name":      "name",
		"email":     "email",
		"role":      "role",
		"createdAt": "created_at",
	},
	Courses: {
		"id":        "id",
		"name":      "name",
		"code":      "code",
		"createdAt": "created_at",
	},
	Enrollments: {
		"id":        "id",
		"createdAt": "created_at",
	},
	Grades: {
		"id":        "id",
		"value":     "value",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	},
}

// DefaultOrdering is the stable ordering used when none is requested.
func DefaultOrdering(entity Entity) []core.DBOrdering {
	if entity == Users {
		return []core.DBOrdering{{Field: "created_at"}, {Field: "id"}}
	}
	return []core.DBOrdering{{Field: "id"}}
}

// ParseOrdering parses a comma separated list of fields, each optionally prefixed with "-" for descending order.
// The primary key is appended as a tiebreaker so pages stay stable.
func ParseOrdering(entity Entity, raw string) ([]core.DBOrdering, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultOrdering(entity), nil
	}

	cols := sortable[entity]
	var (
		ords  []core.DBOrdering
		hasID bool
		seen  = make(map[string]bool)
	)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		asc := true
		if strings.HasPrefix(part, "-") {
			asc = false
			part = part[1:]
		}
		col, ok := cols[part]
		if !ok {
			return nil, core.NewFieldError("ordering", fmt.Sprintf("campo de ordenamiento no válido: %s", part))
		}
		if seen[col] {
			continue
		}
		seen[col] = true
		hasID = hasID || col == "id"
		ords = append(ords, core.DBOrdering{Field: col, Ascending: asc})
	}
	if len(ords) == 0 {
		return DefaultOrdering(entity), nil
	}
	if !hasID {
		ords = append(ords, core.DBOrdering{Field: "id"})
	}
	return ords, nil
}
