package core

import "strings"

// DBOrdering is a single ORDER BY clause bound from an API query param.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	if ord.Ascending {
		return ord.Field + " ASC"
	}
	return ord.Field + " DESC"
}

// FilterOrderings keeps only clauses whose field is one of the given columns.
// Field names end up interpolated into SQL, so repositories must whitelist
// their sortable columns before rendering a clause.
func FilterOrderings(ords []DBOrdering, columns ...string) []DBOrdering {
	var kept []DBOrdering
	for _, ord := range ords {
		for _, col := range columns {
			if ord.Field == col {
				kept = append(kept, ord)
				break
			}
		}
	}
	return kept
}

// OrderingClause renders ords as an ORDER BY suffix, or fallback when ords
// is empty. Returns "" when both are empty.
func OrderingClause(ords []DBOrdering, fallback string) string {
	if len(ords) == 0 {
		if fallback == "" {
			return ""
		}
		return " ORDER BY " + fallback
	}
	clauses := make([]string, 0, len(ords))
	for _, ord := range ords {
		clauses = append(clauses, ord.String())
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}
