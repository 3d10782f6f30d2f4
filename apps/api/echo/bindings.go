package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/elimuhub/elimu/core"
)

// Ordering holds the sort clauses parsed from the "ordering" query param.
// The param is a comma-separated field list; a leading "-" sorts descending,
// e.g. "?ordering=created_at,-price".
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	raw := ctx.QueryParam("ordering")
	if raw == "" {
		return
	}

	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		trimmed := strings.TrimPrefix(field, "-")
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: trimmed, Ascending: trimmed == field})
	}
}
