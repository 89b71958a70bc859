// Package sqlxrepos implements the storage repositories on PostgreSQL via sqlx.
package sqlxrepos

import (
	"strings"

	"github.com/trezcool/miradi/core"
)

// orderBy renders an ORDER BY clause from ordering, dropping any field not in
// allowed. Ordering fields come from the request's query string; only known
// column names may reach the SQL text.
func orderBy(ordering []core.DBOrdering, allowed map[string]bool, dflt string) string {
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if !allowed[ord.Field] {
			continue
		}
		clauses = append(clauses, ord.String())
	}
	if len(clauses) == 0 {
		if dflt == "" {
			return ""
		}
		return " ORDER BY " + dflt
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}
