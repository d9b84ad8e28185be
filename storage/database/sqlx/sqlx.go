// Package sqlxrepos implements the domain repositories on Postgres with sqlx.
package sqlxrepos

import (
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/trezcool/elimu/core"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

// validID reports whether id can be compared to a uuid column.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// orderBy builds an ORDER BY clause from the allowed columns ({field: column}) only.
func orderBy(ordering []core.DBOrdering, allowed map[string]string, fallback string) string {
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		clauses = append(clauses, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(clauses) == 0 {
		return " ORDER BY " + fallback
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}

// where accumulates AND-ed conditions written with "?" placeholders (see sqlx Rebind).
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
