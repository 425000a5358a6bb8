package postgres

import (
	"fmt"
	"strings"
)

// Where accumulates AND-ed SQL predicates with positional arguments.
type Where struct {
	clauses []string
	args    []any
}

// Add appends a clause such as "c.status = %s"; the placeholder becomes $n.
// Use %[1]s to reference the same argument more than once.
func (w *Where) Add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(clause, fmt.Sprintf("$%d", len(w.args))))
}

func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (w *Where) Args() []any { return w.args }

// Next is the position the next appended argument will take.
func (w *Where) Next() int { return len(w.args) + 1 }

// LikePattern wraps s for a substring ILIKE, escaping LIKE metacharacters.
func LikePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
