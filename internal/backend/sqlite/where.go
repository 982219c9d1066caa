package sqlite

import (
	"slices"
	"strings"

	"github.com/purriosity/purriosity-server/internal/backend"
)

// whereClause renders the filters of q. Column names are already validated.
func whereClause(q backend.Query) (string, []any) {
	var (
		parts []string
		args  []any
	)
	for _, f := range q.Filters {
		sql, a := condition(f)
		parts = append(parts, sql)
		args = append(args, a...)
	}
	for _, group := range q.Or {
		alts := make([]string, 0, len(group))
		for _, f := range group {
			sql, a := condition(f)
			alts = append(alts, sql)
			args = append(args, a...)
		}
		parts = append(parts, "("+strings.Join(alts, " OR ")+")")
	}
	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func condition(f backend.Filter) (string, []any) {
	switch f.Op {
	case backend.OpEq:
		v, _ := encodeValue(f.Value)
		return f.Column + " = ?", []any{v}
	case backend.OpNeq:
		v, _ := encodeValue(f.Value)
		return f.Column + " <> ?", []any{v}
	case backend.OpILike:
		// LIKE folds ASCII case only.
		return f.Column + " LIKE ?", []any{f.Value}
	case backend.OpIn:
		values := f.Value.([]string)
		if len(values) == 0 {
			return "0", nil
		}
		return f.Column + " IN (" + placeholders(len(values)) + ")", stringArgs(values)
	case backend.OpOverlaps:
		values := f.Value.([]string)
		if len(values) == 0 {
			return "0", nil
		}
		return "EXISTS (SELECT 1 FROM json_each(" + f.Column + ") WHERE value IN (" +
			placeholders(len(values)) + "))", stringArgs(values)
	case backend.OpContains:
		values := f.Value.([]string)
		if len(values) == 0 {
			return "1", nil
		}
		conds := make([]string, len(values))
		for i := range values {
			conds[i] = "EXISTS (SELECT 1 FROM json_each(" + f.Column + ") WHERE value = ?)"
		}
		return "(" + strings.Join(conds, " AND ") + ")", stringArgs(values)
	default:
		return "0", nil
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func sortedKeys(r backend.Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
