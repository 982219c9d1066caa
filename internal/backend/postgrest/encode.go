package postgrest

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/purriosity/purriosity-server/internal/backend"
)

// encodeQuery renders q as PostgREST query parameters.
func encodeQuery(q backend.Query) url.Values {
	params := url.Values{}

	if len(q.Columns) > 0 {
		params.Set("select", strings.Join(q.Columns, ","))
	}

	for _, f := range q.Filters {
		params.Add(f.Column, string(f.Op)+"."+operand(f, false))
	}

	switch len(q.Or) {
	case 0:
	case 1:
		params.Set("or", orGroup(q.Or[0]))
	default:
		groups := make([]string, len(q.Or))
		for i, g := range q.Or {
			groups[i] = "or" + orGroup(g)
		}
		params.Set("and", "("+strings.Join(groups, ",")+")")
	}

	if len(q.Orders) > 0 {
		parts := make([]string, len(q.Orders))
		for i, o := range q.Orders {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			parts[i] = o.Column + "." + dir
		}
		params.Set("order", strings.Join(parts, ","))
	}

	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	return params
}

// orGroup renders filters as "(a.op.v,b.op.v)".
func orGroup(filters []backend.Filter) string {
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = f.Column + "." + string(f.Op) + "." + operand(f, true)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// operand renders the right-hand side of a filter. Inside logic trees
// scalar values are quoted because ",()" are separators there.
func operand(f backend.Filter, nested bool) string {
	switch f.Op {
	case backend.OpIn:
		return "(" + quoteAll(f.Value.([]string)) + ")"
	case backend.OpOverlaps, backend.OpContains:
		return "{" + quoteAll(f.Value.([]string)) + "}"
	default:
		s := scalar(f.Value)
		if nested {
			return quote(s)
		}
		return s
	}
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	return strings.Join(quoted, ",")
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}
