package backend

import (
	"fmt"
	"regexp"
)

// Op is a filter operator. Values follow PostgREST operator names.
type Op string

// Filter operators.
const (
	OpEq       Op = "eq"
	OpNeq      Op = "neq"
	OpIn       Op = "in"
	OpOverlaps Op = "ov"    // array column shares at least one element with Value
	OpContains Op = "cs"    // array column contains every element of Value
	OpILike    Op = "ilike" // case-insensitive pattern, % matches any run
)

// Filter is a single column condition.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Order sorts results by a column.
type Order struct {
	Column string
	Desc   bool
}

// Query describes a read (or the row selection of an update/delete).
// Filters are ANDed; each Or group matches when any of its filters matches.
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Or      [][]Filter
	Orders  []Order
	Limit   int
}

// From starts a query on table.
func From(table string) Query {
	return Query{Table: table}
}

// Select restricts the returned columns.
func (q Query) Select(columns ...string) Query {
	q.Columns = append(append([]string(nil), q.Columns...), columns...)
	return q
}

// Where adds a filter.
func (q Query) Where(column string, op Op, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Op: op, Value: value})
	return q
}

// Eq adds column = value.
func (q Query) Eq(column string, value any) Query { return q.Where(column, OpEq, value) }

// Neq adds column <> value.
func (q Query) Neq(column string, value any) Query { return q.Where(column, OpNeq, value) }

// In adds column IN values.
func (q Query) In(column string, values []string) Query { return q.Where(column, OpIn, values) }

// Overlaps adds an array overlap condition.
func (q Query) Overlaps(column string, values []string) Query {
	return q.Where(column, OpOverlaps, values)
}

// Contains adds an array containment condition.
func (q Query) Contains(column string, values []string) Query {
	return q.Where(column, OpContains, values)
}

// AnyOf adds a group of filters of which at least one must match.
func (q Query) AnyOf(filters ...Filter) Query {
	if len(filters) == 0 {
		return q
	}
	q.Or = append(append([][]Filter(nil), q.Or...), filters)
	return q
}

// OrderBy appends a sort key.
func (q Query) OrderBy(column string, desc bool) Query {
	q.Orders = append(append([]Order(nil), q.Orders...), Order{Column: column, Desc: desc})
	return q
}

// Take limits the number of rows.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate checks table, column names and operator values.
// Drivers call it before building requests so names never reach SQL or URLs unchecked.
func (q Query) Validate() error {
	if !identifier.MatchString(q.Table) {
		return fmt.Errorf("invalid table name %q", q.Table)
	}
	for _, c := range q.Columns {
		if c != "*" && !identifier.MatchString(c) {
			return fmt.Errorf("invalid column name %q", c)
		}
	}
	check := func(f Filter) error {
		if !identifier.MatchString(f.Column) {
			return fmt.Errorf("invalid column name %q", f.Column)
		}
		switch f.Op {
		case OpEq, OpNeq, OpILike:
			return nil
		case OpIn, OpOverlaps, OpContains:
			if _, ok := f.Value.([]string); !ok {
				return fmt.Errorf("operator %s on %s needs a []string value", f.Op, f.Column)
			}
			return nil
		default:
			return fmt.Errorf("unsupported operator %q", f.Op)
		}
	}
	for _, f := range q.Filters {
		if err := check(f); err != nil {
			return err
		}
	}
	for _, group := range q.Or {
		for _, f := range group {
			if err := check(f); err != nil {
				return err
			}
		}
	}
	for _, o := range q.Orders {
		if !identifier.MatchString(o.Column) {
			return fmt.Errorf("invalid order column %q", o.Column)
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("negative limit %d", q.Limit)
	}
	return nil
}

// ILike builds an ilike filter matching value anywhere in column.
func ILike(column, value string) Filter {
	return Filter{Column: column, Op: OpILike, Value: "%" + value + "%"}
}

// Has builds a filter matching array columns that contain value.
func Has(column, value string) Filter {
	return Filter{Column: column, Op: OpContains, Value: []string{value}}
}
