package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Filter is one row filter, rendered as column=op.value.
type Filter struct {
	Column string
	Op     string
	Value  string
}

func (f Filter) value() string {
	return f.Op + "." + f.Value
}

// Eq matches rows where column equals v.
func Eq(column string, v interface{}) Filter {
	return Filter{Column: column, Op: "eq", Value: fmt.Sprint(v)}
}

// Query is a row read against one table, built fluently:
//
//	c.From("lessons").Select("*").Order("sequence", true).Execute(ctx, &rows)
type Query struct {
	c       *Client
	table   string
	columns string
	filters []Filter
	or      []string
	order   []string
	limit   int
	count   bool
	head    bool
}

// From starts a query on table (or view).
func (c *Client) From(table string) *Query {
	return &Query{c: c, table: table, columns: "*"}
}

// Select sets the column list. Related tables may be embedded with the
// "*, lessons(title_en)" syntax.
func (q *Query) Select(columns string) *Query {
	q.columns = columns
	return q
}

func (q *Query) filter(column, op string, v interface{}) *Query {
	q.filters = append(q.filters, Filter{Column: column, Op: op, Value: fmt.Sprint(v)})
	return q
}

// Eq filters column = v.
func (q *Query) Eq(column string, v interface{}) *Query { return q.filter(column, "eq", v) }

// Neq filters column <> v.
func (q *Query) Neq(column string, v interface{}) *Query { return q.filter(column, "neq", v) }

// Gt filters column > v.
func (q *Query) Gt(column string, v interface{}) *Query { return q.filter(column, "gt", v) }

// Gte filters column >= v.
func (q *Query) Gte(column string, v interface{}) *Query { return q.filter(column, "gte", v) }

// Lt filters column < v.
func (q *Query) Lt(column string, v interface{}) *Query { return q.filter(column, "lt", v) }

// Lte filters column <= v.
func (q *Query) Lte(column string, v interface{}) *Query { return q.filter(column, "lte", v) }

// In filters column to one of values.
func (q *Query) In(column string, values ...interface{}) *Query {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = quoteListValue(fmt.Sprint(v))
	}
	q.filters = append(q.filters, Filter{Column: column, Op: "in", Value: "(" + strings.Join(parts, ",") + ")"})
	return q
}

// IsNull filters column IS NULL.
func (q *Query) IsNull(column string) *Query {
	q.filters = append(q.filters, Filter{Column: column, Op: "is", Value: "null"})
	return q
}

// Or adds a disjunction in filter syntax, e.g. "target_crop.is.null,target_crop.eq.rice".
func (q *Query) Or(expr string) *Query {
	q.or = append(q.or, "("+expr+")")
	return q
}

// Order sorts by column. Calls accumulate.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.order = append(q.order, column+"."+dir)
	return q
}

// Limit caps the number of rows.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Count requests an exact row count alongside the rows.
func (q *Query) Count() *Query {
	q.count = true
	return q
}

// Head skips the row payload; only the count is returned.
func (q *Query) Head() *Query {
	q.head = true
	return q
}

func (q *Query) values() url.Values {
	v := url.Values{}
	v.Set("select", q.columns)
	for _, f := range q.filters {
		v.Add(f.Column, f.value())
	}
	for _, expr := range q.or {
		v.Add("or", expr)
	}
	if len(q.order) > 0 {
		v.Set("order", strings.Join(q.order, ","))
	}
	if q.limit > 0 {
		v.Set("limit", strconv.Itoa(q.limit))
	}
	return v
}

func (q *Query) request(accept string) request {
	header := http.Header{}
	if q.count {
		header.Set("Prefer", "count=exact")
	}
	if accept != "" {
		header.Set("Accept", accept)
	}
	method := http.MethodGet
	if q.head {
		method = http.MethodHead
	}
	return request{
		method: method,
		path:   restPrefix + "/" + q.table,
		query:  q.values(),
		header: header,
	}
}

// Execute runs the query and decodes the rows into dest (a pointer to a slice).
func (q *Query) Execute(ctx context.Context, dest interface{}) error {
	if _, err := q.c.doJSON(ctx, q.request(""), dest); err != nil {
		return fmt.Errorf("query %s: %w", q.table, err)
	}
	return nil
}

// ExecuteCount runs the query and also returns the exact total row count.
func (q *Query) ExecuteCount(ctx context.Context, dest interface{}) (int, error) {
	q.count = true
	resp, err := q.c.doJSON(ctx, q.request(""), dest)
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", q.table, err)
	}
	return parseContentRange(resp.Header.Get("Content-Range")), nil
}

// Single decodes exactly one row into dest. Zero or many rows is an error
// with code PGRST116.
func (q *Query) Single(ctx context.Context, dest interface{}) error {
	if _, err := q.c.doJSON(ctx, q.request("application/vnd.pgrst.object+json"), dest); err != nil {
		return fmt.Errorf("query %s: %w", q.table, err)
	}
	return nil
}

// MaybeSingle decodes at most one row into dest and reports whether a row
// was found.
func (q *Query) MaybeSingle(ctx context.Context, dest interface{}) (bool, error) {
	var rows []json.RawMessage
	if err := q.Execute(ctx, &rows); err != nil {
		return false, err
	}
	switch len(rows) {
	case 0:
		return false, nil
	case 1:
		if err := json.Unmarshal(rows[0], dest); err != nil {
			return false, fmt.Errorf("decode %s row: %w", q.table, err)
		}
		return true, nil
	default:
		return false, &Error{Status: http.StatusNotAcceptable, Code: CodeNoRows, Message: "multiple rows returned"}
	}
}

// CountOnly returns the exact number of matching rows without fetching them.
func (q *Query) CountOnly(ctx context.Context) (int, error) {
	q.count = true
	q.head = true
	resp, err := q.c.doJSON(ctx, q.request(""), nil)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.table, err)
	}
	return parseContentRange(resp.Header.Get("Content-Range")), nil
}

// parseContentRange reads the total from "0-24/3573" or "*/0".
func parseContentRange(h string) int {
	i := strings.LastIndex(h, "/")
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(h[i+1:])
	if err != nil {
		return 0
	}
	return n
}

// quoteListValue quotes values that would break the in.(...) list syntax.
func quoteListValue(s string) string {
	if strings.ContainsAny(s, `,()" `) {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}
