package db

import (
	"fmt"
	"strings"
)

// ListQuery assembles the COUNT and page queries behind list endpoints from
// optional filters. Column names are never taken from user input.
type ListQuery struct {
	table   string
	cols    string
	where   []string
	args    []interface{}
	orderBy string
}

func NewListQuery(table, cols string) *ListQuery {
	return &ListQuery{table: table, cols: cols}
}

func (q *ListQuery) next() int { return len(q.args) + 1 }

// Where appends a clause; each "?" is replaced by the next positional argument.
func (q *ListQuery) Where(clause string, args ...interface{}) *ListQuery {
	var b strings.Builder
	n := q.next()
	for _, r := range clause {
		if r == '?' {
			fmt.Fprintf(&b, "$%d", n)
			n++
			continue
		}
		b.WriteRune(r)
	}
	q.where = append(q.where, b.String())
	q.args = append(q.args, args...)
	return q
}

// Eq filters column = value.
func (q *ListQuery) Eq(column string, value interface{}) *ListQuery {
	return q.Where(column+" = ?", value)
}

// ILike matches pattern (already escaped, with wildcards) against column.
func (q *ListQuery) ILike(column, pattern string) *ListQuery {
	return q.Where(column+` ILIKE ? ESCAPE '\'`, pattern)
}

// OrderBy sets the ORDER BY clause without the keyword.
func (q *ListQuery) OrderBy(orderBy string) *ListQuery {
	q.orderBy = orderBy
	return q
}

func (q *ListQuery) whereSQL() string {
	if len(q.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.where, " AND ")
}

func (q *ListQuery) CountSQL() string {
	return "SELECT COUNT(*) FROM " + q.table + q.whereSQL()
}

func (q *ListQuery) CountArgs() []interface{} {
	return q.args
}

// DataSQL returns the page query with LIMIT and OFFSET as the last two
// placeholders.
func (q *ListQuery) DataSQL(limit, offset int) string {
	sql := "SELECT " + q.cols + " FROM " + q.table + q.whereSQL()
	if q.orderBy != "" {
		sql += " ORDER BY " + q.orderBy
	}
	n := q.next()
	return fmt.Sprintf("%s LIMIT $%d OFFSET $%d", sql, n, n+1)
}

func (q *ListQuery) DataArgs(limit, offset int) []interface{} {
	args := make([]interface{}, 0, len(q.args)+2)
	args = append(args, q.args...)
	return append(args, limit, offset)
}

// ApplySort orders by a comma-separated list of field names, each optionally
// prefixed with "-" for descending. Fields missing from columns are dropped;
// if none remain the default order is used.
func (q *ListQuery) ApplySort(sort, defaultOrder string, columns map[string]string) *ListQuery {
	var parts []string
	for _, field := range strings.Split(sort, ",") {
		field = strings.TrimSpace(field)
		dir := "ASC"
		if strings.HasPrefix(field, "-") {
			dir = "DESC"
			field = field[1:]
		}
		if col, ok := columns[field]; ok {
			parts = append(parts, col+" "+dir)
		}
	}
	if len(parts) == 0 {
		q.orderBy = defaultOrder
	} else {
		q.orderBy = strings.Join(parts, ", ")
	}
	return q
}
