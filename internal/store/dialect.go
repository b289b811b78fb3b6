package store

import (
	"fmt"
	"strings"
)

// Dialect translates filters and patches into one SQL flavour.
type Dialect interface {
	Name() string

	placeholder(n int) string
	schema(c Collection) []string
	insert(table string, q *query, id string, data []byte) string
	eq(f string, q *query, value string) string
	gt(f string, q *query, value string, inclusive bool) string
	contains(f string, q *query, substr string) string
	elemContains(f string, q *query, substr string) string
	patch(q *query, set, inc []field, unset []string) string
}

// Dialects.
var (
	SQLite   Dialect = sqliteDialect{}
	Postgres Dialect = postgresDialect{}
)

// query accumulates positional arguments while SQL text is built.
type query struct {
	d    Dialect
	args []any
}

func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return q.d.placeholder(len(q.args))
}

func (q *query) where(f Filter) (string, error) {
	if len(f) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(f))
	for _, c := range f {
		s, err := q.condition(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " AND "), nil
}

func (q *query) condition(c Condition) (string, error) {
	switch c := c.(type) {
	case Eq:
		v, err := encodeValue(c.Value)
		if err != nil {
			return "", err
		}
		return q.d.eq(c.Field, q, v), nil
	case Gt:
		v, err := encodeValue(c.Value)
		if err != nil {
			return "", err
		}
		return q.d.gt(c.Field, q, v, false), nil
	case Gte:
		v, err := encodeValue(c.Value)
		if err != nil {
			return "", err
		}
		return q.d.gt(c.Field, q, v, true), nil
	case Contains:
		return q.d.contains(c.Field, q, c.Substr), nil
	case ElemContains:
		return q.d.elemContains(c.Field, q, c.Substr), nil
	case Or:
		parts := make([]string, 0, len(c))
		for _, sub := range c {
			s, err := q.condition(sub)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil
	default:
		return "", fmt.Errorf("unsupported condition %T", c)
	}
}

func comparison(inclusive bool) string {
	if inclusive {
		return ">="
	}
	return ">"
}

// sqliteDialect stores documents as JSON text and queries them with JSON1.
type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) placeholder(int) string { return "?" }

func (sqliteDialect) schema(c Collection) []string {
	stmts := []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id  TEXT PRIMARY KEY,
    doc TEXT NOT NULL CHECK (json_valid(doc))
)`, c)}
	if c == Reservations {
		stmts = append(stmts, `CREATE INDEX IF NOT EXISTS idx_reservation_offer
    ON reservation (json_extract(doc, '$.offer_id'))`)
	}
	return stmts
}

func (sqliteDialect) insert(table string, q *query, id string, data []byte) string {
	return fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES (%s, json(%s)) ON CONFLICT (id) DO NOTHING`,
		table, q.arg(id), q.arg(string(data)))
}

func (sqliteDialect) eq(f string, q *query, value string) string {
	return fmt.Sprintf(`json_extract(doc, '$.%s') = json_extract(%s, '$')`, f, q.arg(value))
}

func (sqliteDialect) gt(f string, q *query, value string, inclusive bool) string {
	return fmt.Sprintf(`json_extract(doc, '$.%s') %s json_extract(%s, '$')`, f, comparison(inclusive), q.arg(value))
}

func (sqliteDialect) contains(f string, q *query, substr string) string {
	return fmt.Sprintf(`instr(casefold(json_extract(doc, '$.%s')), casefold(%s)) > 0`, f, q.arg(substr))
}

func (sqliteDialect) elemContains(f string, q *query, substr string) string {
	return fmt.Sprintf(`EXISTS (SELECT 1 FROM json_each(doc, '$.%s') AS e WHERE instr(casefold(e.value), casefold(%s)) > 0)`,
		f, q.arg(substr))
}

func (sqliteDialect) patch(q *query, set, inc []field, unset []string) string {
	expr := "doc"
	if len(set) > 0 || len(inc) > 0 {
		var b strings.Builder
		b.WriteString("json_set(doc")
		for _, s := range set {
			fmt.Fprintf(&b, `, '$.%s', json(%s)`, s.name, q.arg(string(s.value)))
		}
		for _, i := range inc {
			fmt.Fprintf(&b, `, '$.%s', COALESCE(json_extract(doc, '$.%s'), 0) + %s`, i.name, i.name, q.arg(i.delta))
		}
		b.WriteString(")")
		expr = b.String()
	}
	if len(unset) > 0 {
		paths := make([]string, len(unset))
		for i, name := range unset {
			paths[i] = fmt.Sprintf(`'$.%s'`, name)
		}
		expr = fmt.Sprintf(`json_remove(%s, %s)`, expr, strings.Join(paths, ", "))
	}
	return expr
}

// postgresDialect stores documents as JSONB.
type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgresDialect) schema(c Collection) []string {
	stmts := []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id  TEXT PRIMARY KEY,
    doc JSONB NOT NULL
)`, c)}
	if c == Reservations {
		stmts = append(stmts, `CREATE INDEX IF NOT EXISTS idx_reservation_offer
    ON reservation ((doc->>'offer_id'))`)
	}
	return stmts
}

func (postgresDialect) insert(table string, q *query, id string, data []byte) string {
	return fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES (%s, %s::jsonb) ON CONFLICT (id) DO NOTHING`,
		table, q.arg(id), q.arg(string(data)))
}

func (postgresDialect) eq(f string, q *query, value string) string {
	return fmt.Sprintf(`doc->'%s' = %s::jsonb`, f, q.arg(value))
}

func (postgresDialect) gt(f string, q *query, value string, inclusive bool) string {
	return fmt.Sprintf(`doc->'%s' %s %s::jsonb`, f, comparison(inclusive), q.arg(value))
}

func (postgresDialect) contains(f string, q *query, substr string) string {
	return fmt.Sprintf(`strpos(lower(doc->>'%s'), lower(%s)) > 0`, f, q.arg(substr))
}

func (postgresDialect) elemContains(f string, q *query, substr string) string {
	return fmt.Sprintf(`EXISTS (SELECT 1 FROM jsonb_array_elements_text(
    CASE WHEN jsonb_typeof(doc->'%s') = 'array' THEN doc->'%s' ELSE '[]'::jsonb END) AS e(v)
    WHERE strpos(lower(e.v), lower(%s)) > 0)`, f, f, q.arg(substr))
}

func (postgresDialect) patch(q *query, set, inc []field, unset []string) string {
	expr := "doc"
	for _, s := range set {
		expr = fmt.Sprintf(`jsonb_set(%s, '{%s}', %s::jsonb, true)`, expr, s.name, q.arg(string(s.value)))
	}
	for _, i := range inc {
		expr = fmt.Sprintf(`jsonb_set(%s, '{%s}', to_jsonb(COALESCE((doc->>'%s')::numeric, 0) + %s::numeric), true)`,
			expr, i.name, i.name, q.arg(i.delta))
	}
	for _, name := range unset {
		expr = fmt.Sprintf(`(%s) - '%s'`, expr, name)
	}
	return expr
}
