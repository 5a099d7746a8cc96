package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"backoffice/boilerplate/internal/domain/resource"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Table stores gateway resources in the table named after the resource.
// Rows are scanned into T by its `db` tags.
type Table[T any] struct {
	pool    *pgxpool.Pool
	name    string
	columns map[string]bool
	nowFunc func() time.Time
}

// NewTable binds def to pool. Only columns declared by def are ever referenced.
func NewTable[T any](pool *pgxpool.Pool, def resource.Definition) *Table[T] {
	cols := map[string]bool{resource.IDColumn: true}
	for _, f := range def.Writable {
		cols[f.Column] = true
	}
	for _, d := range def.Filters {
		cols[d.Column] = true
	}
	return &Table[T]{pool: pool, name: def.Name, columns: cols, nowFunc: time.Now}
}

var _ resource.Store[struct{}] = (*Table[struct{}])(nil)

// Create inserts a row built from fields and returns it.
func (t *Table[T]) Create(ctx context.Context, fields resource.Fields) (*T, error) {
	now := t.nowFunc().UTC()
	cols, args, err := t.assignments(fields)
	if err != nil {
		return nil, err
	}
	cols = append([]string{"id"}, cols...)
	args = append([]any{uuid.NewString()}, args...)
	cols = append(cols, "created_at", "updated_at")
	args = append(args, now, now)

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		t.ident(), strings.Join(quote(cols), ", "), strings.Join(placeholders, ", "))

	rows, err := t.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, t.wrap("insert", err)
	}
	item, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[T])
	if err != nil {
		return nil, t.wrap("insert", err)
	}
	return item, nil
}

// List returns every row oldest first.
func (t *Table[T]) List(ctx context.Context) ([]*T, error) {
	rows, err := t.pool.Query(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY created_at, id", t.ident()))
	if err != nil {
		return nil, t.wrap("select", err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[T])
	if err != nil {
		return nil, t.wrap("select", err)
	}
	if items == nil {
		items = []*T{}
	}
	return items, nil
}

// FindOne returns the first row matching filter.
func (t *Table[T]) FindOne(ctx context.Context, filter resource.Filter) (*T, error) {
	where, err := t.where(filter, 1)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s ORDER BY created_at LIMIT 1", t.ident(), where)
	rows, err := t.pool.Query(ctx, query, filter.Value)
	if err != nil {
		return nil, t.wrap("select", err)
	}
	item, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[T])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, resource.ErrNotFound
		}
		return nil, t.wrap("select", err)
	}
	return item, nil
}

// Update sets fields on every row matching filter.
func (t *Table[T]) Update(ctx context.Context, filter resource.Filter, fields resource.Fields) error {
	cols, args, err := t.assignments(fields)
	if err != nil {
		return err
	}
	cols = append(cols, "updated_at")
	args = append(args, t.nowFunc().UTC())

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{c}.Sanitize(), i+1)
	}
	where, err := t.where(filter, len(args)+1)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", t.ident(), strings.Join(sets, ", "), where)

	ct, err := t.pool.Exec(ctx, query, append(args, filter.Value)...)
	if err != nil {
		return t.wrap("update", err)
	}
	if ct.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

// Delete removes every row matching filter.
func (t *Table[T]) Delete(ctx context.Context, filter resource.Filter) error {
	where, err := t.where(filter, 1)
	if err != nil {
		return err
	}
	ct, err := t.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", t.ident(), where), filter.Value)
	if err != nil {
		return t.wrap("delete", err)
	}
	if ct.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func (t *Table[T]) ident() string {
	return pgx.Identifier{t.name}.Sanitize()
}

func (t *Table[T]) where(filter resource.Filter, n int) (string, error) {
	if !t.columns[filter.Column] {
		return "", fmt.Errorf("%w: column %q", resource.ErrInvalidFilter, filter.Column)
	}
	return fmt.Sprintf("%s = $%d", pgx.Identifier{filter.Column}.Sanitize(), n), nil
}

// assignments returns fields in a stable column order.
func (t *Table[T]) assignments(fields resource.Fields) ([]string, []any, error) {
	cols := make([]string, 0, len(fields))
	for c := range fields {
		if !t.columns[c] || c == resource.IDColumn {
			return nil, nil, fmt.Errorf("%s: column %q is not writable", t.name, c)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = fields[c]
	}
	return cols, args, nil
}

func (t *Table[T]) wrap(op string, err error) error {
	if isUniqueViolation(err) {
		return resource.ErrConflict
	}
	return fmt.Errorf("%s %s: %w", op, t.name, err)
}

func quote(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgx.Identifier{c}.Sanitize()
	}
	return out
}
