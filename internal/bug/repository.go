package bug

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultQueryTimeout = 5 * time.Second

const bugColumns = `id, seq, title, description, status, priority, reported_by, assigned_to,
	steps_to_reproduce, env_os, env_browser, env_version, created_at, updated_at`

// sortColumns maps wire field names onto ORDER BY expressions. Text columns use the C
// collation so ordering is by byte value, matching Execute.
var sortColumns = map[string]string{
	"title":       `title COLLATE "C"`,
	"description": `description COLLATE "C"`,
	"status":      `status COLLATE "C"`,
	"priority":    `priority COLLATE "C"`,
	"reportedBy":  `reported_by COLLATE "C"`,
	"assignedTo":  `assigned_to COLLATE "C"`,
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"id":          "seq",
	"_id":         "seq",
}

// Repository stores bugs in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a new Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts b and returns it with its assigned sequence.
func (r *Repository) Create(ctx context.Context, b Bug) (Bug, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
INSERT INTO bugs (id, title, description, status, priority, reported_by, assigned_to,
	steps_to_reproduce, env_os, env_browser, env_version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING ` + bugColumns + `;`

	row := r.pool.QueryRow(ctx, query,
		b.ID, b.Title, b.Description, string(b.Status), string(b.Priority), b.ReportedBy, b.AssignedTo,
		b.StepsToReproduce, b.Environment.OS, b.Environment.Browser, b.Environment.Version,
		b.CreatedAt, b.UpdatedAt,
	)
	created, err := scanBug(row)
	if err != nil {
		return Bug{}, fmt.Errorf("insert bug: %w", err)
	}
	return created, nil
}

// Get fetches a bug by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Bug, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `SELECT ` + bugColumns + ` FROM bugs WHERE id = $1;`

	b, err := scanBug(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bug{}, ErrBugNotFound
		}
		return Bug{}, fmt.Errorf("find bug: %w", err)
	}
	return b, nil
}

// List runs the count and the page query in one read-only snapshot so the total
// agrees with the returned rows.
func (r *Repository) List(ctx context.Context, d Descriptor) (Page, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return Page{}, fmt.Errorf("begin list: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	where, args := whereClause(d)

	var total int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM bugs`+where+`;`, args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("count bugs: %w", err)
	}

	query, args := pageQuery(d)
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("list bugs: %w", err)
	}
	defer rows.Close()

	bugs := make([]Bug, 0, d.Limit)
	for rows.Next() {
		b, err := scanBug(rows)
		if err != nil {
			return Page{}, fmt.Errorf("scan bug: %w", err)
		}
		bugs = append(bugs, b)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("iterate bugs: %w", err)
	}

	return Page{Bugs: bugs, Pagination: NewPagination(d.Page, d.Limit, total)}, nil
}

// Update overwrites every mutable column of b.
func (r *Repository) Update(ctx context.Context, b Bug) (Bug, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
UPDATE bugs
SET title = $2, description = $3, status = $4, priority = $5, reported_by = $6, assigned_to = $7,
	steps_to_reproduce = $8, env_os = $9, env_browser = $10, env_version = $11,
	updated_at = GREATEST($12, created_at)
WHERE id = $1
RETURNING ` + bugColumns + `;`

	updated, err := scanBug(r.pool.QueryRow(ctx, query,
		b.ID, b.Title, b.Description, string(b.Status), string(b.Priority), b.ReportedBy, b.AssignedTo,
		b.StepsToReproduce, b.Environment.OS, b.Environment.Browser, b.Environment.Version,
		b.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bug{}, ErrBugNotFound
		}
		return Bug{}, fmt.Errorf("update bug: %w", err)
	}
	return updated, nil
}

// Delete removes a bug by id.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM bugs WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete bug: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBugNotFound
	}
	return nil
}

// Stats computes both distributions in a single grouping-sets scan.
func (r *Repository) Stats(ctx context.Context) (Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
SELECT status, priority, COUNT(*),
	AVG(CASE priority
		WHEN 'critical' THEN 4
		WHEN 'high' THEN 3
		WHEN 'medium' THEN 2
		WHEN 'low' THEN 1
		ELSE 2
	END)::float8
FROM bugs
GROUP BY GROUPING SETS ((status), (priority));`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return Summary{}, fmt.Errorf("bug stats: %w", err)
	}
	defer rows.Close()

	var statusGroups, priorityGroups []GroupCount
	for rows.Next() {
		var (
			status, priority *string
			count            int64
			avg              float64
		)
		if err := rows.Scan(&status, &priority, &count, &avg); err != nil {
			return Summary{}, fmt.Errorf("scan stats: %w", err)
		}
		switch {
		case status != nil:
			avgPriority := avg
			statusGroups = append(statusGroups, GroupCount{ID: *status, Count: count, AvgPriority: &avgPriority})
		case priority != nil:
			priorityGroups = append(priorityGroups, GroupCount{ID: *priority, Count: count})
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterate stats: %w", err)
	}

	return NewSummary(statusGroups, priorityGroups), nil
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func whereClause(d Descriptor) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if d.Status != nil {
		conds = append(conds, "status = "+arg(string(*d.Status)))
	}
	if d.Priority != nil {
		conds = append(conds, "priority = "+arg(string(*d.Priority)))
	}
	if d.Search != nil {
		p := arg(strings.ToLower(*d.Search))
		conds = append(conds, fmt.Sprintf("(strpos(lower(title), %s) > 0 OR strpos(lower(description), %s) > 0)", p, p))
	}
	if d.ReportedBy != nil {
		conds = append(conds, fmt.Sprintf("strpos(lower(reported_by), %s) > 0", arg(strings.ToLower(*d.ReportedBy))))
	}
	if d.AssignedTo != nil {
		conds = append(conds, fmt.Sprintf("strpos(lower(assigned_to), %s) > 0", arg(strings.ToLower(*d.AssignedTo))))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// pageQuery selects one page of the rows matched by whereClause.
func pageQuery(d Descriptor) (string, []any) {
	where, args := whereClause(d)
	args = append(args, d.Limit, d.Skip())
	return fmt.Sprintf(`SELECT %s FROM bugs%s ORDER BY %s LIMIT $%d OFFSET $%d;`,
		bugColumns, where, orderClause(d.Sort), len(args)-1, len(args)), args
}

func orderClause(keys []SortKey) string {
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		col, ok := sortColumns[k.Field]
		if !ok {
			continue
		}
		if k.Desc {
			col += " DESC"
		} else {
			col += " ASC"
		}
		parts = append(parts, col)
	}
	parts = append(parts, "seq ASC")
	return strings.Join(parts, ", ")
}

func scanBug(row pgx.Row) (Bug, error) {
	var (
		b                Bug
		status, priority string
		steps            []string
	)
	err := row.Scan(
		&b.ID,
		&b.Seq,
		&b.Title,
		&b.Description,
		&status,
		&priority,
		&b.ReportedBy,
		&b.AssignedTo,
		&steps,
		&b.Environment.OS,
		&b.Environment.Browser,
		&b.Environment.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return Bug{}, err
	}
	if steps == nil {
		steps = []string{}
	}
	b.Status = Status(status)
	b.Priority = Priority(priority)
	b.StepsToReproduce = steps
	return b, nil
}
