package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattjoyce/toolhub/internal/config"
	"github.com/mattjoyce/toolhub/internal/storage"
)

// SQLite stores tools in the `tools` table.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens the catalog database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewSQLite(db), nil
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db, now: time.Now}
}

func (s *SQLite) Close() error { return s.db.Close() }

const toolColumns = `id, name, command, working_dir, port, launch_url, description, enabled`

func (s *SQLite) Get(ctx context.Context, id string) (Tool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+toolColumns+` FROM tools WHERE id = ?;`, id)
	t, err := scanTool(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Tool{}, ErrToolNotFound
	}
	if err != nil {
		return Tool{}, fmt.Errorf("get tool %q: %w", id, err)
	}
	return t, nil
}

func (s *SQLite) List(ctx context.Context) ([]Tool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+toolColumns+` FROM tools ORDER BY name, id;`)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	defer rows.Close()

	out := []Tool{}
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tool: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) Upsert(ctx context.Context, t Tool) error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("tool id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("tool %q: name is required", t.ID)
	}
	var port sql.NullInt64
	if t.Port != nil {
		port = sql.NullInt64{Int64: int64(*t.Port), Valid: true}
	}
	now := s.now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO tools (id, name, command, working_dir, port, launch_url, description, enabled, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  name = excluded.name,
  command = excluded.command,
  working_dir = excluded.working_dir,
  port = excluded.port,
  launch_url = excluded.launch_url,
  description = excluded.description,
  enabled = excluded.enabled,
  updated_at = excluded.updated_at;`,
		t.ID, t.Name, t.Command, t.WorkingDir, port, t.LaunchURL, t.Description, boolToInt(t.Enabled), now, now)
	if err != nil {
		return fmt.Errorf("upsert tool %q: %w", t.ID, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tools WHERE id = ?;`, id)
	if err != nil {
		return false, fmt.Errorf("delete tool %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Seed inserts config-defined tools that are not already present.
func (s *SQLite) Seed(ctx context.Context, defs []config.ToolConfig) (int, error) {
	added := 0
	for _, d := range defs {
		if _, err := s.Get(ctx, d.ID); err == nil {
			continue
		} else if !errors.Is(err, ErrToolNotFound) {
			return added, err
		}
		if err := s.Upsert(ctx, FromConfig(d)); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTool(row scanner) (Tool, error) {
	var (
		t       Tool
		port    sql.NullInt64
		enabled int
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Command, &t.WorkingDir, &port, &t.LaunchURL, &t.Description, &enabled); err != nil {
		return Tool{}, err
	}
	if port.Valid {
		p := int(port.Int64)
		t.Port = &p
	}
	t.Enabled = enabled != 0
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
