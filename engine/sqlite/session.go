/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// session implements engine.Session for entity-level reads. Sessions share
// the engine's pooled handle and hold no state of their own, so closing one
// is a no-op.
type session struct {
	engine *Engine
}

func (s *session) Select(ctx context.Context, entityName string, limit int) ([]map[string]any, error) {
	desc, ok := s.engine.descriptorFor(entityName)
	if !ok {
		return nil, fmt.Errorf("entity %q is not discovered", entityName)
	}

	query := "SELECT * FROM " + quoteIdent(desc.TableName)
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.engine.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %q: %w", entityName, err)
	}
	defer rows.Close()
	return collectRows(rows)
}

func (s *session) Close() error { return nil }

// sqlSession implements engine.SQLSession for raw read queries.
type sqlSession struct {
	sqlDB *sql.DB
}

func (s *sqlSession) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	return collectRows(rows)
}

func (s *sqlSession) Close() error { return nil }

// collectRows materializes a result set into generic column maps.
func collectRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
