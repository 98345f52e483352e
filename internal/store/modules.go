package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// --- Module operations ---

func (s *Store) ModuleByPath(path string) (*Module, error) {
	m := &Module{}
	err := s.db.QueryRow(
		"SELECT id, path, package_id, fingerprint, analyzed_at FROM modules WHERE path = ?", path,
	).Scan(&m.ID, &m.Path, &m.PackageID, &m.Fingerprint, &m.AnalyzedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("module by path: %w", err)
	}
	return m, nil
}

// ModulesByPaths returns the cached modules for the given paths keyed by
// path. Paths with no cache entry are absent from the map.
func (s *Store) ModulesByPaths(paths []string) (map[string]*Module, error) {
	result := make(map[string]*Module, len(paths))
	if len(paths) == 0 {
		return result, nil
	}
	rows, err := s.db.Query(
		"SELECT id, path, package_id, fingerprint, analyzed_at FROM modules WHERE path IN ("+placeholderList(len(paths))+")",
		stringsToArgs(paths)...,
	)
	if err != nil {
		return nil, fmt.Errorf("modules by paths: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		m := &Module{}
		if err := rows.Scan(&m.ID, &m.Path, &m.PackageID, &m.Fingerprint, &m.AnalyzedAt); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		result[m.Path] = m
	}
	return result, rows.Err()
}

// --- Expression type operations ---

func (s *Store) ExprTypesByModule(moduleID int64) ([]*ExprType, error) {
	rows, err := s.db.Query(
		`SELECT id, module_id, kind, start_offset, end_offset, type_string
		 FROM expr_types WHERE module_id = ? ORDER BY start_offset, id`, moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("expr types by module: %w", err)
	}
	defer rows.Close()
	var exprs []*ExprType
	for rows.Next() {
		et := &ExprType{}
		if err := rows.Scan(&et.ID, &et.ModuleID, &et.Kind, &et.StartOffset, &et.EndOffset, &et.TypeString); err != nil {
			return nil, fmt.Errorf("scan expr type: %w", err)
		}
		exprs = append(exprs, et)
	}
	return exprs, rows.Err()
}

// --- Diagnostic operations ---

func (s *Store) DiagnosticsByModule(moduleID int64) ([]*Diagnostic, error) {
	rows, err := s.db.Query(
		"SELECT id, module_id, position, message FROM diagnostics WHERE module_id = ? ORDER BY id", moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("diagnostics by module: %w", err)
	}
	defer rows.Close()
	var diags []*Diagnostic
	for rows.Next() {
		d := &Diagnostic{}
		if err := rows.Scan(&d.ID, &d.ModuleID, &d.Position, &d.Message); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		diags = append(diags, d)
	}
	return diags, rows.Err()
}
