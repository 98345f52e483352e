package store

import (
	"database/sql"
	"fmt"
)

// ModuleBatch is one module record together with every expression type
// recorded for it during a single analysis.
type ModuleBatch struct {
	Module      Module
	Exprs       []ExprType
	Diagnostics []Diagnostic
}

// CommitModules replaces the cached state of every module in batches within a
// single transaction. Previous expression types and diagnostics are deleted
// before the new ones are inserted, so a module never mixes two analyses.
// The Module.ID of each batch is set to the real row ID.
func (s *Store) CommitModules(batches []*ModuleBatch) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit modules: begin: %w", err)
	}
	defer tx.Rollback()

	insertExpr, err := tx.Prepare(
		`INSERT INTO expr_types (module_id, kind, start_offset, end_offset, type_string)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("commit modules: prepare: %w", err)
	}
	defer insertExpr.Close()

	for _, b := range batches {
		id, err := upsertModuleTx(tx, &b.Module)
		if err != nil {
			return fmt.Errorf("commit modules: module %q: %w", b.Module.Path, err)
		}
		b.Module.ID = id
		if _, err := tx.Exec("DELETE FROM expr_types WHERE module_id = ?", id); err != nil {
			return fmt.Errorf("commit modules: clear %q: %w", b.Module.Path, err)
		}
		if _, err := tx.Exec("DELETE FROM diagnostics WHERE module_id = ?", id); err != nil {
			return fmt.Errorf("commit modules: clear diagnostics %q: %w", b.Module.Path, err)
		}
		for _, d := range b.Diagnostics {
			if _, err := tx.Exec(
				"INSERT INTO diagnostics (module_id, position, message) VALUES (?, ?, ?)",
				id, d.Position, d.Message,
			); err != nil {
				return fmt.Errorf("commit modules: diagnostic in %q: %w", b.Module.Path, err)
			}
		}
		for _, et := range b.Exprs {
			if _, err := insertExpr.Exec(id, et.Kind, et.StartOffset, et.EndOffset, et.TypeString); err != nil {
				return fmt.Errorf("commit modules: expr type in %q: %w", b.Module.Path, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit modules: commit: %w", err)
	}
	return nil
}

func upsertModuleTx(tx *sql.Tx, m *Module) (int64, error) {
	var id int64
	err := tx.QueryRow(
		`INSERT INTO modules (path, package_id, fingerprint, analyzed_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   package_id = excluded.package_id,
		   fingerprint = excluded.fingerprint,
		   analyzed_at = excluded.analyzed_at
		 RETURNING id`,
		m.Path, m.PackageID, m.Fingerprint, m.AnalyzedAt,
	).Scan(&id)
	return id, err
}
