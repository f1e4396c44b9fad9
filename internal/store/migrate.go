package store

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"
)

//go:embed schema
var schemaFS embed.FS

// applyInitialSchema creates all tables on a fresh store. Unlike
// migrations, a failure here is fatal.
func (s *Store) applyInitialSchema() error {
	raw, err := fs.ReadFile(schemaFS, "schema/init.sql")
	if err != nil {
		return fmt.Errorf("read initial schema: %w", err)
	}
	for _, stmt := range splitStatements(string(raw)) {
		if _, err := s.exec(stmt); err != nil {
			return fmt.Errorf("apply initial schema: %w", err)
		}
	}
	log.Printf("store: initial schema applied")
	return nil
}

// runMigrations applies every schema script in filename order against an
// existing store. A failing script is logged and skipped so that re-running
// historical migrations against an already-migrated store (duplicate
// columns and the like) never blocks startup; the runner always completes.
// The store is persisted once after the run.
func (s *Store) runMigrations() {
	names, err := fs.Glob(schemaFS, "schema/migrations/*.sql")
	if err != nil {
		log.Printf("store: list migrations: %v", err)
		return
	}
	sort.Strings(names)

	for _, name := range names {
		raw, err := fs.ReadFile(schemaFS, name)
		if err != nil {
			log.Printf("store: migration %s unreadable, skipping: %v", name, err)
			continue
		}
		if err := s.applyScript(string(raw)); err != nil {
			log.Printf("store: migration %s failed, continuing: %v", name, err)
			continue
		}
		log.Printf("store: migration %s applied", name)
	}

	if err := s.snapshot(); err != nil {
		log.Printf("store: snapshot after migrations failed: %v", err)
	}
}

// applyScript executes a multi-statement script, stopping at the first
// failing statement.
func (s *Store) applyScript(script string) error {
	for _, stmt := range splitStatements(script) {
		if _, err := s.exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// splitStatements breaks a script on the statement terminator, dropping
// whitespace-only fragments.
func splitStatements(script string) []string {
	parts := strings.Split(script, ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			stmts = append(stmts, trimmed)
		}
	}
	return stmts
}
