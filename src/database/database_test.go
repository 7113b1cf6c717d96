package database

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/navrlluis/crypto-tax/src/logger"
)

func columnNames(t *testing.T, db *sql.DB) map[string]bool {
	t.Helper()
	rows, err := db.Query("PRAGMA table_info(calculations)")
	if err != nil {
		t.Fatalf("failed to query table schema: %v", err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns[name] = true
	}
	return columns
}

func TestInitDBCreatesCalculationsTable(t *testing.T) {
	logger.L = nil
	InitDB(filepath.Join(t.TempDir(), "fresh.db"))
	defer DB.Close()

	columns := columnNames(t, DB)
	for _, col := range []string{"request_hash", "email", "gains", "estimated_tax", "created_at"} {
		if !columns[col] {
			t.Errorf("expected column %q in calculations table", col)
		}
	}
}

func TestInitDBMigratesLegacySchemaWithoutLogger(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "legacy.db")
	legacy, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to open legacy database: %v", err)
	}
	_, err = legacy.Exec(`CREATE TABLE calculations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_hash TEXT NOT NULL,
		email TEXT NOT NULL,
		exchange TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("failed to create legacy table: %v", err)
	}
	legacy.Close()

	// Migration must hold up before the global logger exists.
	logger.L = nil
	InitDB(dbPath)
	defer DB.Close()

	columns := columnNames(t, DB)
	for _, col := range []string{"skipped_row_count", "error_count"} {
		if !columns[col] {
			t.Errorf("expected migrated column %q in calculations table", col)
		}
	}
}
