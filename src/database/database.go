package database

import (
	"database/sql"
	"fmt"
	stdlog "log"

	"github.com/navrlluis/crypto-tax/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateCalculationsTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS calculations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_hash TEXT NOT NULL,
		email TEXT NOT NULL,
		tax_id TEXT,
		filer_name TEXT,
		exchange TEXT NOT NULL,
		transaction_count INTEGER,
		skipped_row_count INTEGER,
		error_count INTEGER,
		gains REAL,
		losses REAL,
		net_position REAL,
		staking_income REAL,
		estimated_tax REAL,
		created_at TEXT NOT NULL
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

func migrateCalculationsTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='calculations'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			if logger.L != nil {
				logger.L.Info("'calculations' table does not exist, no migration needed as table will be created.")
			} else {
				stdlog.Println("'calculations' table does not exist, no migration needed as table will be created.")
			}
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'calculations' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'calculations' table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(calculations)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'calculations'", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for 'calculations': %v", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}

		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for 'calculations'", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for 'calculations': %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'calculations'", "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for 'calculations': %v", err)
		}
		return
	}

	for _, column := range []string{"skipped_row_count", "error_count"} {
		if _, ok := columnExists[column]; ok {
			continue
		}
		_, err := DB.Exec(fmt.Sprintf("ALTER TABLE calculations ADD COLUMN %s INTEGER DEFAULT 0", column))
		if err != nil {
			if logger.L != nil {
				logger.L.Error("Error adding column to 'calculations' table", "column", column, "error", err)
			} else {
				stdlog.Printf("Error adding '%s' column to 'calculations' table: %v", column, err)
			}
			continue
		}
		if logger.L != nil {
			logger.L.Info("Added column to 'calculations' table", "column", column)
		} else {
			stdlog.Printf("Added '%s' column to 'calculations' table", column)
		}
	}
}
