package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// memoryPath is the SQLite name for a private in-memory database.
const memoryPath = ":memory:"

// Open opens a SQLite database connection and configures pragmas.
// Pragmas are passed in the DSN so that every pooled connection gets them.
func Open(path string) (*sql.DB, error) {
	pragmas := []string{
		"busy_timeout(5000)",
		"foreign_keys(1)",
	}
	if path != memoryPath {
		pragmas = append(pragmas, "journal_mode(WAL)", "synchronous(NORMAL)")
	}

	params := make([]string, 0, len(pragmas)+1)
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}
	params = append(params, "_time_format=sqlite")

	db, err := sql.Open("sqlite", path+"?"+strings.Join(params, "&"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if path == memoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return db, nil
}
