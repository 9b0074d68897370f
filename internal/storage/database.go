package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// OpenDB opens the SQLite file at path and creates the recordings table.
// number carries the UNIQUE constraint the local registry relies on.
func OpenDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("OpenDB(): failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("OpenDB(): failed to open database: %w", err)
	}
	// SQLite는 단일 writer, 커넥션 하나로 직렬화
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("OpenDB(): failed to connect to database: %w", err)
	}

	createRecordingsTable := `
	CREATE TABLE IF NOT EXISTS recordings (
			"id" INTEGER PRIMARY KEY AUTOINCREMENT,
			"number" TEXT NOT NULL UNIQUE,
			"file_path" TEXT NOT NULL,
			"created_at" TEXT NOT NULL
	)`
	if _, err := db.Exec(createRecordingsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("OpenDB(): failed to create recordings table: %w", err)
	}

	logrus.WithField("path", path).Info("OpenDB(): Init and create table successfully!")
	return db, nil
}
