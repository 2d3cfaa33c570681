// package database provides sqlite connection management.
package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB wraps a sqlite-backed GORM instance.
type DB struct {
	GORM *gorm.DB
}

// New opens the sqlite database at the given path, creating the parent
// directory if needed, and applies pragmas for concurrent use.
func New(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	gormDB, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL keeps readers unblocked during the single fetch writer's commits
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if err := gormDB.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	return &DB{GORM: gormDB}, nil
}

// Close closes the underlying sql connection.
func (db *DB) Close() error {
	sqlDB, err := db.GORM.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks if the database is reachable.
func (db *DB) Ping() error {
	sqlDB, err := db.GORM.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
