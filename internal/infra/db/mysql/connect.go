package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the tables the service needs. The deployment model
// has no separate migration step; this runs once at startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const analysesTable = `
CREATE TABLE IF NOT EXISTS analyses (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  description TEXT NULL,
  objects JSON NOT NULL,
  text JSON NOT NULL,
  dominant_colors JSON NOT NULL,
  category VARCHAR(255) NULL,
  image_url VARCHAR(1024) NOT NULL DEFAULT '',
  created_at DATETIME(3) NOT NULL,
  updated_at DATETIME(3) NOT NULL,
  INDEX idx_analyses_created_at (created_at)
);`
	const faultsTable = `
CREATE TABLE IF NOT EXISTS analysis_faults (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  stage VARCHAR(32) NOT NULL,
  message TEXT NOT NULL,
  image_url VARCHAR(1024) NOT NULL DEFAULT '',
  created_at DATETIME(3) NOT NULL
);`
	if _, err := db.ExecContext(ctx, analysesTable); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, faultsTable)
	return err
}
