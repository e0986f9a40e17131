package sqldb

import (
	"context"
	"fmt"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id            BIGINT AUTO_INCREMENT PRIMARY KEY,
		clinic_name   VARCHAR(255) NOT NULL,
		username      VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16)  NOT NULL DEFAULT 'clinic',
		created_at    BIGINT       NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		session_id  VARCHAR(128) NOT NULL PRIMARY KEY,
		user_id     BIGINT       NOT NULL,
		username    VARCHAR(255) NOT NULL,
		role        VARCHAR(16)  NOT NULL,
		clinic_name VARCHAR(255) NOT NULL,
		expires     BIGINT       NOT NULL,
		last_access BIGINT       NOT NULL,
		INDEX idx_sessions_expires (expires),
		INDEX idx_sessions_user (user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS patients (
		id                BIGINT AUTO_INCREMENT PRIMARY KEY,
		clinic_id         BIGINT       NOT NULL,
		name              VARCHAR(255) NOT NULL,
		age               INT          NOT NULL,
		medical_condition VARCHAR(255) NOT NULL,
		notes             TEXT         NULL,
		created_at        BIGINT       NOT NULL,
		INDEX idx_patients_clinic (clinic_id)
	)`,
	`CREATE TABLE IF NOT EXISTS readings (
		id         BIGINT AUTO_INCREMENT PRIMARY KEY,
		patient_id BIGINT      NOT NULL,
		date       VARCHAR(10) NOT NULL,
		time       VARCHAR(5)  NOT NULL,
		systolic   INT         NOT NULL,
		diastolic  INT         NOT NULL,
		notes      TEXT        NULL,
		created_at BIGINT      NOT NULL,
		INDEX idx_readings_patient (patient_id, date, time)
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		clinic_name   TEXT    NOT NULL,
		username      TEXT    NOT NULL UNIQUE,
		password_hash TEXT    NOT NULL,
		role          TEXT    NOT NULL DEFAULT 'clinic',
		created_at    INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		session_id  TEXT    NOT NULL PRIMARY KEY,
		user_id     INTEGER NOT NULL,
		username    TEXT    NOT NULL,
		role        TEXT    NOT NULL,
		clinic_name TEXT    NOT NULL,
		expires     INTEGER NOT NULL,
		last_access INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions (expires)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions (user_id)`,
	`CREATE TABLE IF NOT EXISTS patients (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		clinic_id         INTEGER NOT NULL,
		name              TEXT    NOT NULL,
		age               INTEGER NOT NULL,
		medical_condition TEXT    NOT NULL,
		notes             TEXT    NULL,
		created_at        INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_patients_clinic ON patients (clinic_id)`,
	`CREATE TABLE IF NOT EXISTS readings (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		patient_id INTEGER NOT NULL,
		date       TEXT    NOT NULL,
		time       TEXT    NOT NULL,
		systolic   INTEGER NOT NULL,
		diastolic  INTEGER NOT NULL,
		notes      TEXT    NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_readings_patient ON readings (patient_id, date, time)`,
}

// Migrate creates any missing tables and indexes. It is safe to run repeatedly.
func (db *DB) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if db.dialect == MySQL {
		stmts = mysqlSchema
	}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqldb: migrate statement %d: %w", i, err)
		}
	}
	return nil
}
