// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package backup implements the backup manager (spec §4.6): full/
// incremental backup archives, per-file LSN tracking, chain restore, and
// validation. Unlike the checkpoint manager's flat .meta sidecars, the
// backup chain's own bookkeeping (which backup is whose parent, per-file
// LSN deltas) is relational enough to earn a small catalog database —
// generalizing the teacher's sqlx+sqlite usage for its own config/auth
// stores to a backup-chain catalog instead.
package backup

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migsqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	mattnsqlite3 "github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const hookedDriverName = "sqlite3-backup-catalog"

var driverRegistered bool

type queryTimerKey struct{}

// loggingHooks logs catalog queries slower than a threshold via cclog,
// matching the teacher's levelled logging conventions.
type loggingHooks struct{}

func (loggingHooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	return context.WithValue(ctx, queryTimerKey{}, time.Now()), nil
}

func (loggingHooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	if start, ok := ctx.Value(queryTimerKey{}).(time.Time); ok {
		if d := time.Since(start); d > 50*time.Millisecond {
			cclog.Warnf("[Backup]> slow catalog query (%s): %s", d, query)
		}
	}
	return ctx, nil
}

func registerHookedDriver() {
	if driverRegistered {
		return
	}
	sql.Register(hookedDriverName, sqlhooks.Wrap(&mattnsqlite3.SQLiteDriver{}, loggingHooks{}))
	driverRegistered = true
}

// Catalog persists backup chain metadata in a sqlite database (spec §4.6).
type Catalog struct {
	db *sqlx.DB
}

// OpenCatalog opens (creating and migrating if needed) the sqlite catalog
// at path.
func OpenCatalog(path string) (*Catalog, error) {
	registerHookedDriver()
	db, err := sqlx.Connect(hookedDriverName, path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("backup: opening catalog: %w", err)
	}

	if err := migrateCatalog(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return &Catalog{db: db}, nil
}

func migrateCatalog(db *sql.DB) error {
	driver, err := migsqlite3.WithInstance(db, &migsqlite3.Config{})
	if err != nil {
		return fmt.Errorf("backup: migration driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("backup: migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("backup: migration init: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("backup: applying migrations: %w", err)
	}
	return nil
}

// Record is one backups row (spec §4.6).
type Record struct {
	ID        string  `db:"id"`
	ParentID  *string `db:"parent_id"`
	Kind      string  `db:"kind"`
	Path      string  `db:"path"`
	StartLSN  uint64  `db:"start_lsn"`
	EndLSN    uint64  `db:"end_lsn"`
	CRC32     uint32  `db:"crc32"`
	CreatedMs int64   `db:"created_ms"`
	Encrypted bool    `db:"encrypted"`
}

// FileRecord is one backup_files row: a file's state as of this backup.
type FileRecord struct {
	BackupID        string `db:"backup_id"`
	Path            string `db:"path"`
	LastModifiedLSN uint64 `db:"last_modified_lsn"`
	Size            int64  `db:"size"`
	CRC32           uint32 `db:"crc32"`
}

func (c *Catalog) InsertBackup(r Record) error {
	_, err := c.db.NamedExec(`INSERT INTO backups
		(id, parent_id, kind, path, start_lsn, end_lsn, crc32, created_ms, encrypted)
		VALUES (:id, :parent_id, :kind, :path, :start_lsn, :end_lsn, :crc32, :created_ms, :encrypted)`, r)
	return err
}

func (c *Catalog) InsertFiles(backupID string, files []FileRecord) error {
	for _, f := range files {
		f.BackupID = backupID
		if _, err := c.db.NamedExec(`INSERT INTO backup_files
			(backup_id, path, last_modified_lsn, size, crc32)
			VALUES (:backup_id, :path, :last_modified_lsn, :size, :crc32)`, f); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) GetBackup(id string) (Record, error) {
	var r Record
	err := c.db.Get(&r, `SELECT * FROM backups WHERE id = ?`, id)
	return r, err
}

func (c *Catalog) FilesFor(backupID string) ([]FileRecord, error) {
	var files []FileRecord
	err := c.db.Select(&files, `SELECT * FROM backup_files WHERE backup_id = ? ORDER BY path`, backupID)
	return files, err
}

func (c *Catalog) ListBackups() ([]Record, error) {
	var recs []Record
	err := c.db.Select(&recs, `SELECT * FROM backups ORDER BY created_ms ASC`)
	return recs, err
}

// Chain returns the full->incremental* chain ending at id, oldest first.
func (c *Catalog) Chain(id string) ([]Record, error) {
	var chain []Record
	cur := id
	for {
		r, err := c.GetBackup(cur)
		if err != nil {
			return nil, err
		}
		chain = append([]Record{r}, chain...)
		if r.ParentID == nil {
			break
		}
		cur = *r.ParentID
	}
	return chain, nil
}

func (c *Catalog) Close() error { return c.db.Close() }
