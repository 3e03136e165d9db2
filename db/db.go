package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cmdoverlay/model"

	_ "github.com/mattn/go-sqlite3"
)

// FileName is the database file inside the data dir.
const FileName = "overlay.db"

type DB struct {
	conn *sql.DB
}

// New opens (creating if needed) the store in dir.
func New(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

func (d *DB) migrate() error {
	_, err := d.conn.Exec(`
		CREATE TABLE IF NOT EXISTS favorites (
			template TEXT PRIMARY KEY,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS usage (
			template TEXT PRIMARY KEY,
			last_used_at DATETIME,
			last_params TEXT DEFAULT '',
			last_sent TEXT DEFAULT ''
		);
	`)
	return err
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// Favorites returns the set of starred templates.
func (d *DB) Favorites() (map[string]bool, error) {
	rows, err := d.conn.Query(`SELECT template FROM favorites`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	starred := make(map[string]bool)
	for rows.Next() {
		var tmpl string
		if err := rows.Scan(&tmpl); err != nil {
			return nil, err
		}
		starred[tmpl] = true
	}
	return starred, rows.Err()
}

// SetFavorite stars or unstars a template.
func (d *DB) SetFavorite(template string, starred bool) error {
	var err error
	if starred {
		_, err = d.conn.Exec(`INSERT OR IGNORE INTO favorites (template) VALUES (?)`, template)
	} else {
		_, err = d.conn.Exec(`DELETE FROM favorites WHERE template = ?`, template)
	}
	return err
}

// RecordUse remembers that template was sent as sent with the given values.
func (d *DB) RecordUse(template string, params map[string]string, sent string) error {
	encoded := ""
	if len(params) > 0 {
		b, err := json.Marshal(params)
		if err != nil {
			return err
		}
		encoded = string(b)
	}
	_, err := d.conn.Exec(`
		INSERT INTO usage (template, last_used_at, last_params, last_sent)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(template) DO UPDATE SET
			last_used_at = excluded.last_used_at,
			last_params = excluded.last_params,
			last_sent = excluded.last_sent
	`, template, time.Now(), encoded, sent)
	return err
}

// Usage returns what is known about template, or nil if it was never sent.
func (d *DB) Usage(template string) (*model.Usage, error) {
	var (
		u        = model.Usage{Template: template}
		lastUsed sql.NullTime
		params   string
	)
	err := d.conn.QueryRow(
		`SELECT last_used_at, last_params, last_sent FROM usage WHERE template = ?`,
		template,
	).Scan(&lastUsed, &params, &u.LastSent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if lastUsed.Valid {
		u.LastUsedAt = &lastUsed.Time
	}
	if params != "" {
		if err := json.Unmarshal([]byte(params), &u.LastParams); err != nil {
			return nil, fmt.Errorf("decode last params: %w", err)
		}
	}
	return &u, nil
}

// LastParams returns the values last submitted for template, or an empty map.
func (d *DB) LastParams(template string) (map[string]string, error) {
	u, err := d.Usage(template)
	if err != nil || u == nil || u.LastParams == nil {
		return map[string]string{}, err
	}
	return u.LastParams, nil
}
