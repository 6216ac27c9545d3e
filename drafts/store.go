// Package drafts keeps the in-progress form state of each browser session in
// SQLite, so a file picked on one request is still there when the form is
// submitted on the next.
package drafts

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/eringen/pubforms/forms"
)

// ErrNotFound is returned when a draft does not exist.
var ErrNotFound = sql.ErrNoRows

// Pages a draft can belong to.
const (
	PageBlog   = "blog"
	PageSignUp = "signup"
)

// Draft is the stored part of a form record: the selected file and its
// preview. Text fields travel with every submit and are not stored.
type Draft struct {
	ID        string
	Page      string
	FileField string
	File      *forms.File
	Preview   string
	UpdatedAt time.Time
}

// Store wraps a SQLite database holding drafts.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open drafts db: %w", err)
	}
	// WAL lets file selections and submits from different tabs overlap;
	// busy_timeout makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure drafts db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS drafts (
    id TEXT PRIMARY KEY,
    page TEXT NOT NULL,
    file_field TEXT NOT NULL DEFAULT '',
    file_name TEXT NOT NULL DEFAULT '',
    file_type TEXT NOT NULL DEFAULT '',
    file_data BLOB,
    preview TEXT NOT NULL DEFAULT '',
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_drafts_updated_at ON drafts(updated_at);
`)
	return err
}

// Create starts an empty draft for page and returns it.
func (s *Store) Create(page string) (Draft, error) {
	id, err := newID()
	if err != nil {
		return Draft{}, err
	}
	now := time.Now().UTC()
	if _, err := s.db.Exec(`INSERT INTO drafts (id, page, updated_at) VALUES (?, ?, ?)`, id, page, now.Unix()); err != nil {
		return Draft{}, fmt.Errorf("insert draft: %w", err)
	}
	return Draft{ID: id, Page: page, UpdatedAt: now}, nil
}

// Get returns the draft with the given id if it belongs to page.
func (s *Store) Get(id, page string) (Draft, error) {
	var (
		d                  Draft
		fileName, fileType string
		data               []byte
		updated            int64
	)
	err := s.db.QueryRow(`SELECT id, page, file_field, file_name, file_type, file_data, preview, updated_at FROM drafts WHERE id = ? AND page = ?`, id, page).
		Scan(&d.ID, &d.Page, &d.FileField, &fileName, &fileType, &data, &d.Preview, &updated)
	if err != nil {
		return Draft{}, err
	}
	if d.FileField != "" {
		d.File = &forms.File{Name: fileName, ContentType: fileType, Data: data}
	}
	d.UpdatedAt = time.Unix(updated, 0).UTC()
	return d, nil
}

// SaveFile replaces the file selected in the draft. The latest call wins.
func (s *Store) SaveFile(id, field string, f *forms.File, preview string) error {
	if f == nil {
		return errors.New("drafts: nil file")
	}
	res, err := s.db.Exec(`UPDATE drafts SET file_field = ?, file_name = ?, file_type = ?, file_data = ?, preview = ?, updated_at = ? WHERE id = ?`,
		field, f.Name, f.ContentType, f.Data, preview, time.Now().UTC().Unix(), id)
	if err != nil {
		return fmt.Errorf("update draft: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a draft. Deleting a missing draft is not an error.
func (s *Store) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM drafts WHERE id = ?`, id)
	return err
}

// DeleteOlderThan removes drafts not touched since cutoff and returns how
// many were removed.
func (s *Store) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM drafts WHERE updated_at < ?`, cutoff.UTC().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StartCleanupScheduler periodically removes drafts older than maxAge.
// Returns a stop function.
func (s *Store) StartCleanupScheduler(maxAge, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				n, err := s.DeleteOlderThan(time.Now().Add(-maxAge))
				if err != nil {
					log.Errorf("drafts cleanup: %s", err)
					continue
				}
				if n > 0 {
					log.Debugf("drafts cleanup: removed %d stale drafts", n)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}

func newID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate draft id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
