package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// DocumentStore is the authoritative remote store.  Every call may fail
// with a network or driver error; Gateway decides what to do about it.
type DocumentStore interface {
	Put(ctx context.Context, collection string, doc Document) error
	Get(ctx context.Context, collection, id string) (Document, error)
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, f Filter) ([]Document, error)
	Latest(ctx context.Context, collection string) (Document, error)
}

// documentRow mirrors the documents table.
type documentRow struct {
	ID        string    `db:"id"`
	Date      string    `db:"doc_date"`
	Status    string    `db:"status"`
	Body      []byte    `db:"body"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r documentRow) document() Document {
	return Document{ID: r.ID, Date: r.Date, Status: r.Status, Body: r.Body, UpdatedAt: r.UpdatedAt}
}

// SQLDocumentStore keeps every collection in one "documents" table.  It
// speaks the MySQL dialect by default and Postgres when the handle was
// opened with the pgx driver.
//
// A failed EnsureSchema leaves the schema pending: every later call retries
// it first, so a database that was down at boot is picked up once it
// answers.
type SQLDocumentStore struct {
	db *sqlx.DB

	schemaMu      sync.Mutex
	schemaPending bool
}

// NewSQLDocumentStore returns a store bound to db.
func NewSQLDocumentStore(db *sqlx.DB) *SQLDocumentStore { return &SQLDocumentStore{db: db} }

func (s *SQLDocumentStore) postgres() bool {
	return s.db.DriverName() == "pgx" || s.db.DriverName() == "postgres"
}

// EnsureSchema creates the documents table when it does not exist yet.
func (s *SQLDocumentStore) EnsureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	err := s.createSchema(ctx)
	s.schemaPending = err != nil
	return err
}

// ready retries a pending schema creation.
func (s *SQLDocumentStore) ready(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if !s.schemaPending {
		return nil
	}
	if err := s.createSchema(ctx); err != nil {
		return err
	}
	s.schemaPending = false
	return nil
}

func (s *SQLDocumentStore) createSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			collection VARCHAR(64)  NOT NULL,
			id         VARCHAR(191) NOT NULL,
			doc_date   CHAR(10)     NOT NULL DEFAULT '',
			status     VARCHAR(32)  NOT NULL DEFAULT '',
			body       JSON         NOT NULL,
			updated_at DATETIME(6)  NOT NULL,
			PRIMARY KEY (collection, id),
			KEY idx_documents_date (collection, doc_date)
		)`,
	}
	if s.postgres() {
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS documents (
				collection VARCHAR(64)  NOT NULL,
				id         VARCHAR(191) NOT NULL,
				doc_date   CHAR(10)     NOT NULL DEFAULT '',
				status     VARCHAR(32)  NOT NULL DEFAULT '',
				body       JSONB        NOT NULL,
				updated_at TIMESTAMPTZ  NOT NULL,
				PRIMARY KEY (collection, id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_documents_date ON documents (collection, doc_date)`,
		}
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure documents schema: %w", err)
		}
	}
	return nil
}

// Put inserts or replaces a document wholesale.
func (s *SQLDocumentStore) Put(ctx context.Context, collection string, doc Document) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	q := `INSERT INTO documents (collection, id, doc_date, status, body, updated_at)
	      VALUES (?, ?, ?, ?, ?, ?)
	      ON DUPLICATE KEY UPDATE doc_date = VALUES(doc_date), status = VALUES(status),
	                              body = VALUES(body), updated_at = VALUES(updated_at)`
	if s.postgres() {
		q = s.db.Rebind(`INSERT INTO documents (collection, id, doc_date, status, body, updated_at)
	      VALUES (?, ?, ?, ?, ?, ?)
	      ON CONFLICT (collection, id) DO UPDATE SET doc_date = EXCLUDED.doc_date, status = EXCLUDED.status,
	                                                body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`)
	}
	updated := doc.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, q, collection, doc.ID, doc.Date, doc.Status, doc.Body, updated.UTC())
	return err
}

// Get returns a single document or ErrNotFound.
func (s *SQLDocumentStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := s.ready(ctx); err != nil {
		return Document{}, err
	}
	q := s.db.Rebind(`SELECT id, doc_date, status, body, updated_at
	                  FROM documents WHERE collection = ? AND id = ?`)
	var row documentRow
	if err := s.db.GetContext(ctx, &row, q, collection, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return row.document(), nil
}

// Delete removes a document.  Deleting a missing document is not an error.
func (s *SQLDocumentStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	q := s.db.Rebind(`DELETE FROM documents WHERE collection = ? AND id = ?`)
	_, err := s.db.ExecContext(ctx, q, collection, id)
	return err
}

// Query lists documents of a collection matching f, newest date first.
func (s *SQLDocumentStore) Query(ctx context.Context, collection string, f Filter) ([]Document, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	q := `SELECT id, doc_date, status, body, updated_at FROM documents WHERE collection = ?`
	args := []interface{}{collection}
	if f.DateFrom != "" {
		q += ` AND doc_date >= ?`
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		q += ` AND doc_date <= ?`
		args = append(args, f.DateTo)
	}
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, f.Status)
	}
	q += ` ORDER BY doc_date DESC, id`

	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, r.document())
	}
	return docs, nil
}

// Latest returns the most recently written document of a collection.
func (s *SQLDocumentStore) Latest(ctx context.Context, collection string) (Document, error) {
	if err := s.ready(ctx); err != nil {
		return Document{}, err
	}
	q := s.db.Rebind(`SELECT id, doc_date, status, body, updated_at
	                  FROM documents WHERE collection = ?
	                  ORDER BY updated_at DESC LIMIT 1`)
	var row documentRow
	if err := s.db.GetContext(ctx, &row, q, collection); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return row.document(), nil
}
