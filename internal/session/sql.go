package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quizbank/backend/internal/database"
	"github.com/quizbank/backend/internal/models"
)

// SQLStore keeps session documents in the quiz_sessions table of a
// Postgres or SQLite database.
type SQLStore struct {
	db      *sql.DB
	log     *zap.Logger
	getQ    string
	saveQ   string
	deleteQ string
}

// NewSQLStore wraps an open, migrated database. driver selects the
// placeholder dialect.
func NewSQLStore(db *sql.DB, driver string, log *zap.Logger) (*SQLStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch driver {
	case database.Postgres:
		return &SQLStore{
			db:   db,
			log:  log,
			getQ: `SELECT data FROM quiz_sessions WHERE id = $1`,
			saveQ: `INSERT INTO quiz_sessions (id, data, updated_at) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
			deleteQ: `DELETE FROM quiz_sessions WHERE id = $1`,
		}, nil
	case database.SQLite:
		return &SQLStore{
			db:   db,
			log:  log,
			getQ: `SELECT data FROM quiz_sessions WHERE id = ?`,
			saveQ: `INSERT INTO quiz_sessions (id, data, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
			deleteQ: `DELETE FROM quiz_sessions WHERE id = ?`,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

func (s *SQLStore) Get(ctx context.Context, id string) (*models.Session, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, s.getQ, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return decode(data, s.log), nil
}

func (s *SQLStore) Save(ctx context.Context, id string, sess *models.Session) error {
	data, err := encode(sess)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.saveQ, id, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.deleteQ, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
