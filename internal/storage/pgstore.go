package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/pders01/flip/internal/saved"
)

var (
	ErrPostgresFailure          = errors.New("postgres returned an error")
	ErrNotEnoughSQLMigrations   = errors.New("already more migrations than wanted")
	ErrIncompatibleSQLMigration = errors.New("incompatible migration")
)

const uniqueViolation = pq.ErrorCode("23505")

var migrations = []string{
	`CREATE TABLE saved_article (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		published_at TIMESTAMPTZ,
		saved_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (username, url)
	)`,
	`CREATE INDEX saved_article_user_saved_at ON saved_article (username, saved_at DESC)`,
}

// PostgresStore is the saved-item store the service uses when several
// instances share one database.
type PostgresStore struct {
	db *sql.DB
}

var (
	_ saved.Store       = (*PostgresStore)(nil)
	_ saved.BulkChecker = (*PostgresStore)(nil)
)

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrPostgresFailure, err)
	}

	s := &PostgresStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migration
		(id SERIAL PRIMARY KEY, query TEXT)
	`); err != nil {
		return fmt.Errorf("%w: %v", ErrPostgresFailure, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT query FROM migration ORDER BY id`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPostgresFailure, err)
	}
	var existing []string
	for rows.Next() {
		var query string
		if err := rows.Scan(&query); err != nil {
			rows.Close()
			return fmt.Errorf("%w: %v", ErrPostgresFailure, err)
		}
		existing = append(existing, query)
	}
	rows.Close()

	missing, err := compareMigrations(migrations, existing)
	if err != nil {
		return err
	}

	for _, query := range missing {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPostgresFailure, err)
		}
		if _, err := tx.ExecContext(ctx, query); err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: %v", ErrPostgresFailure, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO migration (query) VALUES ($1)`, query); err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: %v", ErrPostgresFailure, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: %v", ErrPostgresFailure, err)
		}
	}
	return nil
}

func compareMigrations(wanted, existing []string) ([]string, error) {
	if len(wanted) < len(existing) {
		return nil, ErrNotEnoughSQLMigrations
	}

	var needed []string
	for i, want := range wanted {
		switch {
		case i >= len(existing):
			needed = append(needed, want)
		case want != existing[i]:
			return nil, fmt.Errorf("%w: %v", ErrIncompatibleSQLMigration, want)
		}
	}
	return needed, nil
}

func (s *PostgresStore) Check(ctx context.Context, user, url string) (saved.CheckResult, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM saved_article WHERE username = $1 AND url = $2`, user, lookupKey(url)).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return saved.CheckResult{}, nil
	case err != nil:
		return saved.CheckResult{}, fmt.Errorf("%w: %v", ErrPostgresFailure, err)
	}
	return saved.CheckResult{Saved: true, ID: id}, nil
}

func (s *PostgresStore) BulkCheck(ctx context.Context, user string, urls []string) (map[string]saved.CheckResult, error) {
	out := make(map[string]saved.CheckResult, len(urls))
	asked := make(map[string][]string, len(urls))
	keys := make([]string, 0, len(urls))
	for _, u := range urls {
		out[u] = saved.CheckResult{}
		k := lookupKey(u)
		if _, ok := asked[k]; !ok {
			keys = append(keys, k)
		}
		asked[k] = append(asked[k], u)
	}
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url FROM saved_article WHERE username = $1 AND url = ANY($2)`,
		user, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPostgresFailure, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  int64
			url string
		)
		if err := rows.Scan(&id, &url); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPostgresFailure, err)
		}
		for _, u := range asked[url] {
			out[u] = saved.CheckResult{Saved: true, ID: id}
		}
	}
	return out, rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, user string, d saved.Draft) (saved.Record, error) {
	if err := d.Validate(); err != nil {
		return saved.Record{}, err
	}
	rec := d.Record(0, time.Time{})

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO saved_article (username, title, description, url, image_url, source, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, saved_at`,
		user, rec.Title, rec.Description, rec.URL, rec.ImageURL, rec.Source, nullTime(rec.PublishedAt),
	).Scan(&rec.ID, &rec.SavedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return saved.Record{}, saved.ErrDuplicate
		}
		return saved.Record{}, fmt.Errorf("%w: %v", ErrPostgresFailure, err)
	}
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, user string, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM saved_article WHERE username = $1 AND id = $2`, user, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPostgresFailure, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPostgresFailure, err)
	}
	if n == 0 {
		return saved.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, user string) ([]saved.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, url, image_url, source, published_at, saved_at
		FROM saved_article
		WHERE username = $1
		ORDER BY saved_at DESC, id DESC`, user)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPostgresFailure, err)
	}
	defer rows.Close()

	records := []saved.Record{}
	for rows.Next() {
		var (
			rec       saved.Record
			published sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Description, &rec.URL,
			&rec.ImageURL, &rec.Source, &published, &rec.SavedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPostgresFailure, err)
		}
		if published.Valid {
			t := published.Time
			rec.PublishedAt = &t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
