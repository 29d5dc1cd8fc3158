package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository stores credentials in the PostgreSQL "credentials" table.
type PGRepository struct {
	db *pgxpool.Pool
}

// NewPGRepository creates a new PGRepository with the given connection pool.
func NewPGRepository(db *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: db}
}

// Count returns the number of stored credentials.
func (r *PGRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM credentials`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count credentials: %w", err)
	}
	return n, nil
}

// InsertAll inserts every record in a single transaction.
func (r *PGRepository) InsertAll(ctx context.Context, records []Record) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(
			`INSERT INTO credentials (username, secret_hash, can_upload) VALUES ($1, $2, $3)`,
			rec.Username, rec.SecretHash, rec.CanUpload,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert credentials: %w", err)
	}

	return tx.Commit(ctx)
}

// List returns all credentials ordered by username.
func (r *PGRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.Query(ctx,
		`SELECT username, secret_hash, can_upload
		 FROM credentials
		 ORDER BY username`,
	)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var rec Record
		err := row.Scan(&rec.Username, &rec.SecretHash, &rec.CanUpload)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan credentials: %w", err)
	}
	return records, nil
}

// isUniqueViolation checks whether an error is a PostgreSQL unique_violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
