package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uploadgate/service/internal/db"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "wrapped", err: fmt.Errorf("insert credentials: %w", &pgconn.PgError{Code: "23505"}), want: true},
		{name: "check violation", err: &pgconn.PgError{Code: "23514"}, want: false},
		{name: "plain error", err: errors.New("23505"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}

// openTestDB connects to TEST_DATABASE_URL, applies migrations and empties
// the credentials table. Tests using it are skipped when the variable is
// unset.
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	require.NoError(t, db.Migrate(url))
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)

	truncate := func() {
		_, err := pool.Exec(ctx, `DELETE FROM credentials`)
		require.NoError(t, err)
	}
	truncate()
	t.Cleanup(func() {
		truncate()
		pool.Close()
	})
	return pool
}

func TestPGRepository(t *testing.T) {
	repo := NewPGRepository(openTestDB(t))
	ctx := context.Background()

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	records := []Record{
		{Username: "tamanna", SecretHash: "h2", CanUpload: true},
		{Username: "admin", SecretHash: "h1", CanUpload: true},
		{Username: "guest", SecretHash: "h3", CanUpload: false},
	}
	require.NoError(t, repo.InsertAll(ctx, records))

	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Record{records[1], records[2], records[0]}, list)

	// A batch that collides with a stored username is rejected as a whole.
	err = repo.InsertAll(ctx, []Record{
		{Username: "ops", SecretHash: "h4"},
		{Username: "admin", SecretHash: "other"},
	})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPGRepositoryConcurrentOpen(t *testing.T) {
	repo := NewPGRepository(openTestDB(t))
	hasher := NewHasher(testParams)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = Open(context.Background(), repo, hasher, DefaultSeeds)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(DefaultSeeds), n)
}
