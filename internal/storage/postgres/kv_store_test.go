package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/and161185/nimbly/internal/storage"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func TestKVStore_Get(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewKVStore(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT value FROM kv WHERE key=\$1`).
		WithArgs("sess:1:auth_token").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("tok"))
	v, err := s.Get(ctx, "sess:1:auth_token")
	require.NoError(t, err)
	require.Equal(t, "tok", v)

	mock.ExpectQuery(`SELECT value FROM kv WHERE key=\$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	_, err = s.Get(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	mock.ExpectQuery(`SELECT value FROM kv WHERE key=\$1`).
		WithArgs("k").
		WillReturnError(errors.New("conn reset"))
	_, err = s.Get(ctx, "k")
	require.Error(t, err)
	require.NotErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKVStore_Set(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewKVStore(db)

	mock.ExpectExec(`INSERT INTO kv \(key, value, updated_at\) VALUES \(\$1, \$2, now\(\)\) ON CONFLICT \(key\) DO UPDATE SET value = EXCLUDED.value, updated_at = now\(\)`).
		WithArgs("theme", "dark").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.Set(context.Background(), "theme", "dark"))

	mock.ExpectExec(`INSERT INTO kv`).
		WithArgs("theme", "light").
		WillReturnError(errors.New("read-only"))
	require.Error(t, s.Set(context.Background(), "theme", "light"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKVStore_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewKVStore(db)

	mock.ExpectExec(`DELETE FROM kv WHERE key=\$1`).
		WithArgs("auth_token").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM kv WHERE key=\$1`).
		WithArgs("auth_token").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.NoError(t, s.Delete(context.Background(), "auth_token"))
	require.NoError(t, s.Delete(context.Background(), "auth_token"))

	require.NoError(t, mock.ExpectationsWereMet())
}
