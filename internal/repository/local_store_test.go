package repository

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteLocal(t *testing.T) *SQLiteLocalStore {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	store := NewSQLiteLocalStore(db)
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func TestSQLiteLocalStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteLocal(t)

	_, err := s.Get(ctx, "business_2024-02-09")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "business_2024-02-09", []byte(`{"status":"open"}`)))
	require.NoError(t, s.Set(ctx, "business_2024-02-09", []byte(`{"status":"settled"}`)))
	v, err := s.Get(ctx, "business_2024-02-09")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"settled"}`, string(v))

	require.NoError(t, s.Remove(ctx, "business_2024-02-09"))
	require.NoError(t, s.Remove(ctx, "business_2024-02-09"))
	_, err = s.Get(ctx, "business_2024-02-09")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteLocalStore_KeysTreatsUnderscoreLiterally(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteLocal(t)

	for _, k := range []string{"seats_2024-02-10", "seats_2024-02-09", "seats_latest", "seatsX2024", "orders_2024-02-09"} {
		require.NoError(t, s.Set(ctx, k, []byte(`{}`)))
	}
	keys, err := s.Keys(ctx, "seats_")
	require.NoError(t, err)
	assert.Equal(t, []string{"seats_2024-02-09", "seats_2024-02-10", "seats_latest"}, keys)
}
