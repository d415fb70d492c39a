package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-bot/internal/table"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_AppendReadDelete(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	require.NoError(t, s.EnsureTable(ctx, "Transactions", []string{"timestamp", "note"}))
	require.NoError(t, s.EnsureTable(ctx, "Transactions", []string{"timestamp", "note"}))

	require.NoError(t, s.AppendRow(ctx, "Transactions", table.Row{"t1", "nonton 🎬 50k"}))
	require.NoError(t, s.AppendRow(ctx, "Transactions", table.Row{"t2", "makan 25000"}))
	require.NoError(t, s.AppendRow(ctx, "Budgets", table.Row{"b1"}))
	require.NoError(t, s.AppendRow(ctx, "Transactions", table.Row{"t3", ""}))

	rows, err := s.ReadRows(ctx, "Transactions")
	require.NoError(t, err)
	assert.Equal(t, []table.Row{{"t1", "nonton 🎬 50k"}, {"t2", "makan 25000"}, {"t3", ""}}, rows)

	require.NoError(t, s.DeleteRow(ctx, "Transactions", 1))
	rows, err = s.ReadRows(ctx, "Transactions")
	require.NoError(t, err)
	assert.Equal(t, []table.Row{{"t1", "nonton 🎬 50k"}, {"t3", ""}}, rows)

	budgets, err := s.ReadRows(ctx, "Budgets")
	require.NoError(t, err)
	assert.Len(t, budgets, 1)

	assert.ErrorIs(t, s.DeleteRow(ctx, "Transactions", 2), table.ErrRowNotFound)
	assert.ErrorIs(t, s.DeleteRow(ctx, "Transactions", -1), table.ErrRowNotFound)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "postgres", "")
	assert.Error(t, err)
}
