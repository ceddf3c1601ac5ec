package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesintel/internal/domain"
)

func newTestCatalog(t *testing.T) *SQLiteCatalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestListTablesEmpty(t *testing.T) {
	tables, err := newTestCatalog(t).ListTables(context.Background(), "public")
	require.NoError(t, err)
	assert.NotNil(t, tables)
	assert.Empty(t, tables)
}

func TestBootstrapAndList(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	require.NoError(t, c.Bootstrap(ctx))
	require.NoError(t, c.Bootstrap(ctx), "idempotent")

	tables, err := c.ListTables(ctx, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, ApplicationTables, tables)
	assert.IsIncreasing(t, tables)
}

func TestListTablesRejectsBadSchema(t *testing.T) {
	_, err := newTestCatalog(t).ListTables(context.Background(), "main; DROP TABLE users")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListTablesUnknownSchema(t *testing.T) {
	_, err := newTestCatalog(t).ListTables(context.Background(), "analytics")
	require.ErrorIs(t, err, domain.ErrCatalog)
}

func TestListTablesClosedDB(t *testing.T) {
	c := newTestCatalog(t)
	require.NoError(t, c.Close())
	_, err := c.ListTables(context.Background(), "main")
	require.ErrorIs(t, err, domain.ErrCatalog)
}
