package fields

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/postgres"
)

// newTestStore connects to the database named by the BRS_POSTGRES_*
// variables. The search_fields table is overwritten.
func newTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	if os.Getenv("BRS_TEST_POSTGRES") == "" {
		t.Skip("set BRS_TEST_POSTGRES=1 and BRS_POSTGRES_* to run against a database")
	}
	cfg, err := config.Load("")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Postgres)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewPostgresStore(db)
	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

func TestPostgresStoreReplaceLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureSchema(ctx), "schema setup is repeatable")

	want := Map{"texto": ".raw", "ementa": ".raw", "TIPO": "", "DATA": ".keyword"}
	require.NoError(t, store.Replace(ctx, want))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, store.Replace(ctx, Map{"texto": ".exato"}))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Map{"texto": ".exato"}, got, "replace drops fields missing from the new map")
}
