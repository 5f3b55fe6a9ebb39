package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/assetcache"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{DataBackend: "local", SQLiteDBPath: "x.db", Timezone: "UTC", CacheBackend: "memory"}
	cfg, err := FromAppConfig(app)
	require.NoError(t, err)
	assert.Equal(t, LocalBackend, cfg.Type)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.True(t, cfg.SeedCategories)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)
	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.Error(t, Config{Type: LocalBackend}.Validate())
	assert.Error(t, Config{Type: PostgresBackend}.Validate())
	assert.Error(t, Config{Type: MemoryBackend, CacheBackend: config.CacheRedis}.Validate())
	assert.Error(t, Config{Type: "sheets"}.Validate())
	assert.Equal(t, []string{"memory", "local", "postgres"}, TypeStrings())
}

func TestCreateMemoryGateway(t *testing.T) {
	f := NewFactory(log.Discard())
	res, err := f.CreateGateway(context.Background(), Config{Type: MemoryBackend, SeedCategories: true})
	require.NoError(t, err)
	defer func() { assert.NoError(t, res.Cleanup()) }()

	cats, err := res.Gateway.Categories().List(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, cats, len(core.DefaultCategories()))
}

func TestCreateLocalGateway(t *testing.T) {
	f := NewFactory(log.Discard())
	path := filepath.Join(t.TempDir(), "nested", "fintrack.db")
	res, err := f.CreateGateway(context.Background(), Config{Type: LocalBackend, SQLiteDBPath: path, Location: time.UTC})
	require.NoError(t, err)
	defer func() { assert.NoError(t, res.Cleanup()) }()

	ctx := context.Background()
	created, err := res.Gateway.Incomes().Create(ctx, "u1", core.Income{
		Description: "Salary", Amount: core.MustMoney("1500"), Date: core.NewDate(2024, time.May, 27),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	list, err := res.Gateway.Incomes().List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestCreateAssetStorage(t *testing.T) {
	f := NewFactory(log.Discard())
	res, err := f.CreateAssetStorage(context.Background(), Config{CacheBackend: config.CacheMemory})
	require.NoError(t, err)
	assert.IsType(t, &assetcache.MemoryStorage{}, res.Storage)
	assert.NoError(t, res.Cleanup())

	_, err = f.CreateAssetStorage(context.Background(), Config{CacheBackend: "disk"})
	assert.Error(t, err)
}
