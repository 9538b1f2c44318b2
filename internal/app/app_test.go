package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/kolscout/internal/app"
	"github.com/JakeFAU/kolscout/internal/config"
	"github.com/JakeFAU/kolscout/internal/scout"
	memorystorage "github.com/JakeFAU/kolscout/internal/storage/memory"
)

func baseConfig() config.Config {
	return config.Config{
		Scout:   config.ScoutConfig{Workers: 2, QueueDepth: 4, DefaultLimit: 10, MaxLimit: 50},
		Apify:   config.ApifyConfig{Token: "apify-token", BaseURL: "http://127.0.0.1:1"},
		HTTP:    config.HTTPConfig{TimeoutSeconds: 5, EnrichBios: true, RateLimitRPS: 1, AcceptLanguage: "id-ID"},
		Storage: config.StorageConfig{Backend: "memory"},
		DB:      config.DBConfig{Backend: "memory"},
		Cache:   config.CacheConfig{Backend: "memory", TTLMinutes: 5},
	}
}

func TestNewWiresMemoryBackends(t *testing.T) {
	t.Parallel()
	a, err := app.New(context.Background(), baseConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &memorystorage.Store{}, a.Store)
	assert.NotNil(t, a.Dispatcher)
	assert.NotNil(t, a.Roster)
	assert.NoError(t, a.Ready(context.Background()))

	job, err := a.Dispatcher.Submit(context.Background(), scout.JobParameters{
		Kind:    scout.JobKindTikTokSearch,
		Queries: []string{"skincare"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, a.Queue.Len())

	stored, err := a.Jobs.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Parameters.Limit)
}

func TestNewWiresLocalStorage(t *testing.T) {
	t.Parallel()
	cfg := baseConfig()
	cfg.Storage = config.StorageConfig{Backend: "local", LocalDir: t.TempDir()}
	cfg.Cache.Backend = "none"
	cfg.HTTP.EnrichBios = false

	a, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	a.Close()
}

func TestNewRejectsUnknownBackends(t *testing.T) {
	t.Parallel()
	cases := map[string]func(*config.Config){
		"db":      func(c *config.Config) { c.DB.Backend = "mongo" },
		"storage": func(c *config.Config) { c.Storage.Backend = "s3" },
		"cache":   func(c *config.Config) { c.Cache.Backend = "memcached" },
		"token":   func(c *config.Config) { c.Apify.Token = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := baseConfig()
			mutate(&cfg)
			_, err := app.New(context.Background(), cfg, zap.NewNop())
			require.Error(t, err)
		})
	}
}

func TestOpenStoreMemory(t *testing.T) {
	t.Parallel()
	store, ready, err := app.OpenStore(context.Background(), baseConfig(), zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, ready)
	store.Close()
}
