package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, []string{"http://opensearch:9200"}, cfg.Elasticsearch.Addresses)
	assert.Equal(t, 3, cfg.Elasticsearch.MaxRetries)
	assert.Equal(t, "profiles", cfg.Search.DefaultIndex)
	assert.Equal(t, []string{"name^2", "bio", "email", "tags"}, cfg.Search.Fields)
	assert.Equal(t, []string{"name", "bio"}, cfg.Search.HighlightFields)
	assert.Equal(t, "AUTO", cfg.Search.Fuzziness)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("OPENSEARCH_HOST", "http://search:9200")
	t.Setenv("APP_ENV", "development")
	t.Setenv("PORT", "9000")
	t.Setenv("REDIS_ADDRESS", "redis:6379")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, []string{"http://search:9200"}, cfg.Elasticsearch.Addresses)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
	assert.True(t, cfg.Log.Pretty)
}
