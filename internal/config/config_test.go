package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetResolvesDefaults(t *testing.T) {
	cfg, err := Get()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "/v1", cfg.APIPrefix)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, int64(52428800), cfg.MaxBundleSize)
	assert.Equal(t, int64(209715200), cfg.MaxDecompressedSize)
	assert.Equal(t, 25, cfg.DatabaseMaxOpenConns)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.False(t, cfg.S3ForcePathStyle)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestGetHonorsEnvOverrides(t *testing.T) {
	t.Setenv("REGISTRY_HTTP_ADDR", ":9999")
	t.Setenv("REGISTRY_CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("REGISTRY_S3_FORCE_PATH_STYLE", "true")
	t.Setenv("REGISTRY_DATABASE_MAX_OPEN_CONNS", "5")

	cfg, err := Get()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.True(t, cfg.S3ForcePathStyle)
	assert.Equal(t, 5, cfg.DatabaseMaxOpenConns)
}

func TestSplitCommaListEmpty(t *testing.T) {
	assert.Nil(t, splitCommaList(""))
}

func TestSplitCommaListTrimsWhitespace(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitCommaList(" a , b "))
}

func TestParseDurationEmptyIsZero(t *testing.T) {
	d, err := parseDuration("")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), d)
}

func TestParseDurationInvalid(t *testing.T) {
	_, err := parseDuration("not-a-duration")
	assert.Error(t, err)
}
