package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/majordome-go/majordome/feeders"
)

type mockLogger struct {
	mock.Mock
}

func (m *mockLogger) Warn(msg string, args ...any) {
	m.Called(msg, args)
}

type (
	mode  string
	level int
)

func TestGetter_Key(t *testing.T) {
	src := FromMap(nil)

	assert.Equal(t, "PRIMARY_CACHE_MAX_SIZE", src.Getter("primary", "cache").Key("max_size"))
	assert.Equal(t, "CACHE_MAX_SIZE", src.Getter("", "cache").Key("max_size"))
	assert.Equal(t, "EU_DB_SQL_DSN", src.Getter("eu", "db.sql").Key("dsn"))
}

func TestGetOr(t *testing.T) {
	src := FromMap(map[string]string{
		"CACHE_MAX_SIZE":    "25",
		"CACHE_TTL":         "1m30s",
		"CACHE_ENABLED":     "true",
		"CACHE_RATIO":       "0.5",
		"CACHE_MODE":        "lru",
		"CACHE_HOSTS":       "a, b,,c",
		"CACHE_BAD_INTEGER": "twelve",
	})
	log := &mockLogger{}
	log.On("Warn", "Failed to parse config value, using default", mock.Anything).Once()
	src.SetLogger(log)

	g := src.Getter("", "cache")
	assert.Equal(t, 25, GetOr(g, "max_size", 1000))
	assert.Equal(t, 90*time.Second, GetOr(g, "ttl", time.Second))
	assert.True(t, GetOr(g, "enabled", false))
	assert.InDelta(t, 0.5, GetOr(g, "ratio", 1.0), 1e-9)
	assert.Equal(t, mode("lru"), GetOr(g, "mode", mode("fifo")))
	assert.Equal(t, []string{"a", "b", "c"}, GetOr(g, "hosts", []string(nil)))
	assert.Equal(t, uint16(7), GetOr(g, "missing", uint16(7)))
	assert.Equal(t, 12, GetOr(g, "bad_integer", 12))

	log.AssertExpectations(t)
}

func TestGetOr_NamedTypes(t *testing.T) {
	src := FromMap(map[string]string{
		"SCHEDULER_MODE":   "strict",
		"SCHEDULER_LEVEL":  "3",
		"SCHEDULER_MODES":  "a, b",
		"SCHEDULER_LEVELS": "1,2",
	})
	g := src.Getter("", "scheduler")

	assert.Equal(t, mode("strict"), GetOr(g, "mode", mode("lenient")))
	assert.Equal(t, level(3), GetOr(g, "level", level(0)))
	assert.Equal(t, []mode{"a", "b"}, GetOr(g, "modes", []mode(nil)))
	assert.Equal(t, []level{1, 2}, GetOr(g, "levels", []level(nil)))

	lvl, err := Require[level](g, "level")
	require.NoError(t, err)
	assert.Equal(t, level(3), lvl)

	m, ok := Optional[mode](g, "mode")
	assert.True(t, ok)
	assert.Equal(t, mode("strict"), m)
}

func TestRequire(t *testing.T) {
	src := FromMap(map[string]string{"PRIMARY_DB_DSN": "file::memory:", "PRIMARY_DB_PORT": "x"})
	g := src.Getter("primary", "db")

	dsn, err := Require[string](g, "dsn")
	require.NoError(t, err)
	assert.Equal(t, "file::memory:", dsn)

	_, err = Require[string](g, "keyspace")
	require.ErrorIs(t, err, ErrMissingValue)
	assert.Contains(t, err.Error(), "PRIMARY_DB_KEYSPACE")

	_, err = Require[int](g, "port")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestOptional(t *testing.T) {
	src := FromMap(map[string]string{"REDIS_PASSWORD": "secret"})
	g := src.Getter("", "redis")

	pw, ok := Optional[string](g, "password")
	assert.True(t, ok)
	assert.Equal(t, "secret", pw)

	_, ok = Optional[string](g, "username")
	assert.False(t, ok)
}

func TestDeclared(t *testing.T) {
	src := FromMap(nil)
	g := src.Getter("eu", "cache")

	GetOr(g, "max_size", 1000)
	_, _ = Require[string](g, "region")
	Optional[string](g, "label")

	assert.Equal(t, []Entry{
		{Key: "EU_CACHE_LABEL"},
		{Key: "EU_CACHE_MAX_SIZE", Default: "1000"},
		{Key: "EU_CACHE_REGION", Default: "<REQUIRED>", Required: true},
	}, src.Declared())
}

func TestLoad_FeederPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  max_size: 10\n  ttl: 5s\n"), 0o600))

	src, err := Load(
		feeders.Map(map[string]string{"CACHE_MAX_SIZE": "99"}),
		feeders.Yaml(path),
	)
	require.NoError(t, err)

	g := src.Getter("", "cache")
	assert.Equal(t, 99, GetOr(g, "max_size", 0))
	assert.Equal(t, 5*time.Second, GetOr(g, "ttl", time.Duration(0)))
}

func TestLoad_FeederError(t *testing.T) {
	_, err := Load(feeders.Yaml(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
