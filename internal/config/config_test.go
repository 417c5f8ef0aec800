package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsToFileStore(t *testing.T) {
	cfg, err := Load(writeConfig(t, "telegram:\n  token: \"1:a\"\n"))
	require.NoError(t, err)

	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, "keys.json", cfg.Storage.File.Path)
	assert.False(t, cfg.UsesSQL())
	assert.Equal(t, "1:a", cfg.CoreConfig().Telegram.Token)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/keys.db")
	t.Setenv("KEYS_FILE", "/data/keys.json")

	cfg, err := Load(writeConfig(t, `
telegram:
  token: "1:a"
storage:
  driver: file
database:
  driver: postgres
`))
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver, "storage driver selects the database driver")
	assert.Equal(t, "/tmp/keys.db", cfg.Database.Path)
	assert.Equal(t, "/data/keys.json", cfg.Storage.File.Path)
	assert.True(t, cfg.UsesSQL())
}

func TestNormalizeRedisDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Token = "1:a"
	cfg.Storage = StorageConfig{Driver: "REDIS", Redis: RedisConfig{Addr: "localhost:6379"}}

	require.NoError(t, Normalize(cfg))
	assert.Equal(t, DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, "nearmod:keys", cfg.Storage.Redis.Key)
}

func TestNormalizePostgresDefaultsSSLMode(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Token = "1:a"
	cfg.Storage.Driver = DriverPostgres
	cfg.Database.Host = "db"
	cfg.Database.Name = "keys"
	cfg.Database.User = "bot"

	require.NoError(t, Normalize(cfg))
	assert.Equal(t, "disable", cfg.Database.SSLMode)
}

func TestNormalizeErrors(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.Telegram.Token = "1:a"
		return cfg
	}

	unknown := base()
	unknown.Storage.Driver = "mongo"
	assert.ErrorContains(t, Normalize(unknown), "invalid storage.driver")

	redisNoAddr := base()
	redisNoAddr.Storage.Driver = DriverRedis
	assert.ErrorContains(t, Normalize(redisNoAddr), "storage.redis.addr")

	sqliteNoPath := base()
	sqliteNoPath.Storage.Driver = DriverSQLite
	assert.ErrorContains(t, Normalize(sqliteNoPath), "database.path")

	assert.ErrorContains(t, Normalize(&Config{}), "token")
	assert.Error(t, Normalize(nil))
}
