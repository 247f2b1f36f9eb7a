package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, "database.db", cfg.StorePath)
	assert.Equal(t, "ReceitaFederal_QuadroSocietario.csv", cfg.SourcePath)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("PG_DSN", "postgres://quadro@localhost/quadro")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("REBUILD_CRON", "0 3 * * *")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, "0 3 * * *", cfg.RebuildCron)
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{name: "sqlite", cfg: Config{StoreDriver: "sqlite", StorePath: "database.db"}, ok: true},
		{name: "sqlite without path", cfg: Config{StoreDriver: "sqlite"}},
		{name: "postgres without dsn", cfg: Config{StoreDriver: "postgres"}},
		{name: "postgres", cfg: Config{StoreDriver: "postgres", PGDSN: "postgres://x"}, ok: true},
		{name: "unknown driver", cfg: Config{StoreDriver: "mysql"}},
		{name: "negative rate", cfg: Config{StoreDriver: "sqlite", StorePath: "x", RateLimitPerMinute: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel(&Config{LogLevel: "debug"}).String())
	assert.Equal(t, "WARN", parseLevel(&Config{LogLevel: "WARNING"}).String())
	assert.Equal(t, "INFO", parseLevel(&Config{LogLevel: "bogus"}).String())
	assert.Equal(t, "INFO", parseLevel(nil).String())
}
