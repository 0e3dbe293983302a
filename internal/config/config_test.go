package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "complyx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
  read_timeout: 5s
storage:
  driver: badger
  data_dir: /var/lib/complyx
audit:
  driver: postgres
  dsn: postgres://complyx@db/complyx?sslmode=disable
rate_limit:
  rps: 2.5
  burst: 5
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "badger", cfg.Storage.Driver)
	assert.Equal(t, "postgres", cfg.Audit.Driver)
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
	assert.Equal(t, 7, cfg.Retention.ArchivedYears)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "complyx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9000\"\n"), 0o600))

	t.Setenv("COMPLYX_ADDR", ":9100")
	t.Setenv("COMPLYX_STORAGE_DRIVER", "memory")
	t.Setenv("COMPLYX_SCHEDULER_INTERVAL", "90s")
	t.Setenv("COMPLYX_TLS", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 90*time.Second, cfg.Scheduler.Interval)
	assert.True(t, cfg.Server.TLS)
}

func TestEnvFile(t *testing.T) {
	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte("COMPLYX_AUDIT_DRIVER=memory\nCOMPLYX_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("COMPLYX_AUDIT_DRIVER")
		_ = os.Unsetenv("COMPLYX_LOG_LEVEL")
	})

	cfg, err := Load("", env, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Audit.Driver)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestInvalid(t *testing.T) {
	cases := map[string]func(*Config){
		"storage driver": func(c *Config) { c.Storage.Driver = "etcd" },
		"openai key":     func(c *Config) { c.AI.Provider = "openai" },
		"audit dsn":      func(c *Config) { c.Audit.DSN = "" },
		"exporter":       func(c *Config) { c.Tracing.Exporter = "jaeger" },
		"retention":      func(c *Config) { c.Retention.ArchivedYears = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestBadEnvValue(t *testing.T) {
	t.Setenv("COMPLYX_RATE_LIMIT_BURST", "lots")
	_, err := Load("")
	assert.ErrorContains(t, err, "COMPLYX_RATE_LIMIT_BURST")
}

func TestMarshal(t *testing.T) {
	out, err := Default().Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "driver: file")
}
