package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/complyx/complyx/internal/config"
	"github.com/complyx/complyx/internal/suggest"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigCommandRedactsSecrets(t *testing.T) {
	t.Setenv("COMPLYX_GATEWAY_TOKEN", "super-secret-token")
	t.Setenv("COMPLYX_STORAGE_DRIVER", "memory")

	out, err := run(t, "config")
	require.NoError(t, err)
	assert.NotContains(t, out, "super-secret-token")
	assert.Contains(t, out, "********")
	assert.Contains(t, out, "driver: memory")
}

func TestMigrateFileToBadger(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("COMPLYX_DATA_DIR", dir)
	t.Setenv("COMPLYX_ENCRYPTION_KEY", "passphrase")

	storage := config.StorageConfig{Driver: "file", DataDir: dir, EncryptionKey: "passphrase"}
	src, err := openKV("file", storage, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, src.Set("documents", "doc-1", []byte(`{"id":"doc-1"}`)))
	require.NoError(t, src.Set("users", "u-1", []byte(`{"id":"u-1"}`)))
	require.NoError(t, src.Close())

	out, err := run(t, "migrate", "--from", "file", "--to", "badger")
	require.NoError(t, err)
	assert.Contains(t, out, "migrated 2 keys")

	dst, err := openKV("badger", storage, zap.NewNop())
	require.NoError(t, err)
	defer dst.Close()
	val, err := dst.Get("documents", "doc-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"doc-1"}`, string(val))
}

func TestMigrateRejectsSameDriver(t *testing.T) {
	_, err := run(t, "migrate", "--from", "badger", "--to", "badger")
	require.Error(t, err)

	_, err = run(t, "migrate", "--from", "memory", "--to", "file")
	require.Error(t, err)
}

func TestNewSuggester(t *testing.T) {
	p, err := newSuggester(config.AIConfig{Provider: "none"}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &suggest.HeuristicProvider{}, p)

	p, err = newSuggester(config.AIConfig{Provider: "openai", APIKey: "sk-test"}, nil, zap.NewNop())
	require.NoError(t, err)
	fb, ok := p.(*suggest.FallbackProvider)
	require.True(t, ok)
	assert.IsType(t, &suggest.HeuristicProvider{}, fb.Secondary)

	_, err = newSuggester(config.AIConfig{Provider: "openai"}, nil, zap.NewNop())
	require.Error(t, err)
}

func TestOpenKVUnknownDriver(t *testing.T) {
	_, err := openKV("etcd", config.StorageConfig{DataDir: t.TempDir()}, zap.NewNop())
	require.Error(t, err)
}
