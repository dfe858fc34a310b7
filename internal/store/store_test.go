package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kyrshv/go-telegram-musicbot/internal/config"
	"github.com/kyrshv/go-telegram-musicbot/internal/store"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	return &config.Config{
		Storage: config.StorageConfig{
			GroupStatusFile: filepath.Join(dir, "group_status.json"),
			AdminGroupsFile: filepath.Join(dir, "admin_groups.json"),
		},
	}
}

func TestStore_MissingFilesStartEmpty(t *testing.T) {
	cfg := newTestConfig(t)

	s, err := store.NewStore(zap.NewNop(), cfg)
	require.NoError(t, err)

	assert.True(t, s.Enabled(100), "groups default to enabled")
	assert.False(t, s.Elevated(100))
	assert.Empty(t, s.ElevatedGroups())
}

func TestStore_EnablementPersistsAcrossRestart(t *testing.T) {
	cfg := newTestConfig(t)

	s, err := store.NewStore(zap.NewNop(), cfg)
	require.NoError(t, err)

	require.NoError(t, s.SetEnabled(100, false))
	require.NoError(t, s.SetEnabled(200, true))
	assert.False(t, s.Enabled(100))
	assert.True(t, s.Enabled(200))

	reopened, err := store.NewStore(zap.NewNop(), cfg)
	require.NoError(t, err)
	assert.False(t, reopened.Enabled(100))
	assert.True(t, reopened.Enabled(200))
	assert.True(t, reopened.Enabled(300), "untouched group stays default-enabled")
}

func TestStore_ReplaceElevatedIsFullReplace(t *testing.T) {
	cfg := newTestConfig(t)

	s, err := store.NewStore(zap.NewNop(), cfg)
	require.NoError(t, err)

	require.NoError(t, s.SetElevated(1, "old group"))
	require.NoError(t, s.ReplaceElevated(map[int64]string{
		2: "group two",
		3: "group three",
	}))

	assert.False(t, s.Elevated(1), "prior entries do not survive a replace")
	assert.Equal(t, map[int64]string{2: "group two", 3: "group three"}, s.ElevatedGroups())

	reopened, err := store.NewStore(zap.NewNop(), cfg)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{2: "group two", 3: "group three"}, reopened.ElevatedGroups())
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	cfg := newTestConfig(t)

	s, err := store.NewStore(zap.NewNop(), cfg)
	require.NoError(t, err)
	require.NoError(t, s.SetEnabled(100, false))

	entries, err := os.ReadDir(filepath.Dir(cfg.Storage.GroupStatusFile))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}

func TestStore_CorruptDocumentFailsLoad(t *testing.T) {
	cfg := newTestConfig(t)
	require.NoError(t, os.WriteFile(cfg.Storage.GroupStatusFile, []byte("{not json"), 0o644))

	_, err := store.NewStore(zap.NewNop(), cfg)
	assert.Error(t, err)
}
