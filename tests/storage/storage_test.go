package storage_test

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b2bcrm/crm-api/internal/config"
	"github.com/b2bcrm/crm-api/internal/storage"
	"github.com/b2bcrm/crm-api/tests/testutil"
)

func TestLocalStorage_UploadDownloadDelete(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	content := "signed contract scan"
	path, size, err := store.Upload(ctx, "agreement.pdf", "application/pdf", strings.NewReader(content))
	require.NoError(t, err)
	assert.EqualValues(t, len(content), size)
	assert.Equal(t, ".pdf", filepath.Ext(path))
	// The original filename must not appear in the storage path
	assert.NotContains(t, path, "agreement")

	reader, err := store.Download(ctx, path)
	require.NoError(t, err)
	defer reader.Close()
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))

	require.NoError(t, store.Delete(ctx, path))
	_, err = store.Download(ctx, path)
	assert.ErrorIs(t, err, storage.ErrFileNotFound)

	// Deleting an already removed document is not an error
	assert.NoError(t, store.Delete(ctx, path))
}

func TestLocalStorage_UniquePathsForSameFilename(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first, _, err := store.Upload(ctx, "contract.pdf", "application/pdf", strings.NewReader("one"))
	require.NoError(t, err)
	second, _, err := store.Upload(ctx, "contract.pdf", "application/pdf", strings.NewReader("two"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestNewStorage_ModeSelection(t *testing.T) {
	store, err := storage.NewStorage(&config.StorageConfig{
		Mode:          "local",
		LocalBasePath: t.TempDir(),
	}, testutil.Logger())
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStorage{}, store)

	_, err = storage.NewStorage(&config.StorageConfig{Mode: "cloud"}, testutil.Logger())
	assert.Error(t, err)

	_, err = storage.NewStorage(&config.StorageConfig{Mode: "ftp"}, testutil.Logger())
	assert.Error(t, err)
}
