// Package local_test tests the local filesystem file store.
package local_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexharvest/docstream/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		tempDir := t.TempDir()
		store, err := local.New(local.Config{BaseDir: tempDir})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("CreatesMissingBaseDir", func(t *testing.T) {
		tempDir := filepath.Join(t.TempDir(), "artifacts")
		_, err := local.New(local.Config{BaseDir: tempDir})
		require.NoError(t, err)

		info, err := os.Stat(tempDir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		tempFile, err := os.CreateTemp("", "testfile")
		require.NoError(t, err)
		t.Cleanup(func() {
			removeErr := os.Remove(tempFile.Name())
			if removeErr != nil && !os.IsNotExist(removeErr) {
				t.Fatalf("failed to remove temp file: %v", removeErr)
			}
		})

		_, err = local.New(local.Config{BaseDir: tempFile.Name()})
		assert.Error(t, err)
	})
}

func TestSave(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)

	t.Run("ValidSave", func(t *testing.T) {
		data := []byte("hello world")
		uri, err := store.Save(context.Background(), "T-123-25.rtf", data, "application/rtf")
		require.NoError(t, err)

		expectedURI := "file://" + filepath.Join(tempDir, "T-123-25.rtf")
		assert.Equal(t, expectedURI, uri)

		// #nosec G304 -- test reads from the controlled temp directory.
		readData, err := os.ReadFile(filepath.Join(tempDir, "T-123-25.rtf"))
		require.NoError(t, err)
		assert.Equal(t, data, readData)
	})

	t.Run("EmptyFilename", func(t *testing.T) {
		_, err := store.Save(context.Background(), "", []byte("data"), "application/rtf")
		assert.Error(t, err)
	})

	t.Run("PathTraversal", func(t *testing.T) {
		_, err := store.Save(context.Background(), "../escape.rtf", []byte("data"), "application/rtf")
		assert.Error(t, err)
	})
}
