package stationdb

import (
	"aprsd/internal/models"
	"aprsd/internal/testutil"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileManager(compressor *testutil.MockCompressor) *FileManager {
	return NewFileManager(compressor, &testutil.MockLogger{})
}

func writeEdges(edges []models.RouteEdge) func(w *models.RecordWriter) error {
	return func(w *models.RecordWriter) error {
		return w.Write(models.RecordRoutes, edges)
	}
}

func TestFileManager_SaveToFile_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.dat")
	fm := newTestFileManager(&testutil.MockCompressor{})

	require.NoError(t, fm.SaveToFile(path, writeEdges([]models.RouteEdge{{From: "A", To: "B"}})))

	_, err := os.Stat(path)
	assert.NoError(t, err)

	// Temp file should not exist
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileManager_SaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.dat")
	c, err := NewZstdCompressor()
	require.NoError(t, err)
	fm := NewFileManager(c, &testutil.MockLogger{})
	defer fm.Close()

	edges := []models.RouteEdge{{From: "LA7ECA", To: "LD9TR"}}
	require.NoError(t, fm.SaveToFile(path, writeEdges(edges)))

	var got []models.RouteEdge
	found, err := fm.LoadFromFile(path, func(r *models.RecordReader) error {
		if err := r.Expect(models.RecordRoutes, &got); err != nil {
			return err
		}
		_, _, err := r.Next()
		assert.ErrorIs(t, err, io.EOF)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, edges, got)
}

func TestFileManager_SaveToFile_KeepsOldFileOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.dat")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0644))

	fm := newTestFileManager(&testutil.MockCompressor{})
	err := fm.SaveToFile(path, func(w *models.RecordWriter) error {
		return errors.New("encode failed")
	})
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}

func TestFileManager_SaveToFile_CompressError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.dat")
	fm := newTestFileManager(&testutil.MockCompressor{
		CompressFn: func(b []byte) ([]byte, error) {
			return nil, errors.New("compress error")
		},
	})

	assert.Error(t, fm.SaveToFile(path, writeEdges(nil)))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileManager_SaveToFile_BadDirectory(t *testing.T) {
	fm := newTestFileManager(&testutil.MockCompressor{})
	err := fm.SaveToFile("/nonexistent/path/file.dat", writeEdges(nil))
	assert.Error(t, err)
}

func TestFileManager_LoadFromFile_FileNotExist(t *testing.T) {
	fm := newTestFileManager(&testutil.MockCompressor{})
	called := false
	found, err := fm.LoadFromFile("/nonexistent/path/file.dat", func(*models.RecordReader) error {
		called = true
		return nil
	})
	assert.NoError(t, err) // not an error, just no data
	assert.False(t, found)
	assert.False(t, called)
}

func TestFileManager_LoadFromFile_DecompressError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.dat")
	require.NoError(t, os.WriteFile(path, []byte("junk"), 0644))

	fm := newTestFileManager(&testutil.MockCompressor{
		DecompressFn: func(b []byte) ([]byte, error) {
			return nil, errors.New("bad frame")
		},
	})
	found, err := fm.LoadFromFile(path, func(*models.RecordReader) error { return nil })
	assert.True(t, found)
	assert.EqualError(t, err, "bad frame")
}

func TestFileManager_LoadFromFile_ReaderError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.dat")
	fm := newTestFileManager(&testutil.MockCompressor{})
	require.NoError(t, fm.SaveToFile(path, writeEdges(nil)))

	found, err := fm.LoadFromFile(path, func(r *models.RecordReader) error {
		var v []string
		return r.Expect(models.RecordPoint, &v)
	})
	assert.True(t, found)
	assert.Error(t, err)
}
