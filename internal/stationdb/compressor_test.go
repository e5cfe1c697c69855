package stationdb

import (
	"aprsd/internal/models"
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZstdCompression_RecordStream(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)
	defer c.Close()

	var buf bytes.Buffer
	w := models.NewRecordWriter(&buf)
	for i := 0; i < 500; i++ {
		require.NoError(t, w.Write(models.RecordPoint, models.PointRecord{
			Kind:    models.KindStation,
			Ident:   "LA7ECA",
			Descr:   "Igate test station",
			Updated: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		}))
	}
	require.NoError(t, w.End())

	compressed, err := c.Compress(buf.Bytes())
	require.NoError(t, err)
	assert.Less(t, len(compressed), buf.Len()/10)

	decompressed, err := c.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), decompressed)
}

func TestZstdCompression_Empty(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)
	defer c.Close()

	compressed, err := c.Compress(nil)
	require.NoError(t, err)
	decompressed, err := c.Decompress(compressed)
	require.NoError(t, err)
	assert.Empty(t, decompressed)
}

func TestZstdCompression_RejectsGarbage(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Decompress([]byte("stations.dat from an older version"))
	assert.Error(t, err)
}
