package stationdb

import (
	"aprsd/internal/models"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(e *storeEnv) *Scheduler {
	return NewScheduler(e.conf, e.logger, e.store).(*Scheduler)
}

func TestScheduler_Restore_Success(t *testing.T) {
	e := newStoreEnv(t)
	addStation(e.store, "LA7ECA", t0, 63, 10, "")
	require.NoError(t, e.store.Checkpoint())

	f := newStoreEnvAt(t, e.conf.Persistence.FilePath)
	s := newTestScheduler(f)
	require.NoError(t, s.Restore())
	assert.NotNil(t, f.store.Get("LA7ECA"))
}

func TestScheduler_Restore_FileNotExist(t *testing.T) {
	e := newStoreEnvAt(t, "/nonexistent/file.dat")
	s := newTestScheduler(e)
	assert.NoError(t, s.Restore())
}

func TestScheduler_Restore_CorruptedFileIsNotFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.dat")
	require.NoError(t, os.WriteFile(path, []byte("not a checkpoint"), 0644))

	e := newStoreEnvAt(t, path)
	s := newTestScheduler(e)
	assert.NoError(t, s.Restore())
	assert.Equal(t, 0, e.store.Len())
}

func TestScheduler_Restore_ReadError(t *testing.T) {
	e := newStoreEnvAt(t, t.TempDir())
	s := newTestScheduler(e)
	err := s.Restore()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCorruptSnapshot)
}

func TestScheduler_Persist_Success(t *testing.T) {
	e := newStoreEnv(t)
	addStation(e.store, "LA7ECA", t0, 63, 10, "")

	s := newTestScheduler(e)
	require.NoError(t, s.Persist())

	_, err := os.Stat(e.conf.Persistence.FilePath)
	assert.NoError(t, err)
}

func TestScheduler_Persist_WriteError(t *testing.T) {
	e := newStoreEnv(t)
	addStation(e.store, "LA7ECA", t0, 63, 10, "")
	e.comp.CompressFn = func(b []byte) ([]byte, error) {
		return nil, errors.New("compress error")
	}

	s := newTestScheduler(e)
	assert.Error(t, s.Persist())
	assert.True(t, e.logger.Contains("error", "compress error"))
}

func TestScheduler_StopNilCron(t *testing.T) {
	s := newTestScheduler(newStoreEnv(t))
	// Should not panic with nil cron
	s.Stop()
}

func TestScheduler_RunsMaintenance(t *testing.T) {
	e := newStoreEnv(t)
	e.conf.Persistence.CheckInterval = 20 * time.Millisecond
	e.conf.Persistence.GcInterval = 50 * time.Millisecond
	addStation(e.store, "STALE", t0, 63, 10, "")
	fresh := e.store.NewStation("FRESH")

	s := newTestScheduler(e)
	s.now = func() time.Time { return t0.Add(2 * time.Hour) }
	fresh.Update(t0.Add(2*time.Hour), models.LatLng{Lat: 63, Lon: 10}, "/>", "", "aprsis")

	s.Init()
	defer s.Stop()

	require.Eventually(t, func() bool {
		_, err := os.Stat(e.conf.Persistence.FilePath)
		return err == nil && e.store.Get("STALE") == nil
	}, 5*time.Second, 10*time.Millisecond)
	assert.NotNil(t, e.store.Get("FRESH"))
}
