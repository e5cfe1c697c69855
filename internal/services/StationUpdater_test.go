package services

import (
	"aprsd/internal/models"
	"aprsd/internal/stationdb"
	"aprsd/internal/structures"
	"aprsd/internal/testutil"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var updateTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type updaterEnv struct {
	store   *stationdb.Store
	hist    *testutil.MockHistory
	logger  *testutil.MockLogger
	updater *StationUpdater
}

func newUpdaterEnv(t *testing.T) *updaterEnv {
	t.Helper()
	conf := &structures.Config{
		Persistence: structures.Persistence{FilePath: filepath.Join(t.TempDir(), "stations.dat")},
		Stations:    structures.StationsConfig{ExpireTime: time.Hour, TrailLength: 10, OwnCall: "LA7ECA"},
	}
	logger := &testutil.MockLogger{}
	fm := stationdb.NewFileManager(&testutil.MockCompressor{}, logger)
	e := &updaterEnv{hist: &testutil.MockHistory{}, logger: logger}
	e.store = stationdb.NewStore(conf, logger, testutil.NewMockMetrics(), fm,
		&testutil.MockPersistable{Type: models.RecordMessages}, testutil.NewMockOwnObjects(), e.hist)
	e.updater = NewStationUpdater(e.store, e.hist, logger)
	e.updater.now = func() time.Time { return updateTime }
	return e
}

func TestStationUpdater_Position(t *testing.T) {
	e := newUpdaterEnv(t)
	ch := &fakeChannel{id: "aprsis"}

	e.updater.ReceivePacket(parse(t, "LA3FTA>APRS,LD9TR*,WIDE2-1:!6325.80N/01024.00E>Mobile", ch), false)

	st := e.store.GetStation("LA3FTA")
	require.NotNil(t, st)
	pos, ok := st.Position()
	require.True(t, ok)
	assert.InDelta(t, 63.43, pos.Lat, 1e-6)
	assert.InDelta(t, 10.4, pos.Lon, 1e-6)
	assert.Equal(t, "/>", st.Symbol())
	assert.Equal(t, "Mobile", st.Descr())
	assert.Equal(t, "LD9TR*,WIDE2-1", st.Path())
	assert.Equal(t, "aprsis", st.Source())
	assert.Equal(t, updateTime, st.Updated())
	assert.Equal(t, []string{"LA3FTA"}, e.hist.Recorded)
	assert.Equal(t, []string{"LD9TR"}, e.store.Routes().Neighbours("LA3FTA"))
	assert.True(t, e.store.IsDirty())
}

func TestStationUpdater_RouteFollowsDigipeaters(t *testing.T) {
	e := newUpdaterEnv(t)
	e.updater.ReceivePacket(parse(t, "LA3FTA>APRS,LD9TR*,WIDE1*,LD9SK*,WIDE2-1:>status", nil), false)

	routes := e.store.Routes()
	assert.Equal(t, []string{"LD9TR"}, routes.Neighbours("LA3FTA"))
	assert.Equal(t, []string{"LA3FTA", "LD9SK"}, routes.Neighbours("LD9TR"))

	e.updater.ReceivePacket(parse(t, "LA1ABC>APRS,WIDE1-1:>direct", nil), false)
	assert.False(t, routes.HasNode("LA1ABC"))
}

func TestStationUpdater_StatusOnlyMarksHeard(t *testing.T) {
	e := newUpdaterEnv(t)
	e.updater.ReceivePacket(parse(t, "LA3FTA>APRS,WIDE1-1:>On the air", &fakeChannel{id: "rf"}), false)

	st := e.store.GetStation("LA3FTA")
	require.NotNil(t, st)
	_, ok := st.Position()
	assert.False(t, ok)
	assert.Equal(t, "rf", st.Source())
	assert.Empty(t, e.hist.Recorded)
}

func TestStationUpdater_BadPositionMarksHeard(t *testing.T) {
	e := newUpdaterEnv(t)
	e.updater.ReceivePacket(parse(t, "LA3FTA>APRS:!garbage", nil), false)

	st := e.store.GetStation("LA3FTA")
	require.NotNil(t, st)
	assert.Equal(t, updateTime, st.Updated())
	assert.True(t, e.logger.Contains("debug", "No position"))
}

func TestStationUpdater_DuplicateIgnored(t *testing.T) {
	e := newUpdaterEnv(t)
	e.updater.ReceivePacket(parse(t, "LA3FTA>APRS:!6325.80N/01024.00E>", nil), true)
	assert.Equal(t, 0, e.store.Len())
}

func TestStationUpdater_Objects(t *testing.T) {
	e := newUpdaterEnv(t)
	e.updater.ReceivePacket(parse(t, "LA1ABC>APRS:;CAMP     *111111z6325.80N/01024.00E;Old camp", nil), false)
	old, ok := e.store.Get("CAMP@LA1ABC").(*models.AprsObject)
	require.True(t, ok)

	e.updater.ReceivePacket(parse(t, "LA3FTA>APRS:;CAMP     *111111z6326.00N/01025.00E;Base camp", nil), false)
	o, ok := e.store.Get("CAMP@LA3FTA").(*models.AprsObject)
	require.True(t, ok)
	assert.Equal(t, "Base camp", o.Descr())
	assert.Equal(t, "LA3FTA", o.Owner())
	assert.True(t, old.IsKilled(), "object taken over by another owner")
	assert.False(t, o.IsKilled())
	assert.NotNil(t, e.store.GetStation("LA3FTA"))

	e.updater.ReceivePacket(parse(t, "LA3FTA>APRS:;CAMP     _111111z6326.00N/01025.00E;Base camp", nil), false)
	assert.True(t, o.IsKilled())
	assert.Same(t, o, e.store.Get("CAMP@LA3FTA"), "killed objects stay in the store")

	e.updater.ReceivePacket(parse(t, "LA3FTA>APRS:;GONE     _111111z6326.00N/01025.00E;", nil), false)
	assert.Nil(t, e.store.Get("GONE@LA3FTA"))
}

func TestStationUpdater_HistoryErrorIsLogged(t *testing.T) {
	e := newUpdaterEnv(t)
	e.hist.Err = errors.New("database is locked")
	e.updater.ReceivePacket(parse(t, "LA3FTA>APRS:!6325.80N/01024.00E>", nil), false)

	assert.NotNil(t, e.store.GetStation("LA3FTA"))
	assert.True(t, e.logger.Contains("warn", "database is locked"))
}

func TestStationUpdater_NoHistory(t *testing.T) {
	e := newUpdaterEnv(t)
	u := NewStationUpdater(e.store, nil, e.logger)
	u.ReceivePacket(parse(t, "LA3FTA>APRS:!6325.80N/01024.00E>", nil), false)
	assert.NotNil(t, e.store.GetStation("LA3FTA"))
}
