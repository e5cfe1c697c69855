package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToUTM_RoundTrip(t *testing.T) {
	oslo := LatLng{Lat: 59.9139, Lon: 10.7522}

	u, err := ToUTM(oslo, 0)
	require.NoError(t, err)
	assert.Equal(t, 32, u.Zone)
	assert.False(t, u.South)
	assert.InDelta(t, 597000, u.Easting, 2000)
	assert.InDelta(t, 6643000, u.Northing, 2000)

	back, err := u.ToLatLng()
	require.NoError(t, err)
	assert.InDelta(t, oslo.Lat, back.Lat, 1e-6)
	assert.InDelta(t, oslo.Lon, back.Lon, 1e-6)
}

func TestToUTM_ForcedZone(t *testing.T) {
	p := LatLng{Lat: 50.0, Lon: 5.5}
	natural, err := ToUTM(p, 0)
	require.NoError(t, err)
	forced, err := ToUTM(p, 32)
	require.NoError(t, err)

	assert.Equal(t, 31, natural.Zone)
	assert.Equal(t, 32, forced.Zone)
	assert.Less(t, forced.Easting, natural.Easting)
}

func TestInside(t *testing.T) {
	uleft, err := ToUTM(LatLng{Lat: 60.5, Lon: 10.0}, 0)
	require.NoError(t, err)
	lright, err := ToUTM(LatLng{Lat: 59.5, Lon: 11.5}, 32)
	require.NoError(t, err)

	assert.True(t, Inside(LatLng{Lat: 59.9139, Lon: 10.7522}, uleft, lright))
	assert.False(t, Inside(LatLng{Lat: 63.43, Lon: 10.39}, uleft, lright))
	assert.False(t, Inside(LatLng{Lat: 59.9, Lon: 5.3}, uleft, lright))
	assert.False(t, Inside(LatLng{Lat: -33.9, Lon: 10.7}, uleft, lright))
}
