package models

import (
	"fmt"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/tzneal/coordconv"
	"math"
)

// LatLng is a WGS84 position in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p LatLng) toS2() s2.LatLng {
	return s2.LatLng{
		Lat: s1.Angle(p.Lat * math.Pi / 180),
		Lng: s1.Angle(p.Lon * math.Pi / 180),
	}
}

// UTMRef is a UTM grid reference. Searches compare points in the zone of
// the reference they are given, so a map view spanning two zones still uses
// one planar grid.
type UTMRef struct {
	Zone     int     `json:"zone"`
	South    bool    `json:"south,omitempty"`
	Easting  float64 `json:"easting"`
	Northing float64 `json:"northing"`
}

func (u UTMRef) String() string {
	band := 'N'
	if u.South {
		band = 'S'
	}
	return fmt.Sprintf("%d%c %.0f %.0f", u.Zone, band, u.Easting, u.Northing)
}

// ToUTM converts a position to UTM. zone 0 selects the natural zone.
func ToUTM(p LatLng, zone int) (UTMRef, error) {
	c, err := coordconv.DefaultUTMConverter.ConvertFromGeodetic(p.toS2(), zone)
	if err != nil {
		return UTMRef{}, err
	}
	return UTMRef{
		Zone:     c.Zone,
		South:    c.Hemisphere == coordconv.HemisphereSouth,
		Easting:  c.Easting,
		Northing: c.Northing,
	}, nil
}

func (u UTMRef) ToLatLng() (LatLng, error) {
	h := coordconv.HemisphereNorth
	if u.South {
		h = coordconv.HemisphereSouth
	}
	ll, err := coordconv.DefaultUTMConverter.ConvertToGeodetic(coordconv.UTMCoord{
		Zone:       u.Zone,
		Hemisphere: h,
		Easting:    u.Easting,
		Northing:   u.Northing,
	})
	if err != nil {
		return LatLng{}, err
	}
	return LatLng{Lat: ll.Lat.Degrees(), Lon: ll.Lng.Degrees()}, nil
}

// Inside reports whether p lies in the rectangle spanned by the upper left
// and lower right corners. p is projected into the zone of uleft.
func Inside(p LatLng, uleft, lright UTMRef) bool {
	u, err := ToUTM(p, uleft.Zone)
	if err != nil {
		return false
	}
	if u.South != uleft.South {
		return false
	}
	return u.Easting >= uleft.Easting && u.Easting <= lright.Easting &&
		u.Northing <= uleft.Northing && u.Northing >= lright.Northing
}
