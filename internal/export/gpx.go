package export

import (
	"github.com/tkrajina/gpxgo/gpx"

	"ghcodec-svr/internal/codec"
)

// GPX arma un track GPX 1.1 con los records que tienen posición real.
// Los records sin GPS o con el centinela lat=0/lon=0 se omiten.
func GPX(name string, records []codec.Record) ([]byte, error) {
	var seg gpx.GPXTrackSegment
	for _, r := range records {
		fix, ok := r.GPS.Get()
		if !ok || !fix.HasPosition() {
			continue
		}
		p := gpx.GPXPoint{
			Point: gpx.Point{
				Latitude:  fix.LatDeg(),
				Longitude: fix.LonDeg(),
				Elevation: *gpx.NewNullableFloat64(float64(fix.Altitude)),
			},
			Timestamp: r.Time(),
		}
		if fix.Satellites > 0 {
			p.Satellites = *gpx.NewNullableInt(int(fix.Satellites))
		}
		seg.Points = append(seg.Points, p)
	}

	doc := gpx.GPX{
		Creator: "ghcodec-svr",
		Tracks: []gpx.GPXTrack{{
			Name:     name,
			Segments: []gpx.GPXTrackSegment{seg},
		}},
	}
	return doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
}
