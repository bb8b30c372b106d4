package pipeline

import (
	"strconv"
	"time"

	"ghcodec-svr/internal/codec"
)

// Un record con más de esta antigüedad se considera del buffer del equipo.
const liveWindow = 120 * time.Second

func coordsValid(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return true
}

func CalcFix(sats, spd int, lat, lon float64) int {
	if spd == codec.NoFixSpeed {
		return 0
	}
	if sats > 3 && coordsValid(lat, lon) {
		return 1
	}
	return 0
}

func DecideMsgType(isBatch bool, ts, now time.Time) int {
	if isBatch {
		return 0
	}
	if !ts.IsZero() && now.Sub(ts) > liveWindow {
		return 0
	}
	return 1
}

// BuildTracking convierte un record decodificado al objeto que se reenvía.
// Las propiedades con id repetido quedan con el último valor.
func BuildTracking(imei string, rec codec.Record, isBatch bool, now time.Time) *TrackingObject {
	ts := rec.Time()
	tr := &TrackingObject{
		IMEI:     imei,
		Datetime: ts.Format(time.RFC3339),
		Priority: int(rec.Priority),
		IO:       make(map[string]int64, rec.Properties.Len()),
		MsgType:  DecideMsgType(isBatch, ts, now),
	}

	if fix, ok := rec.GPS.Get(); ok {
		tr.HasGPS = true
		tr.Lat = fix.LatDeg()
		tr.Lon = fix.LonDeg()
		tr.Alt = int(fix.Altitude)
		tr.Spd = int(fix.Speed)
		tr.Crs = int(fix.Angle)
		tr.Sats = int(fix.Satellites)
		tr.Fix = CalcFix(tr.Sats, tr.Spd, tr.Lat, tr.Lon)
	}

	for _, p := range rec.Properties.All() {
		tr.IO[strconv.Itoa(int(p.ID))] = int64(p.Value)
	}
	return tr
}

// BuildTrackings procesa todos los records de un frame; un frame con más
// de un record viene del buffer del equipo.
func BuildTrackings(imei string, recs []codec.Record, now time.Time) []*TrackingObject {
	out := make([]*TrackingObject, 0, len(recs))
	for _, r := range recs {
		out = append(out, BuildTracking(imei, r, len(recs) > 1, now))
	}
	return out
}
