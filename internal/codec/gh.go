package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/pkg/errors"

	"ghcodec-svr/internal/codec/ghio"
)

// GHCodecID es el id de codec que antecede cada frame GH.
const GHCodecID = 7

// Los segundos del frame cuentan desde 2007-01-01 UTC.
var ghEpoch = time.Date(2007, time.January, 1, 0, 0, 0, 0, time.UTC)

// Global mask
const (
	maskGPSElement = 1 << iota
	maskIOElement1B
	maskIOElement2B
	maskIOElement4B
)

// GPS submask
const (
	maskPosition = 1 << iota
	maskAltitude
	maskAngle
	maskSpeed
	maskSatellites
	maskCellID
	maskSignalQuality
	maskOperatorCode
)

// GH decodes codec 7 frames. It holds no state, one value can be shared
// between goroutines.
type GH struct{}

func NewGH() *GH { return &GH{} }

func (*GH) ID() byte { return GHCodecID }

func (*GH) Name() string { return "GH" }

// Encode no está soportado para GH.
func (*GH) Encode([]Record) ([]byte, error) {
	return nil, ErrEncodingUnsupported
}

// Decode parsea un frame completo:
// codecId | numRecords | Record{numRecords} | numRecords
// No devuelve resultados parciales.
func (*GH) Decode(data []byte) ([]Record, error) {
	c := &cursor{data: data}

	id, err := c.u8()
	if err != nil {
		return nil, truncated("reading codec id", err)
	}
	if id != GHCodecID {
		return nil, wrongCodecID(int(id))
	}

	numberOfData, err := c.u8()
	if err != nil {
		return nil, truncated("reading number of records", err)
	}

	records := make([]Record, 0, numberOfData)
	for i := 0; i < int(numberOfData); i++ {
		rec, err := readRecord(c)
		if err != nil {
			return nil, truncated(fmt.Sprintf("error reading GH record %d/%d", i+1, numberOfData), err)
		}
		records = append(records, rec)
	}

	second, err := c.u8()
	if err != nil {
		return nil, truncated("reading trailing number of records", err)
	}
	if second != numberOfData {
		return nil, countMismatch(int(numberOfData), int(second))
	}
	return records, nil
}

func readRecord(c *cursor) (Record, error) {
	w, err := c.u32()
	if err != nil {
		return Record{}, errors.Wrap(err, "timestamp")
	}
	rec := Record{
		Priority:        uint8((w >> 30) & 0x03),
		TimestampMillis: ghEpoch.UnixMilli() + int64(w&0x3FFFFFFF)*1000,
	}

	globalMask, err := c.u8()
	if err != nil {
		return Record{}, errors.Wrap(err, "global mask")
	}

	if globalMask&maskGPSElement != 0 {
		fix, generated, err := readGpsElement(c)
		if err != nil {
			return Record{}, errors.Wrap(err, "gps element")
		}
		rec.GPS = SomeFix(fix)
		for _, p := range generated {
			rec.Properties.Add(p.ID, p.Value)
		}
	}

	// 1B, 2B, 4B en ese orden
	for _, g := range []struct {
		mask  uint8
		width int
	}{
		{maskIOElement1B, 1},
		{maskIOElement2B, 2},
		{maskIOElement4B, 4},
	} {
		if globalMask&g.mask == 0 {
			continue
		}
		set, err := readIOElement(c, g.width)
		if err != nil {
			return Record{}, errors.Wrapf(err, "io element %dB", g.width)
		}
		rec.Properties.AddAll(set)
	}

	return rec, nil
}

// readGpsElement lee los campos marcados en la submascara. cellId, signal
// quality y operator code no van en GpsFix, se devuelven como propiedades.
func readGpsElement(c *cursor) (GpsFix, []Property, error) {
	var fix GpsFix
	var generated []Property

	mask, err := c.u8()
	if err != nil {
		return fix, nil, err
	}

	if mask&maskPosition != 0 {
		lat, err := c.f32()
		if err != nil {
			return fix, nil, err
		}
		lon, err := c.f32()
		if err != nil {
			return fix, nil, err
		}
		fix.Latitude = fixedPoint(lat)
		fix.Longitude = fixedPoint(lon)
	}
	if mask&maskAltitude != 0 {
		alt, err := c.u16()
		if err != nil {
			return fix, nil, err
		}
		fix.Altitude = int16(alt)
	}
	if mask&maskAngle != 0 {
		a, err := c.u8()
		if err != nil {
			return fix, nil, err
		}
		fix.Angle = int16(int(a) * 360 / 256)
	}
	if mask&maskSpeed != 0 {
		s, err := c.u8()
		if err != nil {
			return fix, nil, err
		}
		fix.Speed = int16(s)
	}
	if mask&maskSatellites != 0 {
		s, err := c.u8()
		if err != nil {
			return fix, nil, err
		}
		fix.Satellites = int8(s)
	}
	if mask&maskCellID != 0 {
		v, err := c.u32()
		if err != nil {
			return fix, nil, err
		}
		generated = append(generated, Property{ID: ghio.GsmCellID, Value: int32(v)})
	}
	if mask&maskSignalQuality != 0 {
		v, err := c.u8()
		if err != nil {
			return fix, nil, err
		}
		generated = append(generated, Property{ID: ghio.SignalQuality, Value: int32(v)})
	}
	if mask&maskOperatorCode != 0 {
		v, err := c.u32()
		if err != nil {
			return fix, nil, err
		}
		generated = append(generated, Property{ID: ghio.OperatorCode, Value: int32(v)})
	}

	// posición N/A: sin lat/lon no hay velocidad ni satélites válidos
	if !fix.HasPosition() {
		fix.Speed = NoFixSpeed
		fix.Satellites = 0
	}
	return fix, generated, nil
}

// readIOElement lee count:u8 y luego count pares id:u8 value:int(width).
func readIOElement(c *cursor, width int) (IOSet, error) {
	var set IOSet
	switch width {
	case 1, 2, 4:
	default:
		panic(&CodecError{Kind: KindUnsupportedWidth, Msg: fmt.Sprintf("unsupported io element width %d", width)})
	}

	num, err := c.u8()
	if err != nil {
		return set, err
	}
	for i := 0; i < int(num); i++ {
		id, err := c.u8()
		if err != nil {
			return set, err
		}
		b, err := c.next(width)
		if err != nil {
			return set, err
		}
		var v int32
		switch width {
		case 1:
			v = int32(int8(b[0]))
		case 2:
			v = int32(int16(binary.BigEndian.Uint16(b)))
		case 4:
			v = int32(binary.BigEndian.Uint32(b))
		}
		set.Add(id, v)
	}
	return set, nil
}

// fixedPoint trunca f*WGSPrecision a int32, saturando fuera de rango.
func fixedPoint(f float32) int32 {
	v := f * WGSPrecision
	switch {
	case math.IsNaN(float64(v)):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}

// cursor evita panics si el offset excede el buffer.
type cursor struct {
	data []byte
	off  int
}

func (c *cursor) next(n int) ([]byte, error) {
	if c.off+n > len(c.data) {
		return nil, errors.Wrapf(io.ErrUnexpectedEOF, "tried to read %d bytes at offset %d (len=%d)", n, c.off, len(c.data))
	}
	b := c.data[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *cursor) u8() (uint8, error) {
	b, err := c.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) u16() (uint16, error) {
	b, err := c.next(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *cursor) u32() (uint32, error) {
	b, err := c.next(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *cursor) f32() (float32, error) {
	u, err := c.u32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}
