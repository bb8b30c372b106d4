package codec

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// WGSPrecision escala grados a enteros de punto fijo (1e-7 grados).
const WGSPrecision = 10000000

// NoFixSpeed es la velocidad reservada que indica "sin posición".
const NoFixSpeed = 255

type GpsFix struct {
	Latitude   int32 `json:"lat"`
	Longitude  int32 `json:"lon"`
	Altitude   int16 `json:"alt"`
	Angle      int16 `json:"angle"`
	Speed      int16 `json:"speed"`
	Satellites int8  `json:"sats"`
}

// HasPosition es false para el centinela de lat=0, lon=0.
func (g GpsFix) HasPosition() bool {
	return g.Latitude != 0 || g.Longitude != 0
}

// LatDeg/LonDeg convierten el punto fijo a grados decimales.
func (g GpsFix) LatDeg() float64 { return float64(g.Latitude) / WGSPrecision }
func (g GpsFix) LonDeg() float64 { return float64(g.Longitude) / WGSPrecision }

func (g GpsFix) String() string {
	return fmt.Sprintf("%d,%d,%d,%d,%d,%d", g.Longitude, g.Latitude, g.Altitude, g.Angle, g.Satellites, g.Speed)
}

// OptionalFix is either a GpsFix or nothing. The zero value is nothing.
type OptionalFix struct {
	fix GpsFix
	ok  bool
}

func SomeFix(f GpsFix) OptionalFix { return OptionalFix{fix: f, ok: true} }

func NoFix() OptionalFix { return OptionalFix{} }

func (o OptionalFix) Get() (GpsFix, bool) { return o.fix, o.ok }

func (o OptionalFix) Present() bool { return o.ok }

func (o OptionalFix) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.fix)
}

func (o *OptionalFix) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = OptionalFix{}
		return nil
	}
	var f GpsFix
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*o = SomeFix(f)
	return nil
}

type Property struct {
	ID    uint8 `json:"id"`
	Value int32 `json:"val"`
}

// IOSet mantiene las propiedades en orden de inserción; los ids pueden repetirse.
type IOSet struct {
	props []Property
}

func (s *IOSet) Add(id uint8, value int32) {
	s.props = append(s.props, Property{ID: id, Value: value})
}

func (s *IOSet) AddAll(other IOSet) {
	s.props = append(s.props, other.props...)
}

func (s IOSet) Len() int { return len(s.props) }

// Get devuelve el primer valor con ese id.
func (s IOSet) Get(id uint8) (int32, bool) {
	for _, p := range s.props {
		if p.ID == id {
			return p.Value, true
		}
	}
	return 0, false
}

// Set reemplaza el primer valor con ese id, o lo agrega.
func (s *IOSet) Set(id uint8, value int32) {
	for i := range s.props {
		if s.props[i].ID == id {
			s.props[i].Value = value
			return
		}
	}
	s.Add(id, value)
}

// All devuelve una copia de las propiedades.
func (s IOSet) All() []Property {
	out := make([]Property, len(s.props))
	copy(out, s.props)
	return out
}

func (s IOSet) String() string {
	parts := make([]string, len(s.props))
	for i, p := range s.props {
		parts[i] = fmt.Sprintf("%d=%d", p.ID, p.Value)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func (s IOSet) MarshalJSON() ([]byte, error) {
	if s.props == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.props)
}

func (s *IOSet) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &s.props)
}

type Record struct {
	TimestampMillis int64       `json:"timestamp_ms"`
	Priority        uint8       `json:"priority"`
	GPS             OptionalFix `json:"gps"`
	Properties      IOSet       `json:"io"`
}

func (r Record) Time() time.Time {
	return time.UnixMilli(r.TimestampMillis).UTC()
}

// String usa el formato compacto de los logs de dispositivo:
// priority,gps,io,timestamp#
func (r Record) String() string {
	gps := "null"
	if f, ok := r.GPS.Get(); ok {
		gps = f.String()
	}
	return fmt.Sprintf("%d,%s,%s,%d#", r.Priority, gps, r.Properties, r.TimestampMillis)
}
