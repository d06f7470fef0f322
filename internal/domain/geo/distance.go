// Package geo provides unit-safe distance and coordinate types for star
// catalog geometry. All arithmetic happens on meter values; light-years
// appear only at parse and presentation boundaries.
package geo

import (
	"encoding/binary"
	"fmt"
	"math"
)

// MetersPerLightYear converts between the internal meter scale and the
// human-facing light-year scale. It is the only conversion factor in the
// codebase.
const MetersPerLightYear = 9460730472580800.0

// Distance is a linear distance stored in meters. The zero value is 0 m.
type Distance struct {
	meters float64
}

// Meters constructs a Distance from a meter value.
func Meters(m float64) Distance { return Distance{meters: m} }

// LightYears constructs a Distance from a light-year value.
func LightYears(ly float64) Distance { return Distance{meters: ly * MetersPerLightYear} }

// Meters returns the distance in meters.
func (d Distance) Meters() float64 { return d.meters }

// LightYears returns the distance in light-years.
func (d Distance) LightYears() float64 { return d.meters / MetersPerLightYear }

// Add returns d + o.
func (d Distance) Add(o Distance) Distance { return Distance{meters: d.meters + o.meters} }

// Sub returns d - o.
func (d Distance) Sub(o Distance) Distance { return Distance{meters: d.meters - o.meters} }

// Mul returns d scaled by f.
func (d Distance) Mul(f float64) Distance { return Distance{meters: d.meters * f} }

// Div returns d divided by f.
func (d Distance) Div(f float64) Distance { return Distance{meters: d.meters / f} }

// Less reports whether d is shorter than o.
func (d Distance) Less(o Distance) bool { return d.meters < o.meters }

// DistanceTo returns the absolute difference between two distances.
func (d Distance) DistanceTo(o Distance) Distance {
	return Distance{meters: math.Abs(d.meters - o.meters)}
}

// String renders both scales, light-years first.
func (d Distance) String() string {
	return fmt.Sprintf("%.2f ly (%.2e m)", d.LightYears(), d.meters)
}

// MarshalBinary encodes the meter value as 8 little-endian bytes so the
// unexported field survives gob encoding.
func (d Distance) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(d.meters))
	return buf, nil
}

// UnmarshalBinary decodes 8 little-endian bytes produced by MarshalBinary.
func (d *Distance) UnmarshalBinary(data []byte) error {
	if len(data) != 8 {
		return fmt.Errorf("geo: distance payload must be 8 bytes, got %d", len(data))
	}
	d.meters = math.Float64frombits(binary.LittleEndian.Uint64(data))
	return nil
}
