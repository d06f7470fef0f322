package geo

import (
	"fmt"
	"math"
)

// Coordinate is a point in the catalog's 3-D meter space.
type Coordinate struct {
	X, Y, Z Distance
}

// CoordinateFromMeters constructs a Coordinate from meter components.
func CoordinateFromMeters(x, y, z float64) Coordinate {
	return Coordinate{X: Meters(x), Y: Meters(y), Z: Meters(z)}
}

// CoordinateFromLightYears constructs a Coordinate from light-year components.
func CoordinateFromLightYears(x, y, z float64) Coordinate {
	return Coordinate{X: LightYears(x), Y: LightYears(y), Z: LightYears(z)}
}

// CoordinateFromArray constructs a Coordinate from a meter triple.
func CoordinateFromArray(a [3]float64) Coordinate {
	return CoordinateFromMeters(a[0], a[1], a[2])
}

// MetersArray returns the components as a meter triple.
func (c Coordinate) MetersArray() [3]float64 {
	return [3]float64{c.X.meters, c.Y.meters, c.Z.meters}
}

// LightYearsArray returns the components as a light-year triple.
func (c Coordinate) LightYearsArray() [3]float64 {
	return [3]float64{c.X.LightYears(), c.Y.LightYears(), c.Z.LightYears()}
}

// Add returns the component-wise sum.
func (c Coordinate) Add(o Coordinate) Coordinate {
	return Coordinate{X: c.X.Add(o.X), Y: c.Y.Add(o.Y), Z: c.Z.Add(o.Z)}
}

// Sub returns the component-wise difference.
func (c Coordinate) Sub(o Coordinate) Coordinate {
	return Coordinate{X: c.X.Sub(o.X), Y: c.Y.Sub(o.Y), Z: c.Z.Sub(o.Z)}
}

// Scale returns the coordinate scaled by f.
func (c Coordinate) Scale(f float64) Coordinate {
	return Coordinate{X: c.X.Mul(f), Y: c.Y.Mul(f), Z: c.Z.Mul(f)}
}

// Div returns the coordinate divided by f.
func (c Coordinate) Div(f float64) Coordinate {
	return Coordinate{X: c.X.Div(f), Y: c.Y.Div(f), Z: c.Z.Div(f)}
}

// DistanceTo returns the Euclidean distance to o. Deltas are taken on the
// raw meter values and the square root runs once on the meter sum; no
// component is converted to another unit first.
func (c Coordinate) DistanceTo(o Coordinate) Distance {
	dx := c.X.meters - o.X.meters
	dy := c.Y.meters - o.Y.meters
	dz := c.Z.meters - o.Z.meters
	return Distance{meters: math.Sqrt(dx*dx + dy*dy + dz*dz)}
}

// String renders the components in light-years.
func (c Coordinate) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f) ly",
		c.X.LightYears(), c.Y.LightYears(), c.Z.LightYears())
}
