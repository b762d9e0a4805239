// Package series holds the (time, value) point type shared by the projection
// engine, the curve fitter and the data layer.
package series

import (
	"math"
	"slices"
	"time"
)

const (
	// MillisPerDay is one day in epoch milliseconds.
	MillisPerDay = 24 * 60 * 60 * 1000.0
	// MillisPerYear uses 365.25-day years.
	MillisPerYear = 365.25 * MillisPerDay
)

// Point is a single observation. X is milliseconds since the Unix epoch,
// Y is the observed value. A missing value is carried as NaN.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Valid reports whether the point can take part in a fit.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) && !math.IsNaN(p.X) && !math.IsInf(p.X, 0)
}

// Millis converts a time to epoch milliseconds.
func Millis(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// Time converts epoch milliseconds back to a UTC time.
func Time(ms float64) time.Time {
	return time.UnixMilli(int64(math.Round(ms))).UTC()
}

// Years converts a millisecond duration to 365.25-day years.
func Years(ms float64) float64 {
	return ms / MillisPerYear
}

// Days converts a millisecond duration to days.
func Days(ms float64) float64 {
	return ms / MillisPerDay
}

// Filter returns the points for which keep returns true, in input order.
func Filter(points []Point, keep func(Point) bool) []Point {
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// Finite drops points with a missing or non-finite coordinate.
func Finite(points []Point) []Point {
	return Filter(points, Point.Valid)
}

// SortByX returns a copy ordered by ascending X. Equal X keep input order.
func SortByX(points []Point) []Point {
	out := slices.Clone(points)
	slices.SortStableFunc(out, func(a, b Point) int {
		switch {
		case a.X < b.X:
			return -1
		case a.X > b.X:
			return 1
		}
		return 0
	})
	return out
}

// XY splits points into parallel coordinate slices.
func XY(points []Point) (xs, ys []float64) {
	xs = make([]float64, len(points))
	ys = make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X
		ys[i] = p.Y
	}
	return xs, ys
}

// Clamp limits val to [min, max].
func Clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
