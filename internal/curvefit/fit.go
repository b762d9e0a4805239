// Package curvefit fits display curves (linear, exponential, sigmoid) to
// benchmark scores and samples them for charting.
package curvefit

import (
	"fmt"
	"log"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"takeoverbench/internal/series"
)

// FitType selects the fitted functional form.
type FitType string

const (
	Linear      FitType = "linear"
	Exponential FitType = "exponential"
	Sigmoid     FitType = "sigmoid"
)

// DefaultPointCount is the sample density used when the caller passes none.
const DefaultPointCount = 100

// sigmoidCeiling is the locked upper asymptote; scores are percentages.
const sigmoidCeiling = 100.0

// ParseFitType maps a name to a FitType.
func ParseFitType(s string) (FitType, error) {
	switch t := FitType(strings.ToLower(strings.TrimSpace(s))); t {
	case Linear, Exponential, Sigmoid:
		return t, nil
	}
	return "", fmt.Errorf("unknown fit type %q", s)
}

// FitCurve fits points with the chosen form and returns pointCount samples
// evenly spaced over the observed x range. Points with a missing coordinate
// are ignored. Fewer than two usable points, an unknown fit type or a fit
// that cannot be computed give an empty slice. For sigmoid fits lockUpper
// pins the upper asymptote at 100.
func FitCurve(points []series.Point, fitType FitType, pointCount int, lockUpper bool) []series.Point {
	if pointCount <= 0 {
		pointCount = DefaultPointCount
	}
	valid := series.SortByX(series.Finite(points))
	if len(valid) < 2 {
		return []series.Point{}
	}
	xs, ys := series.XY(valid)

	var fn func(x float64) float64
	var err error
	switch fitType {
	case Linear:
		fn = fitLinear(xs, ys)
	case Exponential:
		fn, err = fitExponential(xs, ys)
	case Sigmoid:
		fn = fitSigmoid(xs, ys, lockUpper)
	default:
		return []series.Point{}
	}
	if err != nil {
		log.Printf("Warning: %s fit failed: %v", fitType, err)
		return []series.Point{}
	}

	return sample(fn, floats.Min(xs), floats.Max(xs), pointCount)
}

func sample(fn func(float64) float64, xMin, xMax float64, count int) []series.Point {
	xs := []float64{xMin}
	if count > 1 {
		xs = floats.Span(make([]float64, count), xMin, xMax)
	}
	out := make([]series.Point, 0, len(xs))
	for _, x := range xs {
		y := fn(x)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		out = append(out, series.Point{X: x, Y: y})
	}
	return out
}

func fitLinear(xs, ys []float64) func(float64) float64 {
	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	return func(x float64) float64 { return intercept + slope*x }
}

// fitExponential regresses ln y on x, so every y must be positive.
func fitExponential(xs, ys []float64) (func(float64) float64, error) {
	logs := make([]float64, len(ys))
	for i, y := range ys {
		if y <= 0 {
			return nil, fmt.Errorf("non-positive value %g at x=%g", y, xs[i])
		}
		logs[i] = math.Log(y)
	}
	a, b := stat.LinearRegression(xs, logs, nil, false)
	return func(x float64) float64 { return math.Exp(a + b*x) }, nil
}

// fitSigmoid fits y = A + (L−A)/(1+e^(−k(x−x0))) in a space where x spans
// [0,1] and y is scaled so the lowest score maps to 0 and 100 maps to 1.
// If the optimiser fails the result is the straight line from the lowest
// score at xMin to 100 at xMax.
func fitSigmoid(xs, ys []float64, lockUpper bool) func(float64) float64 {
	xMin, xMax := floats.Min(xs), floats.Max(xs)
	minY := floats.Min(ys)
	xRange := xMax - xMin
	yRange := sigmoidCeiling - minY

	norm := Data{X: make([]float64, len(xs)), Y: make([]float64, len(ys))}
	for i := range xs {
		norm.X[i] = (xs[i] - xMin) / xRange
		norm.Y[i] = (ys[i] - minY) / yRange
	}

	k := 1.0
	if lo, hi := floats.Min(norm.Y), floats.Max(norm.Y); hi > lo {
		k = (hi - lo) / 4
		if math.IsNaN(k) || math.IsInf(k, 0) || k < 1e-10 {
			k = 1
		}
	}

	var model Model
	opts := LMOptions{
		Damping:            defaultDamping,
		GradientDifference: defaultGradientDifference,
		MaxIterations:      defaultMaxIterations,
		ErrorTolerance:     defaultErrorTolerance,
	}
	if lockUpper {
		model = func(x float64, p []float64) float64 { return logistic(x, p[0], 1, p[1], p[2]) }
		opts.InitialValues = []float64{0, k, 0.5}
		opts.Min = []float64{0, 1e-10, -1}
		opts.Max = []float64{1, math.Inf(1), math.Inf(1)}
	} else {
		model = func(x float64, p []float64) float64 { return logistic(x, p[0], p[1], p[2], p[3]) }
		opts.InitialValues = []float64{0, 1, k, 0.5}
		opts.Min = []float64{0, 0.5, 1e-10, -1}
	}

	toUnit := func(x float64) float64 { return (x - xMin) / xRange }

	res, err := LevenbergMarquardt(norm, model, opts)
	if err != nil {
		log.Printf("Warning: sigmoid fit failed, using linear fallback: %v", err)
		return func(x float64) float64 { return minY + toUnit(x)*yRange }
	}

	p := res.Params
	return func(x float64) float64 {
		y := model(toUnit(x), p)*yRange + minY
		if lockUpper {
			return math.Min(y, sigmoidCeiling)
		}
		return y
	}
}

func logistic(x, lower, upper, k, x0 float64) float64 {
	return lower + (upper-lower)/(1+math.Exp(-k*(x-x0)))
}
