// Package prefit fits anchored growth curves to benchmark histories offline
// and maintains the fitted_projections.json table that replay mode reads.
package prefit

import (
	"errors"
	"fmt"
	"math"

	"takeoverbench/internal/curvefit"
	"takeoverbench/internal/projection"
	"takeoverbench/internal/series"
)

var (
	ErrTooFewPoints = errors.New("prefit: need at least two points")
	ErrBadAnchor    = errors.New("prefit: exponential anchor must be positive")
)

// Starting guess and bounds for the single free rate parameter, per day.
const (
	initialRate     = 0.001
	logisticMinK    = 1e-9
	logisticMaxK    = 1.0
	exponentialMinB = -1.0
	exponentialMaxB = 1.0
)

// lmOptions tunes the optimiser for rates of order 1e-3 per day.
func lmOptions(lo, hi float64) curvefit.LMOptions {
	return curvefit.LMOptions{
		InitialValues:      []float64{initialRate},
		Min:                []float64{lo},
		Max:                []float64{hi},
		Damping:            1e-3,
		GradientDifference: 1e-7,
		MaxIterations:      500,
		ErrorTolerance:     1e-14,
	}
}

// timeline converts sorted points to whole days since the first one.
type timeline struct {
	origin, anchor float64 // epoch ms
	data           curvefit.Data
}

func newTimeline(points []series.Point) (timeline, error) {
	pts := series.SortByX(series.Finite(points))
	if len(pts) < 2 {
		return timeline{}, ErrTooFewPoints
	}
	tl := timeline{origin: pts[0].X, anchor: pts[len(pts)-1].X}
	for _, p := range pts {
		tl.data.X = append(tl.data.X, math.Floor(series.Days(p.X-tl.origin)))
		tl.data.Y = append(tl.data.Y, p.Y)
	}
	return tl, nil
}

func (tl timeline) last() (t, y float64) {
	n := len(tl.data.X)
	return tl.data.X[n-1], tl.data.Y[n-1]
}

func (tl timeline) params(shape projection.Shape, ya float64) projection.FittedParams {
	return projection.FittedParams{
		Type:       shape,
		AnchorDate: projection.FormatDate(series.Time(tl.anchor)),
		AnchorY:    ya,
		DateOrigin: projection.FormatDate(series.Time(tl.origin)),
		NPoints:    len(tl.data.X),
	}
}

// FitLogistic fits y = L0 + (L1−L0)(ya−L0)/[(ya−L0) + (L1−ya)e^(−k(t−ta))],
// the logistic through the last point, leaving only the steepness k free.
func FitLogistic(points []series.Point, l0, l1 float64) (projection.FittedParams, error) {
	tl, err := newTimeline(points)
	if err != nil {
		return projection.FittedParams{}, err
	}
	if !(l1 > l0) {
		return projection.FittedParams{}, fmt.Errorf("prefit: ceiling %g must exceed floor %g", l1, l0)
	}
	ta, ya := tl.last()
	model := func(t float64, p []float64) float64 {
		return projection.AnchoredLogistic(t, p[0], l0, l1, ta, ya)
	}

	k, kStd, err := fitRate(tl.data, model, lmOptions(logisticMinK, logisticMaxK))
	if err != nil {
		return projection.FittedParams{}, fmt.Errorf("fit logistic: %w", err)
	}

	p := tl.params(projection.ShapeLogistic, ya)
	p.K, p.KStd = &k, kStd
	p.L0, p.L1 = &l0, &l1
	return p, nil
}

// FitExponential fits y = ya·e^(b(t−ta)) through the last point.
func FitExponential(points []series.Point) (projection.FittedParams, error) {
	tl, err := newTimeline(points)
	if err != nil {
		return projection.FittedParams{}, err
	}
	ta, ya := tl.last()
	if ya <= 0 {
		return projection.FittedParams{}, ErrBadAnchor
	}
	model := func(t float64, p []float64) float64 {
		return projection.AnchoredExponential(t, p[0], ta, ya)
	}

	b, bStd, err := fitRate(tl.data, model, lmOptions(exponentialMinB, exponentialMaxB))
	if err != nil {
		return projection.FittedParams{}, fmt.Errorf("fit exponential: %w", err)
	}

	p := tl.params(projection.ShapeExponential, ya)
	p.B, p.BStd = &b, bStd
	return p, nil
}

// fitRate fits a one-parameter model and estimates the parameter's standard
// error from the residual variance and the Jacobian at the optimum. The
// error is nil when it is not positive.
func fitRate(data curvefit.Data, model curvefit.Model, opts curvefit.LMOptions) (float64, *float64, error) {
	res, err := curvefit.LevenbergMarquardt(data, model, opts)
	if err != nil {
		return 0, nil, err
	}
	rate := res.Params[0]

	dof := float64(len(data.X) - 1)
	jac := curvefit.Jacobian(data, model, res.Params, opts.GradientDifference)
	var jtj float64
	for i := range data.X {
		d := jac.At(i, 0)
		jtj += d * d
	}
	variance := curvefit.SumSquaredError(data, model, res.Params) / dof / jtj
	if variance > 0 && !math.IsInf(variance, 0) {
		std := math.Sqrt(variance)
		return rate, &std, nil
	}
	return rate, nil, nil
}
