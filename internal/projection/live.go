package projection

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"takeoverbench/internal/series"
)

// Exponential fits look at the most recent samples only.
const recentWindow = 5

// Growth rates are damped into this doubling-time band (years).
const (
	fastestDoubling  = 0.3
	slowestDoubling  = 3.0
	fallbackDoubling = 2.0
)

// yearPoint is a sample with time expressed in years since the first sample.
type yearPoint struct {
	t, y float64
}

// Project extrapolates samples monthsAhead months past the last observation.
// Samples may be unordered and may contain missing values. ceiling bounds the
// logistic model and is ignored for exponential growth; a non-positive
// ceiling selects DefaultCeiling. Units of y are whatever the caller supplies.
func Project(samples []series.Point, kind Kind, monthsAhead int, ceiling float64) Result {
	if monthsAhead <= 0 {
		return noProjection()
	}
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}

	switch kind {
	case KindLogistic:
		return projectLogistic(samples, monthsAhead, ceiling)
	case KindExponential:
		return projectExponential(samples, monthsAhead)
	default:
		return noProjection()
	}
}

// toYears sorts valid samples and rebases time onto years since the earliest.
func toYears(valid []series.Point) (origin float64, pts []yearPoint) {
	sorted := series.SortByX(valid)
	origin = sorted[0].X
	pts = make([]yearPoint, len(sorted))
	for i, p := range sorted {
		pts[i] = yearPoint{t: series.Years(p.X - origin), y: p.Y}
	}
	return origin, pts
}

func fromYears(origin, t, y float64) series.Point {
	return series.Point{X: origin + t*series.MillisPerYear, Y: y}
}

func projectLogistic(samples []series.Point, months int, ceiling float64) Result {
	valid := series.Filter(samples, func(p series.Point) bool {
		return p.Valid() && p.Y >= 0 && p.Y <= ceiling
	})
	if len(valid) < 2 {
		return noProjection()
	}

	origin, pts := toYears(valid)
	if len(pts) == 2 {
		return logisticFromSecant(origin, pts[0], pts[1], months, ceiling)
	}

	n := len(pts)
	first, mid, last := pts[0], pts[n/2], pts[n-1]

	k, x0 := 1.0, mid.t
	if mid.y > first.y && mid.y < ceiling*0.95 {
		dy := last.y - first.y
		dt := last.t - first.t
		if dt > 0 && dy > 0 {
			k = 4 * dy / (ceiling * dt)
		}
		// Midpoint where the fitted curve crosses half the ceiling.
		x0 = first.t + (ceiling/2-first.y)/(k*ceiling/4)
	}

	points := make([]series.Point, 0, months)
	for i := 1; i <= months; i++ {
		t := last.t + float64(i)/12
		y := ceiling / (1 + math.Exp(-k*(t-x0)))
		if y < ceiling*0.99 && y > last.y*0.95 {
			points = append(points, fromYears(origin, t, math.Min(y, ceiling)))
		}
	}

	span := last.t - first.t
	growth := last.y - first.y
	confidence := math.Min(1, float64(n)/10) * spanWeight(span) * growthWeight(growth, 5)
	return withConfidence(points, math.Min(1, confidence))
}

// logisticFromSecant handles the two-sample case: a straight line through both
// samples, held under the ceiling.
func logisticFromSecant(origin float64, first, last yearPoint, months int, ceiling float64) Result {
	dt := last.t - first.t
	dy := last.y - first.y
	if dt <= 0 || dy <= 0 {
		return noProjection()
	}

	slope := dy / dt
	points := make([]series.Point, 0, months)
	for i := 1; i <= months; i++ {
		t := last.t + float64(i)/12
		y := math.Min(last.y+slope*(t-last.t), ceiling*0.99)
		if y > last.y*0.95 && y < ceiling {
			points = append(points, fromYears(origin, t, y))
		}
	}

	// Under ~4 months of history the weight falls off linearly.
	window := 0.6
	if dt <= 0.3 {
		window = dt * 2
	}
	confidence := math.Min(0.6, window*growthWeight(dy, 3))
	return withConfidence(points, confidence)
}

func projectExponential(samples []series.Point, months int) Result {
	valid := series.Filter(samples, func(p series.Point) bool {
		return p.Valid() && p.Y > 0
	})
	if len(valid) < 2 {
		return noProjection()
	}

	origin, pts := toYears(valid)
	n := len(pts)
	first, last := pts[0], pts[n-1]

	recent := pts[max(0, n-recentWindow):]
	xs := make([]float64, len(recent))
	logs := make([]float64, len(recent))
	for i, p := range recent {
		xs[i] = p.t
		logs[i] = math.Log(math.Max(0.001, p.y))
	}

	lnA, b := stat.LinearRegression(xs, logs, nil, false)
	if math.IsNaN(b) || math.IsInf(b, 0) {
		return noProjection()
	}
	rate := dampGrowth(b)

	steps := int(math.Ceil(float64(months) * 4 / 12))
	points := make([]series.Point, 0, steps)
	for i := 1; i <= steps; i++ {
		dt := float64(i) / 4
		y := last.y * math.Exp(rate*dt)
		// More than 3x the last value per year is treated as implausible.
		y = math.Min(y, last.y*(1+3*dt))
		if y > last.y*0.98 {
			points = append(points, fromYears(origin, last.t+dt, y))
		}
	}

	r2 := rSquared(xs, logs, lnA, b)
	density := math.Min(1, float64(n)/8)
	confidence := math.Min(0.8, r2*0.9*density*spanWeight(last.t-first.t))
	return withConfidence(points, math.Max(0, confidence))
}

// dampGrowth keeps the implied doubling time inside a plausible band. The
// comparison is on the signed doubling time, so a shrinking series is also
// pulled up to the fastest rate.
func dampGrowth(b float64) float64 {
	doubling := math.Ln2 / b
	switch {
	case doubling < fastestDoubling:
		return math.Ln2 / fastestDoubling
	case doubling > slowestDoubling:
		return math.Ln2 / fallbackDoubling
	}
	return b
}

// rSquared is the coefficient of determination of y = intercept + slope*x.
// A constant series has no variance to explain and scores 0.
func rSquared(xs, ys []float64, intercept, slope float64) float64 {
	if len(ys) == 0 || floats.Max(ys) == floats.Min(ys) {
		return 0
	}
	return stat.RSquared(xs, ys, nil, intercept, slope)
}

// spanWeight reaches full weight at six months of observations.
func spanWeight(years float64) float64 {
	if years > 0.5 {
		return 1
	}
	return years * 2
}

func growthWeight(delta, threshold float64) float64 {
	if delta > threshold {
		return 1
	}
	return 0.5
}
