package projection

import (
	"fmt"
	"math"
	"time"

	"takeoverbench/internal/series"
)

// Shape tags the functional form of pre-fitted parameters.
type Shape string

const (
	ShapeLogistic    Shape = "logistic"
	ShapeExponential Shape = "exponential"
)

// anchorEpsilon keeps the logistic anchor strictly inside (L0, L1).
const anchorEpsilon = 1e-6

// Replayed logistic curves stop once they reach this share of the ceiling.
const saturationShare = 0.995

// FittedParams are coefficients produced by the offline fitter. Time is
// measured in days from DateOrigin, and every curve passes through
// (AnchorDate, AnchorY). This is the on-disk shape of fitted_projections.json.
type FittedParams struct {
	Type Shape `json:"type" validate:"required,oneof=logistic exponential"`

	// Logistic.
	K    *float64 `json:"k,omitempty" validate:"required_if=Type logistic"`
	KStd *float64 `json:"k_std,omitempty"`
	L0   *float64 `json:"L_0,omitempty" validate:"required_if=Type logistic"`
	L1   *float64 `json:"L_1,omitempty" validate:"required_if=Type logistic"`

	// Exponential.
	B    *float64 `json:"b,omitempty" validate:"required_if=Type exponential"`
	BStd *float64 `json:"b_std,omitempty"`

	AnchorDate string  `json:"anchor_date" validate:"required"`
	AnchorY    float64 `json:"anchor_y"`
	DateOrigin string  `json:"date_origin" validate:"required"`
	NPoints    int     `json:"n_points,omitempty" validate:"gte=0"`
}

// ParamSource resolves fitted parameters by series id.
type ParamSource interface {
	Fitted(seriesID string) (FittedParams, bool)
}

// FittedTable is the in-memory form of fitted_projections.json.
type FittedTable map[string]FittedParams

// Fitted implements ParamSource.
func (t FittedTable) Fitted(seriesID string) (FittedParams, bool) {
	p, ok := t[seriesID]
	return p, ok
}

// dateLayouts are the accepted forms of anchor_date and date_origin.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FormatDate renders a date the way fitted tables store it.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05")
}

// ParseDate accepts the date layouts written by the offline fitter.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// Timeline returns the origin date and the anchor's offset from it in days.
func (p FittedParams) Timeline() (origin time.Time, anchorDays float64, err error) {
	origin, err = ParseDate(p.DateOrigin)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("date_origin: %w", err)
	}
	anchor, err := ParseDate(p.AnchorDate)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("anchor_date: %w", err)
	}
	return origin, anchor.Sub(origin).Hours() / 24, nil
}

// Curve returns the anchored model as a function of days since DateOrigin.
func (p FittedParams) Curve() (func(t float64) float64, error) {
	_, ta, err := p.Timeline()
	if err != nil {
		return nil, err
	}
	ya := p.AnchorY

	switch p.Type {
	case ShapeLogistic:
		if p.K == nil || p.L0 == nil || p.L1 == nil {
			return nil, fmt.Errorf("logistic parameters need k, L_0 and L_1")
		}
		k, l0, l1 := *p.K, *p.L0, *p.L1
		if !(l1 > l0) {
			return nil, fmt.Errorf("logistic ceiling %g is not above floor %g", l1, l0)
		}
		return func(t float64) float64 { return AnchoredLogistic(t, k, l0, l1, ta, ya) }, nil
	case ShapeExponential:
		if p.B == nil {
			return nil, fmt.Errorf("exponential parameters need b")
		}
		if ya <= 0 {
			return nil, fmt.Errorf("exponential anchor must be positive, got %g", ya)
		}
		b := *p.B
		return func(t float64) float64 { return AnchoredExponential(t, b, ta, ya) }, nil
	}
	return nil, fmt.Errorf("unknown fitted type %q", p.Type)
}

// ClampAnchor pulls an anchor value strictly inside (l0, l1).
func ClampAnchor(ya, l0, l1 float64) float64 {
	return series.Clamp(ya, l0+anchorEpsilon, l1-anchorEpsilon)
}

// AnchoredLogistic is the logistic with floor l0 and ceiling l1 that passes
// through (ta, ya):
//
//	y = l0 + (l1-l0)(ya-l0) / [(ya-l0) + (l1-ya)·e^(-k(t-ta))]
func AnchoredLogistic(t, k, l0, l1, ta, ya float64) float64 {
	ya = ClampAnchor(ya, l0, l1)
	num := ya - l0
	den := num + (l1-ya)*math.Exp(-k*(t-ta))
	return l0 + (l1-l0)*num/den
}

// AnchoredExponential is y = ya·e^(b(t-ta)).
func AnchoredExponential(t, b, ta, ya float64) float64 {
	return ya * math.Exp(b*(t-ta))
}

// ProjectFromFitted replays the pre-fitted curve for seriesID from its anchor
// forward over monthsAhead 30-day months. The first point is the anchor
// itself. Unknown ids and unusable parameters yield an empty result.
func ProjectFromFitted(src ParamSource, seriesID string, monthsAhead int) Result {
	empty := Result{Points: []series.Point{}}
	if src == nil || monthsAhead <= 0 {
		return empty
	}
	p, ok := src.Fitted(seriesID)
	if !ok || (p.NPoints != 0 && p.NPoints < 2) {
		return empty
	}
	curve, err := p.Curve()
	if err != nil {
		return empty
	}
	origin, ta, _ := p.Timeline()
	originMs := series.Millis(origin)
	horizon := float64(monthsAhead) * 30

	at := func(t float64) series.Point {
		return series.Point{X: originMs + t*series.MillisPerDay, Y: curve(t)}
	}

	switch p.Type {
	case ShapeLogistic:
		ceiling := *p.L1
		points := make([]series.Point, 0, monthsAhead+1)
		for i := 0; i <= monthsAhead; i++ {
			pt := at(ta + horizon*float64(i)/float64(monthsAhead))
			if pt.Y >= ceiling*saturationShare {
				break
			}
			points = append(points, pt)
		}
		return Result{Points: points}
	default:
		steps := monthsAhead * 4
		points := make([]series.Point, 0, steps+1)
		for i := 0; i <= steps; i++ {
			points = append(points, at(ta+horizon*float64(i)/float64(steps)))
		}
		return Result{Points: points}
	}
}
