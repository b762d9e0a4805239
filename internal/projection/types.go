package projection

import (
	"fmt"
	"strings"

	"takeoverbench/internal/series"
)

// Kind selects the growth model used by live projection.
type Kind string

const (
	KindLogistic    Kind = "s-curve"     // saturating towards a ceiling
	KindExponential Kind = "exponential" // unbounded growth
	KindNone        Kind = "none"
)

// DefaultCeiling is the logistic ceiling used when the caller passes none.
// It matches percentage-scored benchmarks.
const DefaultCeiling = 100.0

// ParseKind maps a projection type tag to a Kind. An empty tag is treated as
// logistic, the data layer's default.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "s-curve", "scurve", "logistic":
		return KindLogistic, nil
	case "exponential":
		return KindExponential, nil
	case "none":
		return KindNone, nil
	}
	return "", fmt.Errorf("unknown projection type %q", s)
}

// Result is a projected curve. Confidence is set by live projection only;
// replayed parameters are presumed validated when they were fitted.
type Result struct {
	Points     []series.Point `json:"projected_points"`
	Confidence *float64       `json:"confidence,omitempty"`
}

// noProjection is the live-mode empty result.
func noProjection() Result {
	zero := 0.0
	return Result{Points: []series.Point{}, Confidence: &zero}
}

func withConfidence(points []series.Point, confidence float64) Result {
	c := series.Clamp(confidence, 0, 1)
	return Result{Points: points, Confidence: &c}
}
