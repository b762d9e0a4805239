package catalog

import (
	"slices"

	"takeoverbench/internal/series"
)

// Transform maps a benchmark's raw scores onto [0,1]. It receives every raw
// value at once because some scales are relative to the whole history.
type Transform func(raw []float64) []float64

// transforms holds the per-benchmark score normalisers. Benchmarks without an
// entry keep their raw scores.
var transforms = map[string]Transform{
	"frontiermatch":  scaleClipped(1000),
	"forecast_bench": inverseMinMax,
	"long_tasks":     scaleClipped(40 * 60),
}

// TransformFor returns the normaliser registered for a benchmark id.
func TransformFor(id string) (Transform, bool) {
	t, ok := transforms[id]
	return t, ok
}

// scaleClipped divides by top and clips to [0,1]. long_tasks reports minutes,
// so its top is a 40-hour working week.
func scaleClipped(top float64) Transform {
	return func(raw []float64) []float64 {
		out := make([]float64, len(raw))
		for i, v := range raw {
			out[i] = series.Clamp(v/top, 0, 1)
		}
		return out
	}
}

// inverseMinMax scores lower-is-better metrics (Brier scores) against a
// floor of 0: the worst observed value maps to 0.
func inverseMinMax(raw []float64) []float64 {
	out := make([]float64, len(raw))
	if len(raw) == 0 {
		return out
	}
	top := max(slices.Max(raw), 0)
	for i, v := range raw {
		if top == 0 {
			out[i] = 1
			continue
		}
		out[i] = series.Clamp(1-v/top, 0, 1)
	}
	return out
}

// normaliseScores applies the registered transform to a benchmark's scores.
// Only present values reach the transform; missing scores stay missing.
func normaliseScores(id string, scores []Score) []Score {
	out := slices.Clone(scores)
	transform, ok := TransformFor(id)
	if !ok {
		return out
	}
	var (
		raw []float64
		at  []int
	)
	for i, s := range scores {
		if s.Score != nil {
			raw = append(raw, *s.Score)
			at = append(at, i)
		}
	}
	for j, v := range transform(raw) {
		out[at[j]].Score = &v
	}
	return out
}
