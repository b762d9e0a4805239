// internal/catalog/catalog_test.go
package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"takeoverbench/internal/projection"
	"takeoverbench/internal/series"
)

// ── Test helpers ────────────────────────────────────────────────────────────

func loadTestdata(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load("testdata")
	require.NoError(t, err)
	return c
}

func date(s string) float64 {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return series.Millis(t)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// ── Load ────────────────────────────────────────────────────────────────────

func TestLoad_SkipsInvalidRecords(t *testing.T) {
	c := loadTestdata(t)

	ids := make([]string, 0)
	for _, b := range c.Benchmarks() {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"cybench", "long_tasks", "forecast_bench", "mmlu"}, ids)

	_, ok := c.Model("bad-date")
	assert.False(t, ok, "model with unparseable release date must be skipped")

	assert.Len(t, c.ThreatModels(), 1)

	fitted := c.Fitted()
	assert.Len(t, fitted, 2)
	_, ok = fitted["bogus"]
	assert.False(t, ok, "logistic parameters without k must be skipped")
}

func TestLoad_MissingBenchmarks(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, BenchmarksFile, `[]`)
	writeFile(t, dir, ThreatsFile, `{not json`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ThreatsFile)
}

func TestLoad_OptionalFilesAbsent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, BenchmarksFile, `[{"id":"solo","name":"Solo","scores":[{"modelId":"m","score":1,"date":"2024-01-01"}]}]`)

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, c.Benchmarks(), 1)
	assert.Empty(t, c.Models())
	assert.Empty(t, c.ThreatModels())
	assert.Empty(t, c.Fitted())
	assert.Equal(t, []series.Point{{X: date("2024-01-01"), Y: 1}}, c.Series("solo"))
}

func TestLoad_ModelsJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, BenchmarksFile, `[]`)
	writeFile(t, dir, ModelsJSONFile, `[{"id":"claude-3","name":"Claude 3","releaseDate":"2024-03-04","organization":"Anthropic"}]`)

	c, err := Load(dir)
	require.NoError(t, err)
	m, ok := c.Model("claude-3")
	require.True(t, ok)
	assert.Equal(t, "2024-03-04", m.ReleaseDate)
}

// ── Metadata and defaults ───────────────────────────────────────────────────

func TestBenchmark_MetaOverrides(t *testing.T) {
	c := loadTestdata(t)

	b, ok := c.Benchmark("cybench")
	require.True(t, ok)
	assert.Equal(t, "Cybench", b.Name)
	assert.Equal(t, "cybersecurity", b.CapabilityName)
	assert.Equal(t, "Offensive cyber capability", b.Motivation)
	require.NotNil(t, b.RandomBaseline)
	assert.Equal(t, 0.0, *b.RandomBaseline)
	require.NotNil(t, b.ExpertBaseline)
	assert.Equal(t, 0.6, *b.ExpertBaseline)

	lt, _ := c.Benchmark("long_tasks")
	assert.Equal(t, "exponential", lt.ProjectionType)
	assert.Equal(t, "autonomy", lt.CapabilityName)
	assert.Equal(t, "#ff0000", lt.Color)
}

func TestBenchmark_Defaults(t *testing.T) {
	c := loadTestdata(t)

	// mmlu's only meta entry is invalid, so nothing is overridden.
	b, ok := c.Benchmark("mmlu")
	require.True(t, ok)
	assert.Equal(t, "MMLU", b.Name)
	assert.Equal(t, "MMLU", b.CapabilityName)
	assert.Equal(t, "s-curve", b.ProjectionType)
	assert.Equal(t, ColorFor("mmlu"), b.Color)

	_, ok = c.Benchmark("nameless")
	assert.False(t, ok)
}

func TestColorFor(t *testing.T) {
	assert.Equal(t, palette[0], ColorFor(""))
	assert.Equal(t, ColorFor("cybench"), ColorFor("cybench"))
	assert.Contains(t, palette, ColorFor("anything"))
}

// ── Transforms ──────────────────────────────────────────────────────────────

func scoreValues(b Benchmark) []float64 {
	out := make([]float64, len(b.Scores))
	for i, s := range b.Scores {
		out[i] = *s.Score
	}
	return out
}

func TestTransforms_Applied(t *testing.T) {
	c := loadTestdata(t)

	lt, _ := c.Benchmark("long_tasks")
	assert.InDeltaSlice(t, []float64{5.0 / 2400, 30.0 / 2400, 120.0 / 2400, 1}, scoreValues(lt), 1e-12)

	fb, _ := c.Benchmark("forecast_bench")
	assert.InDeltaSlice(t, []float64{0, 0.2, 0.6}, scoreValues(fb), 1e-12)

	mmlu, _ := c.Benchmark("mmlu")
	assert.Equal(t, []float64{70, 88}, scoreValues(mmlu))
}

func TestTransforms_Registry(t *testing.T) {
	tests := []struct {
		id   string
		raw  []float64
		want []float64
	}{
		{"frontiermatch", []float64{0, 250, 1000, 1500, -3}, []float64{0, 0.25, 1, 1, 0}},
		{"forecast_bench", []float64{0.5, 0.25, 0}, []float64{0, 0.5, 1}},
		{"forecast_bench", []float64{0, 0}, []float64{1, 1}},
		{"forecast_bench", []float64{-0.1, -0.2}, []float64{1, 1}},
		{"forecast_bench", []float64{}, []float64{}},
		{"long_tasks", []float64{240, 2400, 9000}, []float64{0.1, 1, 1}},
	}
	for _, tt := range tests {
		tr, ok := TransformFor(tt.id)
		require.True(t, ok, tt.id)
		assert.InDeltaSlice(t, tt.want, tr(tt.raw), 1e-12, "%s %v", tt.id, tt.raw)
	}

	_, ok := TransformFor("mmlu")
	assert.False(t, ok)
}

func TestNormaliseScores_MissingStaysMissing(t *testing.T) {
	v := 500.0
	scores := []Score{{ModelID: "a", Score: &v}, {ModelID: "b"}}

	got := normaliseScores("frontiermatch", scores)

	assert.Nil(t, got[1].Score)
	assert.Equal(t, 0.5, *got[0].Score)
	assert.Equal(t, 500.0, *scores[0].Score, "input must not be modified")
}

func TestNormaliseScores_MissingIgnoredByRelativeScale(t *testing.T) {
	a, b := 0.25, 0.2
	scores := []Score{{ModelID: "a", Score: &a}, {ModelID: "b"}, {ModelID: "c", Score: &b}}

	got := normaliseScores("forecast_bench", scores)

	require.Len(t, got, 3)
	assert.Nil(t, got[1].Score)
	assert.InDelta(t, 0.0, *got[0].Score, 1e-12)
	assert.InDelta(t, 0.2, *got[2].Score, 1e-12)
}

func TestLoad_MissingScoreStaysOffFrontier(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, BenchmarksFile, `[{"id":"forecast_bench","name":"ForecastBench","scores":[
		{"modelId":"a","score":0.25,"date":"2024-01-01"},
		{"modelId":"b","score":null,"date":"2024-02-01"},
		{"modelId":"c","score":0.2,"date":"2024-03-01"}]}]`)

	c, err := Load(dir)
	require.NoError(t, err)

	points := c.Series("forecast_bench")
	require.Len(t, points, 2)
	assert.InDelta(t, 0.0, points[0].Y, 1e-12)
	assert.InDelta(t, 0.2, points[1].Y, 1e-12)

	frontier := SOTA(points)
	require.Len(t, frontier, 2)
	assert.Equal(t, date("2024-03-01"), frontier[1].X)
}

func TestCeiling(t *testing.T) {
	c := loadTestdata(t)
	ceiling := func(id string) float64 {
		b, ok := c.Benchmark(id)
		require.True(t, ok, id)
		return Ceiling(b, 100)
	}

	assert.Equal(t, 1.0, ceiling("cybench"), "fraction scores")
	assert.Equal(t, 1.0, ceiling("long_tasks"), "transformed")
	assert.Equal(t, 1.0, ceiling("forecast_bench"), "transformed")
	assert.Equal(t, 100.0, ceiling("mmlu"), "percentage scores")
	assert.Equal(t, 100.0, ceiling("nameless"), "no scores")
}

func TestCeiling_IgnoresMissingScores(t *testing.T) {
	half := 0.5
	b := Benchmark{ID: "x", Scores: []Score{{ModelID: "a", Score: &half}, {ModelID: "b"}}}
	assert.Equal(t, 1.0, Ceiling(b, 100))

	over := 42.0
	b.Scores = append(b.Scores, Score{ModelID: "c", Score: &over})
	assert.Equal(t, 100.0, Ceiling(b, 100))
}

// ── Lookups ─────────────────────────────────────────────────────────────────

func TestModel_Aliases(t *testing.T) {
	c := loadTestdata(t)

	for _, id := range []string{"gpt-4o", "gpt-4o-2024", "gpt4o", "openai/gpt-4o-2024"} {
		m, ok := c.Model(id)
		require.True(t, ok, id)
		assert.Equal(t, "gpt-4o", m.ID, id)
		assert.Equal(t, "GPT-4o", m.Name)
	}

	_, ok := c.Model("gpt-5")
	assert.False(t, ok)
}

func TestThreatBenchmarks(t *testing.T) {
	c := loadTestdata(t)

	got, ok := c.ThreatBenchmarks("cyber-offense")
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "cybench", got[0].ID)
	assert.Equal(t, "long_tasks", got[1].ID)

	_, ok = c.ThreatBenchmarks("bioweapons")
	assert.False(t, ok)
}

func TestFitted_ReturnsCopy(t *testing.T) {
	c := loadTestdata(t)

	table := c.Fitted()
	delete(table, "cybench")

	_, ok := c.Fitted().Fitted("cybench")
	assert.True(t, ok)

	p, _ := c.Fitted().Fitted("long_tasks")
	assert.Equal(t, projection.ShapeExponential, p.Type)
}

// ── Series ──────────────────────────────────────────────────────────────────

func TestSeries(t *testing.T) {
	c := loadTestdata(t)

	got := c.Series("cybench")

	want := []series.Point{
		{X: date("2023-03-14"), Y: 0.1},
		{X: date("2023-09-01"), Y: 0.2},
		{X: date("2024-01-10"), Y: 0.15},
		{X: date("2024-05-13"), Y: 0.35},
		{X: date("2024-09-01"), Y: 0.4},
	}
	assert.Equal(t, want, got)

	assert.Empty(t, c.Series("unknown"))
}

func TestSOTA(t *testing.T) {
	c := loadTestdata(t)

	got := SOTA(c.Series("cybench"))

	ys := make([]float64, len(got))
	for i, p := range got {
		ys[i] = p.Y
	}
	assert.Equal(t, []float64{0.1, 0.2, 0.35, 0.4}, ys)

	assert.Empty(t, SOTA(nil))
	assert.Len(t, SOTA([]series.Point{{X: 1, Y: 5}, {X: 2, Y: 5}, {X: 3, Y: 4}}), 1)
}
