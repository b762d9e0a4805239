// Package catalog loads the curated benchmark data directory: benchmarks,
// their metadata overrides, model release dates, threat models and the
// offline-fitted projection table.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"takeoverbench/internal/projection"
	"takeoverbench/internal/series"
)

// File names inside a data directory.
const (
	BenchmarksFile = "benchmarks.json"
	MetaFile       = "benchmarks_meta.json"
	ModelsJSONFile = "models.json"
	ModelsYAMLFile = "models.yaml"
	ThreatsFile    = "threat_models.json"
	FittedFile     = "fitted_projections.json"
)

var validate = validator.New()

// Catalog is an immutable, indexed view of a data directory.
type Catalog struct {
	benchmarks []Benchmark
	benchIdx   map[string]int

	models   []Model
	modelIdx map[string]int // canonical ids and aliases

	threats   []ThreatModel
	threatIdx map[string]int

	fitted projection.FittedTable
}

// Load reads a data directory. benchmarks.json is required; the other files
// are optional. Records that fail validation are skipped with a warning,
// while a file that cannot be parsed is an error.
func Load(dir string) (*Catalog, error) {
	c := &Catalog{
		benchIdx:  make(map[string]int),
		modelIdx:  make(map[string]int),
		threatIdx: make(map[string]int),
		fitted:    projection.FittedTable{},
	}

	var raw []Benchmark
	if err := readJSON(filepath.Join(dir, BenchmarksFile), &raw); err != nil {
		return nil, err
	}

	var metas []benchmarkMeta
	if err := readOptionalJSON(filepath.Join(dir, MetaFile), &metas); err != nil {
		return nil, err
	}
	metaByID := make(map[string]benchmarkMeta, len(metas))
	for _, m := range metas {
		if err := validate.Struct(m); err != nil {
			log.Printf("Warning: skipping benchmark meta %q: %v", m.ID, err)
			continue
		}
		metaByID[m.ID] = m
	}

	for _, b := range raw {
		if m, ok := metaByID[b.ID]; ok {
			b = m.apply(b)
		}
		b = withDefaults(b)
		if err := validate.Struct(b); err != nil {
			log.Printf("Warning: skipping benchmark %q: %v", b.ID, err)
			continue
		}
		if _, dup := c.benchIdx[b.ID]; dup {
			log.Printf("Warning: duplicate benchmark %q, keeping the first", b.ID)
			continue
		}
		b.Scores = normaliseScores(b.ID, b.Scores)
		c.benchIdx[b.ID] = len(c.benchmarks)
		c.benchmarks = append(c.benchmarks, b)
	}

	models, err := loadModels(dir)
	if err != nil {
		return nil, err
	}
	for _, m := range models {
		if err := validate.Struct(m); err != nil {
			log.Printf("Warning: skipping model %q: %v", m.ID, err)
			continue
		}
		i := len(c.models)
		c.models = append(c.models, m)
		c.modelIdx[m.ID] = i
		for _, alias := range m.Aliases {
			if _, taken := c.modelIdx[alias]; !taken {
				c.modelIdx[alias] = i
			}
		}
	}

	var threats []ThreatModel
	if err := readOptionalJSON(filepath.Join(dir, ThreatsFile), &threats); err != nil {
		return nil, err
	}
	for _, t := range threats {
		if err := validate.Struct(t); err != nil {
			log.Printf("Warning: skipping threat model %q: %v", t.ID, err)
			continue
		}
		c.threatIdx[t.ID] = len(c.threats)
		c.threats = append(c.threats, t)
	}

	var fitted projection.FittedTable
	if err := readOptionalJSON(filepath.Join(dir, FittedFile), &fitted); err != nil {
		return nil, err
	}
	for id, p := range fitted {
		if err := validate.Struct(p); err != nil {
			log.Printf("Warning: skipping fitted projection %q: %v", id, err)
			continue
		}
		c.fitted[id] = p
	}

	return c, nil
}

func (m benchmarkMeta) apply(b Benchmark) Benchmark {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&b.Name, m.Name)
	setString(&b.Description, m.Description)
	setString(&b.CapabilityName, m.CapabilityName)
	setString(&b.CapabilityDefinition, m.CapabilityDefinition)
	setString(&b.Motivation, m.Motivation)
	setString(&b.Color, m.Color)
	setString(&b.Category, m.Category)
	setString(&b.ProjectionType, m.ProjectionType)
	if m.HumanBaseline != nil {
		b.HumanBaseline = m.HumanBaseline
	}
	if m.ExpertBaseline != nil {
		b.ExpertBaseline = m.ExpertBaseline
	}
	if m.RandomBaseline != nil {
		b.RandomBaseline = m.RandomBaseline
	}
	if m.URL != nil {
		b.URL = m.URL
	}
	return b
}

func withDefaults(b Benchmark) Benchmark {
	if b.CapabilityName == "" {
		b.CapabilityName = b.Name
	}
	if b.Color == "" {
		b.Color = ColorFor(b.ID)
	}
	if b.ProjectionType == "" {
		b.ProjectionType = string(projection.KindLogistic)
	}
	return b
}

// loadModels prefers models.yaml, which carries aliases, over models.json.
func loadModels(dir string) ([]Model, error) {
	data, err := os.ReadFile(filepath.Join(dir, ModelsYAMLFile))
	switch {
	case err == nil:
		var f modelsFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", ModelsYAMLFile, err)
		}
		ids := make([]string, 0, len(f.Models))
		for id := range f.Models {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		models := make([]Model, 0, len(ids))
		for _, id := range ids {
			models = append(models, f.Models[id].model(id))
		}
		return models, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read %s: %w", ModelsYAMLFile, err)
	}

	var models []Model
	if err := readOptionalJSON(filepath.Join(dir, ModelsJSONFile), &models); err != nil {
		return nil, err
	}
	return models, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readOptionalJSON(path string, v any) error {
	err := readJSON(path, v)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ── Lookups ─────────────────────────────────────────────────────────────────

// Benchmarks returns every benchmark in file order.
func (c *Catalog) Benchmarks() []Benchmark { return slices.Clone(c.benchmarks) }

// Models returns every model.
func (c *Catalog) Models() []Model { return slices.Clone(c.models) }

// ThreatModels returns every threat model in file order.
func (c *Catalog) ThreatModels() []ThreatModel { return slices.Clone(c.threats) }

func (c *Catalog) Benchmark(id string) (Benchmark, bool) {
	i, ok := c.benchIdx[id]
	if !ok {
		return Benchmark{}, false
	}
	return c.benchmarks[i], true
}

// Model resolves a model id or alias. Provider prefixes such as
// "openai/gpt-4o" are ignored.
func (c *Catalog) Model(id string) (Model, bool) {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	i, ok := c.modelIdx[id]
	if !ok {
		return Model{}, false
	}
	return c.models[i], true
}

func (c *Catalog) ThreatModel(id string) (ThreatModel, bool) {
	i, ok := c.threatIdx[id]
	if !ok {
		return ThreatModel{}, false
	}
	return c.threats[i], true
}

// ThreatBenchmarks returns the known benchmarks a threat model lists, in its
// order and without repeats.
func (c *Catalog) ThreatBenchmarks(threatID string) ([]Benchmark, bool) {
	t, ok := c.ThreatModel(threatID)
	if !ok {
		return nil, false
	}
	out := make([]Benchmark, 0, len(t.Benchmarks))
	seen := make(map[string]bool, len(t.Benchmarks))
	for _, id := range t.Benchmarks {
		if seen[id] {
			continue
		}
		seen[id] = true
		if b, ok := c.Benchmark(id); ok {
			out = append(out, b)
		}
	}
	return out, true
}

// Fitted returns the fitted projection table loaded with the catalog.
func (c *Catalog) Fitted() projection.FittedTable {
	out := make(projection.FittedTable, len(c.fitted))
	for id, p := range c.fitted {
		out[id] = p
	}
	return out
}

// ── Series ──────────────────────────────────────────────────────────────────

// Series places a benchmark's normalised scores on the time axis: x is the
// model's release date, or the score's own date when the model is unknown.
// Missing scores and undated entries are dropped. The result is sorted by x.
func (c *Catalog) Series(benchmarkID string) []series.Point {
	b, ok := c.Benchmark(benchmarkID)
	if !ok {
		return []series.Point{}
	}
	points := make([]series.Point, 0, len(b.Scores))
	for _, s := range b.Scores {
		if s.Score == nil {
			continue
		}
		x, ok := c.scoreDate(s)
		if !ok {
			continue
		}
		points = append(points, series.Point{X: x, Y: *s.Score})
	}
	return series.SortByX(series.Finite(points))
}

func (c *Catalog) scoreDate(s Score) (float64, bool) {
	if m, ok := c.Model(s.ModelID); ok && m.ReleaseDate != "" {
		if t, err := projection.ParseDate(m.ReleaseDate); err == nil {
			return series.Millis(t), true
		}
	}
	if s.Date != "" {
		if t, err := projection.ParseDate(s.Date); err == nil {
			return series.Millis(t), true
		}
	}
	return 0, false
}

// Ceiling is the saturation level for a benchmark's live logistic projection.
// Transformed benchmarks and benchmarks whose scores all lie in [0,1] are on a
// fraction scale and saturate at 1; anything else uses fallback.
func Ceiling(b Benchmark, fallback float64) float64 {
	if _, ok := TransformFor(b.ID); ok {
		return 1
	}
	seen := false
	for _, s := range b.Scores {
		if s.Score == nil {
			continue
		}
		if *s.Score < 0 || *s.Score > 1 {
			return fallback
		}
		seen = true
	}
	if !seen {
		return fallback
	}
	return 1
}

// SOTA keeps the points that beat every earlier point. points must be sorted
// by x.
func SOTA(points []series.Point) []series.Point {
	out := make([]series.Point, 0, len(points))
	best := math.Inf(-1)
	for _, p := range points {
		if p.Y > best {
			out = append(out, p)
			best = p.Y
		}
	}
	return out
}
