package catalog

// Model is a released AI model. ReleaseDate places its benchmark scores on
// the time axis.
type Model struct {
	ID           string   `json:"id" validate:"required"`
	Name         string   `json:"name"`
	ReleaseDate  string   `json:"releaseDate" validate:"omitempty,datetime=2006-01-02"`
	Description  string   `json:"description,omitempty"`
	Organization string   `json:"organization,omitempty"`
	Aliases      []string `json:"aliases,omitempty"`
}

// Score is one model's result on a benchmark. A nil Score is a missing value.
type Score struct {
	ModelID  string   `json:"modelId" validate:"required"`
	Score    *float64 `json:"score"`
	StdError *float64 `json:"stdError"`
	Date     string   `json:"date,omitempty"`
}

// Benchmark is a scored evaluation after metadata overrides and score
// normalisation have been applied.
type Benchmark struct {
	ID                   string   `json:"id" validate:"required"`
	Name                 string   `json:"name" validate:"required"`
	Description          string   `json:"description"`
	CapabilityName       string   `json:"capabilityName"`
	CapabilityDefinition string   `json:"capabilityDefinition,omitempty"`
	Motivation           string   `json:"motivation,omitempty"`
	Color                string   `json:"color"`
	Scores               []Score  `json:"scores" validate:"dive"`
	HumanBaseline        *float64 `json:"humanBaseline"`
	ExpertBaseline       *float64 `json:"expertBaseline"`
	RandomBaseline       *float64 `json:"randomBaseline,omitempty"`
	URL                  *string  `json:"url"`
	Category             string   `json:"category,omitempty"`
	ProjectionType       string   `json:"projectionType" validate:"omitempty,oneof=s-curve exponential none"`
}

// benchmarkMeta carries per-benchmark overrides from benchmarks_meta.json.
// Only fields present in the file replace the base record.
type benchmarkMeta struct {
	ID                   string   `json:"id" validate:"required"`
	Name                 *string  `json:"name"`
	Description          *string  `json:"description"`
	CapabilityName       *string  `json:"capabilityName"`
	CapabilityDefinition *string  `json:"capabilityDefinition"`
	Motivation           *string  `json:"motivation"`
	Color                *string  `json:"color"`
	HumanBaseline        *float64 `json:"humanBaseline"`
	ExpertBaseline       *float64 `json:"expertBaseline"`
	RandomBaseline       *float64 `json:"randomBaseline"`
	URL                  *string  `json:"url"`
	Category             *string  `json:"category"`
	ProjectionType       *string  `json:"projectionType" validate:"omitempty,oneof=s-curve exponential none"`
}

// ThreatModel describes a threat and the benchmarks that measure progress
// towards it.
type ThreatModel struct {
	ID               string   `json:"id" validate:"required"`
	Name             string   `json:"name" validate:"required"`
	ShortDescription string   `json:"shortDescription,omitempty"`
	LongDescription  string   `json:"longDescription,omitempty"`
	Benchmarks       []string `json:"benchmarks"`
}

// modelsFile is the layout of models.yaml.
type modelsFile struct {
	Models map[string]modelEntry `yaml:"models"`
}

type modelEntry struct {
	DisplayName  string   `yaml:"display_name"`
	ReleaseDate  string   `yaml:"release_date"`
	Organization string   `yaml:"organization"`
	Parameters   string   `yaml:"parameters"`
	Description  string   `yaml:"description"`
	Aliases      []string `yaml:"aliases"`
}

func (e modelEntry) model(id string) Model {
	return Model{
		ID:           id,
		Name:         e.DisplayName,
		ReleaseDate:  e.ReleaseDate,
		Description:  e.Description,
		Organization: e.Organization,
		Aliases:      e.Aliases,
	}
}
