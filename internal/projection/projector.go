package projection

import (
	"fmt"
	"strings"

	"takeoverbench/internal/series"
)

// Mode names a projection strategy.
type Mode string

const (
	ModeLive   Mode = "live"   // estimate parameters from the samples on every call
	ModeFitted Mode = "fitted" // replay parameters fitted offline
)

// Request carries everything either mode may need. Live projection reads
// Samples, Kind and Ceiling; fitted replay reads SeriesID.
type Request struct {
	SeriesID    string
	Samples     []series.Point
	Kind        Kind
	MonthsAhead int
	Ceiling     float64
}

// Projector produces a forward curve for a request.
// Add a mode by registering a constructor in modes.
type Projector interface {
	Mode() Mode
	Project(req Request) Result
}

// LiveProjector estimates growth parameters in-process.
type LiveProjector struct{}

func (LiveProjector) Mode() Mode { return ModeLive }

func (LiveProjector) Project(req Request) Result {
	return Project(req.Samples, req.Kind, req.MonthsAhead, req.Ceiling)
}

// FittedProjector replays anchored parameters from Source.
type FittedProjector struct {
	Source ParamSource
}

func (FittedProjector) Mode() Mode { return ModeFitted }

func (f FittedProjector) Project(req Request) Result {
	if req.Kind == KindNone {
		return Result{Points: []series.Point{}}
	}
	return ProjectFromFitted(f.Source, req.SeriesID, req.MonthsAhead)
}

// modes is the registry of available projection strategies.
var modes = map[Mode]func(ParamSource) Projector{
	ModeLive:   func(ParamSource) Projector { return LiveProjector{} },
	ModeFitted: func(src ParamSource) Projector { return FittedProjector{Source: src} },
}

// ParseMode maps a mode name to a Mode; empty selects live projection.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return ModeLive, nil
	}
	if _, ok := modes[m]; !ok {
		return "", fmt.Errorf("unknown projection mode %q", s)
	}
	return m, nil
}

// NewProjector builds the projector for mode. src is only used by fitted replay.
func NewProjector(mode Mode, src ParamSource) (Projector, error) {
	build, ok := modes[mode]
	if !ok {
		return nil, fmt.Errorf("unknown projection mode %q", mode)
	}
	return build(src), nil
}
