// internal/projection/projector_test.go
package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeLive, false},
		{"live", ModeLive, false},
		{" Fitted ", ModeFitted, false},
		{"FITTED", ModeFitted, false},
		{"offline", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"", KindLogistic},
		{"s-curve", KindLogistic},
		{"logistic", KindLogistic},
		{"exponential", KindExponential},
		{"none", KindNone},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseKind("quadratic")
	assert.Error(t, err)
}

func TestNewProjector(t *testing.T) {
	live, err := NewProjector(ModeLive, nil)
	require.NoError(t, err)
	assert.Equal(t, ModeLive, live.Mode())

	fitted, err := NewProjector(ModeFitted, FittedTable{})
	require.NoError(t, err)
	assert.Equal(t, ModeFitted, fitted.Mode())

	_, err = NewProjector("sideways", nil)
	assert.Error(t, err)
}

func TestLiveProjector_MatchesProject(t *testing.T) {
	samples := yearly(10, 20, 35, 55)
	req := Request{SeriesID: "ignored", Samples: samples, Kind: KindLogistic, MonthsAhead: 6, Ceiling: 100}

	got := LiveProjector{}.Project(req)

	assert.Equal(t, Project(samples, KindLogistic, 6, 100), got)
	requireConfidence(t, got)
}

func TestFittedProjector(t *testing.T) {
	table := FittedTable{
		"cybench": logisticParams(0.01, 0, 1, 0.5, "2024-06-01", "2023-01-01"),
	}
	p := FittedProjector{Source: table}

	t.Run("replays by id and ignores samples", func(t *testing.T) {
		got := p.Project(Request{SeriesID: "cybench", Samples: yearly(1, 2, 3), Kind: KindLogistic, MonthsAhead: 12})
		assert.Equal(t, ProjectFromFitted(table, "cybench", 12), got)
		assert.Len(t, got.Points, 13)
	})

	t.Run("none kind suppresses replay", func(t *testing.T) {
		got := p.Project(Request{SeriesID: "cybench", Kind: KindNone, MonthsAhead: 12})
		assert.Empty(t, got.Points)
		assert.Nil(t, got.Confidence)
	})

	t.Run("unknown id", func(t *testing.T) {
		got := p.Project(Request{SeriesID: "nope", Kind: KindLogistic, MonthsAhead: 12})
		assert.Empty(t, got.Points)
	})
}
