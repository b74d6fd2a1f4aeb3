package stringing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxPanelsPerString(t *testing.T) {
	tests := []struct {
		name  string
		maxDC float64
		voc   float64
		want  int
	}{
		{"typical 1000V inverter", 1000, 49.5, 18},
		{"600V inverter", 600, 49.5, 10},
		{"module voltage above limit floors to one", 40, 49.5, 1},
		{"zero voc", 1000, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaxPanelsPerString(tt.maxDC, tt.voc))
		})
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		max       int
		mppt      int
		want      Layout
		wantFound bool
	}{
		{"even split", 18, 18, 2, Layout{PanelsPerString: 9, StringCount: 2, TotalPanelsUsed: 18}, true},
		{"six inputs", 18, 18, 6, Layout{PanelsPerString: 3, StringCount: 6, TotalPanelsUsed: 18}, true},
		{"uneven split drops remainder", 19, 18, 2, Layout{PanelsPerString: 9, StringCount: 2, TotalPanelsUsed: 18}, true},
		{"single input at cap", 18, 18, 1, Layout{PanelsPerString: 18, StringCount: 1, TotalPanelsUsed: 18}, true},
		{"fewer panels than inputs", 2, 18, 6, Layout{PanelsPerString: 1, StringCount: 2, TotalPanelsUsed: 2}, true},
		{"one string per panel below input count", 2, 10, 6, Layout{PanelsPerString: 1, StringCount: 2, TotalPanelsUsed: 2}, true},
		{"over-volted single input", 50, 18, 1, Layout{}, false},
		{"zero panels", 0, 18, 2, Layout{}, false},
		{"negative panels", -4, 18, 2, Layout{}, false},
		{"zero mppt", 18, 18, 0, Layout{}, false},
		{"zero cap", 18, 0, 2, Layout{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Compute(tt.total, tt.max, tt.mppt)
			require.Equal(t, tt.wantFound, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompute_Invariants(t *testing.T) {
	for total := 1; total <= 60; total++ {
		for mppt := 1; mppt <= 6; mppt++ {
			for max := 1; max <= 24; max++ {
				layout, ok := Compute(total, max, mppt)
				again, okAgain := Compute(total, max, mppt)
				require.Equal(t, ok, okAgain)
				require.Equal(t, layout, again)
				if !ok {
					continue
				}
				assert.Equal(t, layout.TotalPanelsUsed, layout.PanelsPerString*layout.StringCount)
				assert.LessOrEqual(t, layout.PanelsPerString, max)
				assert.LessOrEqual(t, layout.StringCount, mppt)
				assert.LessOrEqual(t, layout.TotalPanelsUsed, total)
			}
		}
	}
}

func TestDiagnose(t *testing.T) {
	assert.NoError(t, Diagnose(18, 18, 2))
	assert.ErrorIs(t, Diagnose(50, 18, 1), ErrStringCountExceedsMPPT)
	assert.ErrorIs(t, Diagnose(0, 18, 1), ErrNoValidStringing)
	assert.ErrorIs(t, Diagnose(18, 18, 0), ErrNoValidStringing)
}

func TestRequiredStrings(t *testing.T) {
	assert.Equal(t, 3, RequiredStrings(50, 18))
	assert.Equal(t, 1, RequiredStrings(18, 18))
	assert.Equal(t, 0, RequiredStrings(18, 0))
}
