package recommend

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pv-configurator/internal/equipment"
	"pv-configurator/internal/validation"
)

type memCatalog struct {
	modules   []equipment.PVModule
	inverters []equipment.Inverter
	batteries []equipment.Battery
	projects  map[uuid.UUID]equipment.Project
}

func (c *memCatalog) ReadyPVModules(context.Context) ([]equipment.PVModule, error) {
	return c.modules, nil
}

func (c *memCatalog) ReadyInverters(context.Context) ([]equipment.Inverter, error) {
	return c.inverters, nil
}

func (c *memCatalog) ReadyBatteries(context.Context) ([]equipment.Battery, error) {
	return c.batteries, nil
}

func (c *memCatalog) PVModule(_ context.Context, id uuid.UUID) (*equipment.PVModule, error) {
	for _, m := range c.modules {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("pv module %s: %w", id, equipment.ErrNotFound)
}

func (c *memCatalog) Inverter(_ context.Context, id uuid.UUID) (*equipment.Inverter, error) {
	for _, inv := range c.inverters {
		if inv.ID == id {
			return &inv, nil
		}
	}
	return nil, fmt.Errorf("inverter %s: %w", id, equipment.ErrNotFound)
}

func (c *memCatalog) Battery(_ context.Context, id uuid.UUID) (*equipment.Battery, error) {
	for _, b := range c.batteries {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, fmt.Errorf("battery %s: %w", id, equipment.ErrNotFound)
}

func (c *memCatalog) Project(_ context.Context, id uuid.UUID) (*equipment.Project, error) {
	p, ok := c.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, equipment.ErrNotFound)
	}
	return &p, nil
}

func ptr[T any](v T) *T { return &v }

var (
	projectID = uuid.New()
	moduleID  = uuid.New()

	bigStringID    = uuid.New()
	twoMPPTID      = uuid.New()
	singleMPPTID   = uuid.New()
	hybridID       = uuid.New()
	hvBatteryID    = uuid.New()
	smallBatteryID = uuid.New()
)

func testCatalog() *memCatalog {
	return &memCatalog{
		modules: []equipment.PVModule{{
			ID: moduleID, Model: "M550", PowerW: 550,
			Voc: 49.5, Vmp: 41.7, Isc: 14.0, Imp: 13.2,
			EfficiencyPc: ptr(21.3), LengthMM: ptr(2278.0), WidthMM: ptr(1134.0),
			Ready: true,
		}},
		// Catalog order: rated power descending.
		inverters: []equipment.Inverter{
			{ID: bigStringID, Model: "S15K", Type: equipment.InverterString, PowerW: 15000, MaxDCVoltage: 1000, MPPTCount: 6, Phases: 3, Ready: true},
			{ID: hybridID, Model: "H10K", Type: equipment.InverterHybrid, PowerW: 10000, MaxDCVoltage: 1000, MPPTCount: 2, Phases: 3,
				BatteryMinVoltage: 150, BatteryMaxVoltage: 600, BatteryNominalVoltage: 400, Ready: true},
			{ID: twoMPPTID, Model: "S10K", Type: equipment.InverterString, PowerW: 10000, MaxDCVoltage: 1000, MPPTCount: 2, Phases: 3, Ready: true},
			{ID: singleMPPTID, Model: "S8K", Type: equipment.InverterString, PowerW: 8000, MaxDCVoltage: 1000, MPPTCount: 1, Phases: 3, Ready: true},
		},
		batteries: []equipment.Battery{
			{ID: hvBatteryID, Model: "HV10", NominalVoltage: 400, CapacityKWh: 10, DepthOfDischarge: 90, Ready: true},
			{ID: smallBatteryID, Model: "LV5", NominalVoltage: 48, CapacityKWh: 5, DepthOfDischarge: 80, Ready: true},
		},
		projects: map[uuid.UUID]equipment.Project{
			projectID: {ID: projectID, MonthlyEnergyKWh: 1200, StorageTargetKWh: 10, RoofAreaM2: 60, Phases: 3},
		},
	}
}

func newTestRanker(c *memCatalog) *Ranker {
	return NewRanker(c, c)
}

func assertRankOrder[T any](t *testing.T, items []T, rank func(T) validation.Rank) {
	t.Helper()
	for i := 1; i < len(items); i++ {
		assert.LessOrEqual(t, rank(items[i-1]).Severity(), rank(items[i]).Severity(),
			"item %d (%s) sorted after item %d (%s)", i-1, rank(items[i-1]), i, rank(items[i]))
	}
}

func inverterModels(items []RankedInverter) []string {
	var out []string
	for _, r := range items {
		out = append(out, r.Inverter.Model)
	}
	return out
}

func TestRankInverters_ValidStringInstall(t *testing.T) {
	r := newTestRanker(testCatalog())

	ranked, err := r.RankInverters(context.Background(), InverterQuery{
		ProjectID: projectID, PVModuleID: moduleID, PanelCount: 18,
	})
	require.NoError(t, err)
	require.Len(t, ranked, 4)

	assert.Equal(t, validation.RankPass, ranked[0].Rank)
	assertRankOrder(t, ranked, func(r RankedInverter) validation.Rank { return r.Rank })
	// PASS candidates keep catalog order; the six-input inverter splits 18
	// panels into 3-panel strings that fall below the MPPT window.
	assert.Equal(t, []string{"H10K", "S10K", "S8K", "S15K"}, inverterModels(ranked))

	last := ranked[3]
	assert.Equal(t, validation.RankBlock, last.Rank)
	require.NotNil(t, last.Layout)
	assert.Equal(t, 3, last.Layout.PanelsPerString)
	assert.Equal(t, 6, last.Layout.StringCount)

	first := ranked[0]
	require.NotNil(t, first.Layout)
	assert.Equal(t, 18, first.Layout.TotalPanelsUsed)
	assert.Equal(t, 18, first.MaxPanelsPerString)
	assert.InDelta(t, 0.99, first.DCACRatio, 1e-9)
}

func TestRankInverters_OversizedString(t *testing.T) {
	c := testCatalog()
	c.inverters = []equipment.Inverter{
		{ID: singleMPPTID, Model: "S8K", Type: equipment.InverterString, PowerW: 8000, MaxDCVoltage: 1000, MPPTCount: 1, Ready: true},
	}
	r := newTestRanker(c)

	ranked, err := r.RankInverters(context.Background(), InverterQuery{
		ProjectID: projectID, PVModuleID: moduleID, PanelCount: 50,
	})
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, validation.RankBlock, ranked[0].Rank)
	assert.Nil(t, ranked[0].Layout)
	require.Len(t, ranked[0].Reasons, 1)
	assert.Equal(t, validation.CheckStringing, ranked[0].Reasons[0].Check)
	assert.Contains(t, ranked[0].Messages()[0], "String count")
}

func TestRankInverters_BatteryRequiresHybrid(t *testing.T) {
	r := newTestRanker(testCatalog())

	ranked, err := r.RankInverters(context.Background(), InverterQuery{
		ProjectID: projectID, PVModuleID: moduleID, PanelCount: 18, BatteryID: &hvBatteryID,
	})
	require.NoError(t, err)
	assertRankOrder(t, ranked, func(r RankedInverter) validation.Rank { return r.Rank })

	for _, item := range ranked {
		if item.Inverter.Type == equipment.InverterHybrid {
			assert.Equal(t, validation.RankPass, item.Rank, "reasons: %v", item.Messages())
			continue
		}
		assert.Equal(t, validation.RankBlock, item.Rank)
		assert.True(t, containsText(item.Messages(), "HYBRID"), "reasons: %v", item.Messages())
	}
	assert.Equal(t, "H10K", ranked[0].Inverter.Model)
}

func TestRankInverters_MissingReferences(t *testing.T) {
	r := newTestRanker(testCatalog())
	ctx := context.Background()

	_, err := r.RankInverters(ctx, InverterQuery{ProjectID: uuid.New(), PVModuleID: moduleID, PanelCount: 18})
	assert.ErrorIs(t, err, equipment.ErrNotFound)

	_, err = r.RankInverters(ctx, InverterQuery{ProjectID: projectID, PVModuleID: uuid.New(), PanelCount: 18})
	assert.ErrorIs(t, err, equipment.ErrNotFound)

	missing := uuid.New()
	_, err = r.RankInverters(ctx, InverterQuery{ProjectID: projectID, PVModuleID: moduleID, PanelCount: 18, BatteryID: &missing})
	assert.ErrorIs(t, err, equipment.ErrNotFound)
}

func TestRankInverters_ConcurrentCallsAgree(t *testing.T) {
	r := newTestRanker(testCatalog())
	q := InverterQuery{ProjectID: projectID, PVModuleID: moduleID, PanelCount: 18}
	want, err := r.RankInverters(context.Background(), q)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.RankInverters(context.Background(), q)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestEvaluateBattery(t *testing.T) {
	tests := []struct {
		name    string
		battery equipment.Battery
		target  float64
		want    validation.Rank
		text    string
	}{
		{"covers target", equipment.Battery{CapacityKWh: 12.5, DepthOfDischarge: 80}, 10, validation.RankPass, ""},
		{"exactly 80 percent", equipment.Battery{CapacityKWh: 10, DepthOfDischarge: 80}, 10, validation.RankPass, ""},
		{"under 80 percent", equipment.Battery{CapacityKWh: 9, DepthOfDischarge: 80}, 10, validation.RankWarning, "80%"},
		{"under half", equipment.Battery{CapacityKWh: 5, DepthOfDischarge: 80}, 10, validation.RankBlock, "half"},
		{"no storage needed", equipment.Battery{CapacityKWh: 100, DepthOfDischarge: 100}, 0, validation.RankBlock, "No storage needed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateBattery(tt.battery, tt.target)
			assert.Equal(t, tt.want, got.Rank)
			if tt.text != "" {
				require.Len(t, got.Reasons, 1)
				assert.Contains(t, got.Reasons[0].Message, tt.text)
			} else {
				assert.Empty(t, got.Reasons)
			}
		})
	}
}

func TestRankBatteries_SortsAndKeepsCatalogOrder(t *testing.T) {
	c := testCatalog()
	// Capacity descending, ranks deliberately out of order.
	c.batteries = []equipment.Battery{
		{Model: "B12", CapacityKWh: 12, DepthOfDischarge: 40},  // 4.8 kWh -> BLOCK
		{Model: "B10", CapacityKWh: 10, DepthOfDischarge: 80},  // 8.0 kWh -> PASS
		{Model: "B9", CapacityKWh: 9, DepthOfDischarge: 80},    // 7.2 kWh -> WARNING
		{Model: "B6", CapacityKWh: 6, DepthOfDischarge: 100},   // 6.0 kWh -> WARNING
	}
	r := newTestRanker(c)

	ranked, err := r.RankBatteries(context.Background(), projectID)
	require.NoError(t, err)

	var models []string
	for _, b := range ranked {
		models = append(models, b.Battery.Model)
	}
	assert.Equal(t, []string{"B10", "B9", "B6", "B12"}, models)
	assertRankOrder(t, ranked, func(r RankedBattery) validation.Rank { return r.Rank })
	assert.Equal(t, 8.0, ranked[0].UsableCapacityKWh)
}

func TestRankBatteries_ZeroStorageBlocksAll(t *testing.T) {
	c := testCatalog()
	p := c.projects[projectID]
	p.StorageTargetKWh = 0
	c.projects[projectID] = p
	r := newTestRanker(c)

	ranked, err := r.RankBatteries(context.Background(), projectID)
	require.NoError(t, err)
	require.NotEmpty(t, ranked)
	for _, b := range ranked {
		assert.Equal(t, validation.RankBlock, b.Rank)
		assert.Contains(t, b.Reasons[0].Message, "No storage needed")
	}
}

func TestSuggestPanelCount(t *testing.T) {
	module := equipment.PVModule{PowerW: 500, LengthMM: ptr(2000.0), WidthMM: ptr(1000.0)}

	tests := []struct {
		name        string
		project     equipment.Project
		module      equipment.PVModule
		want        int
		roofLimited bool
	}{
		// 600 kWh / 30 / 4 = 5 kW -> 10 x 500 W.
		{"sized by consumption", equipment.Project{MonthlyEnergyKWh: 600, RoofAreaM2: 100}, module, 10, false},
		// 80% of 10 m2 fits four 2 m2 modules.
		{"capped by roof", equipment.Project{MonthlyEnergyKWh: 600, RoofAreaM2: 10}, module, 4, true},
		{"unknown roof", equipment.Project{MonthlyEnergyKWh: 600}, module, 10, false},
		{"unknown dimensions", equipment.Project{MonthlyEnergyKWh: 600, RoofAreaM2: 1}, equipment.PVModule{PowerW: 500}, 10, false},
		{"rounds up", equipment.Project{MonthlyEnergyKWh: 610}, module, 11, false},
		{"no consumption", equipment.Project{RoofAreaM2: 100}, module, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, limited := SuggestPanelCount(tt.project, tt.module)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.roofLimited, limited)
		})
	}
}

func TestRankPVModules_OrdersByEfficiencyThenPower(t *testing.T) {
	c := testCatalog()
	c.modules = []equipment.PVModule{
		{Model: "A", PowerW: 400, EfficiencyPc: ptr(20.0)},
		{Model: "B", PowerW: 450, EfficiencyPc: ptr(22.0)},
		{Model: "C", PowerW: 500, EfficiencyPc: ptr(20.0)},
		{Model: "D", PowerW: 600},
	}
	r := newTestRanker(c)

	ranked, err := r.RankPVModules(context.Background(), projectID)
	require.NoError(t, err)

	var models []string
	for _, m := range ranked {
		models = append(models, m.Module.Model)
	}
	assert.Equal(t, []string{"B", "C", "A", "D"}, models)

	// 1200 kWh / 30 / 4 = 10 kW -> 20 x 500 W.
	assert.Equal(t, 20, ranked[1].SuggestedPanelCount)
	assert.InDelta(t, 10.0, ranked[1].SystemSizeKWp, 1e-9)
}

func containsText(messages []string, text string) bool {
	for _, m := range messages {
		if strings.Contains(m, text) {
			return true
		}
	}
	return false
}
