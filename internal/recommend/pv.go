package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"pv-configurator/internal/equipment"
)

const (
	DaysPerMonth    = 30.0
	PeakSunHours    = 4.0
	MaxRoofCoverage = 0.8
)

// RankedPVModule is a module annotated with the panel count it would take
// to cover the project's consumption.
type RankedPVModule struct {
	Module              equipment.PVModule `json:"module"`
	SuggestedPanelCount int                `json:"suggested_panel_count"`
	SystemSizeKWp       float64            `json:"system_size_kwp"`
	RoofLimited         bool               `json:"roof_limited"`
}

// TargetSystemKW is the array size that covers monthly consumption.
func TargetSystemKW(monthlyEnergyKWh float64) float64 {
	if monthlyEnergyKWh <= 0 {
		return 0
	}
	return monthlyEnergyKWh / DaysPerMonth / PeakSunHours
}

// SuggestPanelCount sizes the array for module m. The count is capped so
// the modules cover at most 80% of the roof; the cap is skipped when the
// roof area or the module dimensions are unknown.
func SuggestPanelCount(p equipment.Project, m equipment.PVModule) (count int, roofLimited bool) {
	kw := TargetSystemKW(p.MonthlyEnergyKWh)
	if kw <= 0 || m.PowerW <= 0 {
		return 0, false
	}
	count = int(math.Ceil(kw * 1000 / m.PowerW))

	footprint, ok := m.FootprintM2()
	if !ok || p.RoofAreaM2 <= 0 {
		return count, false
	}
	maxPanels := int(math.Floor(p.RoofAreaM2 * MaxRoofCoverage / footprint))
	if count > maxPanels {
		return maxPanels, true
	}
	return count, false
}

// RankPVModules orders ready modules by efficiency, then rated power, both
// descending. Modules are not rank-classified.
func (r *Ranker) RankPVModules(ctx context.Context, projectID uuid.UUID) ([]RankedPVModule, error) {
	project, err := r.projects.Project(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	modules, err := r.catalog.ReadyPVModules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list PV modules: %w", err)
	}

	ranked := make([]RankedPVModule, 0, len(modules))
	for _, m := range modules {
		count, limited := SuggestPanelCount(*project, m)
		ranked = append(ranked, RankedPVModule{
			Module:              m,
			SuggestedPanelCount: count,
			SystemSizeKWp:       float64(count) * m.PowerW / 1000,
			RoofLimited:         limited,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Module, ranked[j].Module
		if a.Efficiency() != b.Efficiency() {
			return a.Efficiency() > b.Efficiency()
		}
		return a.PowerW > b.PowerW
	})
	return ranked, nil
}
