package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pv-configurator/internal/equipment"
	"pv-configurator/internal/stringing"
	"pv-configurator/internal/validation"
)

// RankedInverter is one inverter candidate with its stringing and verdict.
// Layout is nil when no stringing exists for the requested panel count.
type RankedInverter struct {
	Inverter           equipment.Inverter  `json:"inverter"`
	Units              int                 `json:"units"`
	MaxPanelsPerString int                 `json:"max_panels_per_string"`
	Layout             *stringing.Layout   `json:"layout,omitempty"`
	DCACRatio          float64             `json:"dc_ac_ratio,omitempty"`
	Rank               validation.Rank     `json:"rank"`
	Reasons            []validation.Reason `json:"reasons"`
}

// Messages returns the human readable reasons.
func (r RankedInverter) Messages() []string {
	return validation.Outcome{Rank: r.Rank, Reasons: r.Reasons}.Messages()
}

// InverterQuery selects the array an inverter has to serve.
type InverterQuery struct {
	ProjectID  uuid.UUID
	PVModuleID uuid.UUID
	PanelCount int
	BatteryID  *uuid.UUID
}

// EvaluateInverter runs stringing and every compatibility check for a single
// inverter running units parallel units.
func EvaluateInverter(module equipment.PVModule, inverter equipment.Inverter, units, panelCount int,
	battery *equipment.Battery, projectPhases int) RankedInverter {
	if units < 1 {
		units = 1
	}
	layout, outcome := validation.Evaluate(module, inverter, units, panelCount, battery, projectPhases)

	ranked := RankedInverter{
		Inverter:           inverter,
		Units:              units,
		MaxPanelsPerString: stringing.MaxPanelsPerString(inverter.MaxDCVoltage, module.Voc),
		Rank:               outcome.Rank,
		Reasons:            outcome.Reasons,
	}
	if layout.TotalPanelsUsed > 0 {
		ranked.Layout = &layout
		in := validation.Input{Module: module, Inverter: inverter, InverterUnits: units, Layout: layout}
		ranked.DCACRatio, _ = in.DCACRatio()
	}
	return ranked
}

// RankInverters evaluates every ready inverter against the selected module,
// panel count and optional battery. The result is ordered PASS, WARNING,
// BLOCK; ties keep catalog order.
func (r *Ranker) RankInverters(ctx context.Context, q InverterQuery) ([]RankedInverter, error) {
	var (
		project   *equipment.Project
		module    *equipment.PVModule
		battery   *equipment.Battery
		inverters []equipment.Inverter
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		project, err = r.projects.Project(gctx, q.ProjectID)
		if err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		module, err = r.catalog.PVModule(gctx, q.PVModuleID)
		if err != nil {
			return fmt.Errorf("failed to load PV module: %w", err)
		}
		return nil
	})
	if q.BatteryID != nil {
		g.Go(func() (err error) {
			battery, err = r.catalog.Battery(gctx, *q.BatteryID)
			if err != nil {
				return fmt.Errorf("failed to load battery: %w", err)
			}
			return nil
		})
	}
	g.Go(func() (err error) {
		inverters, err = r.catalog.ReadyInverters(gctx)
		if err != nil {
			return fmt.Errorf("failed to list inverters: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranked := make([]RankedInverter, 0, len(inverters))
	for _, inv := range inverters {
		ranked = append(ranked, EvaluateInverter(*module, inv, 1, q.PanelCount, battery, project.Phases))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Rank.Severity() < ranked[j].Rank.Severity()
	})

	slog.Debug("Ranked inverters", "project", q.ProjectID, "candidates", len(ranked), "panels", q.PanelCount)
	return ranked, nil
}
