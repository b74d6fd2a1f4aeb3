package recommend

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"pv-configurator/internal/equipment"
	"pv-configurator/internal/validation"
)

// Usable capacity thresholds relative to the storage target.
const (
	batteryBlockShare = 0.5
	batteryWarnShare  = 0.8
)

type RankedBattery struct {
	Battery           equipment.Battery   `json:"battery"`
	UsableCapacityKWh float64             `json:"usable_capacity_kwh"`
	Rank              validation.Rank     `json:"rank"`
	Reasons           []validation.Reason `json:"reasons"`
}

// EvaluateBattery grades a battery's usable capacity against the storage target.
func EvaluateBattery(b equipment.Battery, storageTargetKWh float64) RankedBattery {
	usable := b.UsableCapacityKWh()
	out := validation.Pass()

	switch {
	case storageTargetKWh <= 0:
		out.Add(validation.CheckStorageTarget, validation.RankBlock, "No storage needed for this project")
	case usable < storageTargetKWh*batteryBlockShare:
		out.Add(validation.CheckStorageTarget, validation.RankBlock,
			"Usable capacity (%.1f kWh) is less than half of the storage target (%.1f kWh)",
			usable, storageTargetKWh)
	case usable < storageTargetKWh*batteryWarnShare:
		out.Add(validation.CheckStorageTarget, validation.RankWarning,
			"Usable capacity (%.1f kWh) covers less than 80%% of the storage target (%.1f kWh)",
			usable, storageTargetKWh)
	}

	return RankedBattery{
		Battery:           b,
		UsableCapacityKWh: usable,
		Rank:              out.Rank,
		Reasons:           out.Reasons,
	}
}

// RankBatteries grades every ready battery against the project's storage
// target, ordered PASS, WARNING, BLOCK with ties in catalog order.
func (r *Ranker) RankBatteries(ctx context.Context, projectID uuid.UUID) ([]RankedBattery, error) {
	project, err := r.projects.Project(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	batteries, err := r.catalog.ReadyBatteries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list batteries: %w", err)
	}

	ranked := make([]RankedBattery, 0, len(batteries))
	for _, b := range batteries {
		ranked = append(ranked, EvaluateBattery(b, project.StorageTargetKWh))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Rank.Severity() < ranked[j].Rank.Severity()
	})
	return ranked, nil
}
