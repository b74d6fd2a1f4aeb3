// Package recommend ranks catalog equipment for a project. Rankers only read
// the catalog and project context and are safe for concurrent use.
package recommend

import (
	"context"

	"github.com/google/uuid"

	"pv-configurator/internal/equipment"
)

// Catalog is the read-only view of equipment that passed the ready gate.
// List methods return items in catalog order: inverters by rated power
// descending, batteries by capacity descending.
type Catalog interface {
	ReadyPVModules(ctx context.Context) ([]equipment.PVModule, error)
	ReadyInverters(ctx context.Context) ([]equipment.Inverter, error)
	ReadyBatteries(ctx context.Context) ([]equipment.Battery, error)

	PVModule(ctx context.Context, id uuid.UUID) (*equipment.PVModule, error)
	Inverter(ctx context.Context, id uuid.UUID) (*equipment.Inverter, error)
	Battery(ctx context.Context, id uuid.UUID) (*equipment.Battery, error)
}

type Projects interface {
	Project(ctx context.Context, id uuid.UUID) (*equipment.Project, error)
}

type Ranker struct {
	catalog  Catalog
	projects Projects
}

func NewRanker(catalog Catalog, projects Projects) *Ranker {
	return &Ranker{
		catalog:  catalog,
		projects: projects,
	}
}
