// Package sysconfig owns the persisted equipment configuration of a project.
// Every mutation re-derives the stringing layout and the validation verdict
// from scratch and replaces the stored record in a single upsert.
package sysconfig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"pv-configurator/internal/equipment"
	"pv-configurator/internal/recommend"
	"pv-configurator/internal/stringing"
)

var validate = validator.New()

// Store persists configurations keyed by project id. UpsertConfiguration
// must replace the project's record atomically.
type Store interface {
	UpsertConfiguration(ctx context.Context, c *Configuration) (*Configuration, error)
	Configuration(ctx context.Context, projectID uuid.UUID) (*Configuration, error)
}

// Notifier is told about every stored configuration.
type Notifier interface {
	ConfigurationChanged(c *Configuration) error
}

type Engine struct {
	catalog  recommend.Catalog
	projects recommend.Projects
	store    Store
	notifier Notifier
}

type EngineConfig struct {
	Catalog  recommend.Catalog
	Projects recommend.Projects
	Store    Store
	Notifier Notifier
}

func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{
		catalog:  cfg.Catalog,
		projects: cfg.Projects,
		store:    cfg.Store,
		notifier: cfg.Notifier,
	}
}

// Configure validates the selection, derives its stringing and verdict and
// stores the result as the project's configuration. A BLOCK verdict is
// stored like any other; only request errors and infeasible stringing fail.
func (e *Engine) Configure(ctx context.Context, req ConfigureRequest) (*Configuration, error) {
	req.normalize()
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	project, err := e.projects.Project(ctx, req.ProjectID)
	if err != nil {
		return nil, lookupError(err, ErrProjectNotFound, req.ProjectID)
	}
	module, err := e.catalog.PVModule(ctx, req.PVModuleID)
	if err != nil {
		return nil, lookupError(err, ErrPVModuleNotFound, req.PVModuleID)
	}
	inverter, err := e.catalog.Inverter(ctx, req.InverterID)
	if err != nil {
		return nil, lookupError(err, ErrInverterNotFound, req.InverterID)
	}
	var battery *equipment.Battery
	if req.BatteryID != nil {
		battery, err = e.catalog.Battery(ctx, *req.BatteryID)
		if err != nil {
			return nil, lookupError(err, ErrBatteryNotFound, *req.BatteryID)
		}
	}

	if err := checkParallelUnits(inverter, req.InverterCount); err != nil {
		return nil, err
	}

	maxPerString := stringing.MaxPanelsPerString(inverter.MaxDCVoltage, module.Voc)
	mpptInputs := inverter.MPPTCount * req.InverterCount
	if _, ok := stringing.Compute(req.PanelCount, maxPerString, mpptInputs); !ok {
		return nil, fmt.Errorf("%w for %d panels on %s: %w", ErrInfeasibleStringing, req.PanelCount,
			inverter.Model, stringing.Diagnose(req.PanelCount, maxPerString, mpptInputs))
	}

	ranked := recommend.EvaluateInverter(*module, *inverter, req.InverterCount, req.PanelCount, battery, project.Phases)

	cfg := &Configuration{
		ProjectID:          req.ProjectID,
		PVModuleID:         req.PVModuleID,
		PanelCount:         req.PanelCount,
		InverterID:         req.InverterID,
		InverterCount:      req.InverterCount,
		BatteryID:          req.BatteryID,
		BatteryCount:       req.BatteryCount,
		Accessories:        req.Accessories,
		Layout:             *ranked.Layout,
		MaxPanelsPerString: ranked.MaxPanelsPerString,
		DCACRatio:          ranked.DCACRatio,
		ValidationStatus:   ranked.Rank,
		ValidationReasons:  ranked.Reasons,
	}

	saved, err := e.store.UpsertConfiguration(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to save configuration: %w", err)
	}

	slog.Info("Configuration saved",
		"project", saved.ProjectID,
		"status", saved.ValidationStatus,
		"panels", saved.Layout.TotalPanelsUsed,
		"strings", saved.Layout.StringCount)

	if e.notifier != nil {
		if err := e.notifier.ConfigurationChanged(saved); err != nil {
			slog.Warn("Failed to publish configuration change", "project", saved.ProjectID, "error", err)
		}
	}
	return saved, nil
}

// GetConfiguration returns the stored configuration of a project.
func (e *Engine) GetConfiguration(ctx context.Context, projectID uuid.UUID) (*Configuration, error) {
	cfg, err := e.store.Configuration(ctx, projectID)
	if err != nil {
		if errors.Is(err, equipment.ErrNotFound) {
			return nil, fmt.Errorf("%w: project %s", ErrConfigurationNotFound, projectID)
		}
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// CheckQuoteGate returns ErrConfigurationBlocked when the project's
// configuration must not be quoted. PASS and WARNING both pass the gate.
func (e *Engine) CheckQuoteGate(ctx context.Context, projectID uuid.UUID) error {
	cfg, err := e.GetConfiguration(ctx, projectID)
	if err != nil {
		return err
	}
	if cfg.Blocked() {
		return fmt.Errorf("%w: %d issue(s)", ErrConfigurationBlocked, len(cfg.ValidationReasons))
	}
	return nil
}

func (e *Engine) UpdatePanelCount(ctx context.Context, projectID uuid.UUID, panelCount int) (*Configuration, error) {
	return e.adjust(ctx, projectID, func(req *ConfigureRequest) {
		req.PanelCount = panelCount
	})
}

// SwapInverter selects a different inverter model. The unit count resets
// to one because parallel capability differs between models.
func (e *Engine) SwapInverter(ctx context.Context, projectID, inverterID uuid.UUID) (*Configuration, error) {
	return e.adjust(ctx, projectID, func(req *ConfigureRequest) {
		req.InverterID = inverterID
		req.InverterCount = 1
	})
}

func (e *Engine) SetBattery(ctx context.Context, projectID, batteryID uuid.UUID, count int) (*Configuration, error) {
	return e.adjust(ctx, projectID, func(req *ConfigureRequest) {
		req.BatteryID = &batteryID
		req.BatteryCount = count
	})
}

func (e *Engine) RemoveBattery(ctx context.Context, projectID uuid.UUID) (*Configuration, error) {
	return e.adjust(ctx, projectID, func(req *ConfigureRequest) {
		req.BatteryID = nil
		req.BatteryCount = 0
	})
}

// SetParallelUnits changes how many units of the selected inverter run in
// parallel.
func (e *Engine) SetParallelUnits(ctx context.Context, projectID uuid.UUID, count int) (*Configuration, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: inverter count must be at least 1", ErrInvalidRequest)
	}
	return e.adjust(ctx, projectID, func(req *ConfigureRequest) {
		req.InverterCount = count
	})
}

func (e *Engine) SetAccessories(ctx context.Context, projectID uuid.UUID, lines []equipment.AccessoryLine) (*Configuration, error) {
	return e.adjust(ctx, projectID, func(req *ConfigureRequest) {
		req.Accessories = lines
	})
}

func (e *Engine) adjust(ctx context.Context, projectID uuid.UUID, change func(req *ConfigureRequest)) (*Configuration, error) {
	current, err := e.GetConfiguration(ctx, projectID)
	if err != nil {
		return nil, err
	}
	req := current.Request()
	change(&req)
	return e.Configure(ctx, req)
}

func checkParallelUnits(inv *equipment.Inverter, count int) error {
	if count <= 1 {
		return nil
	}
	if !inv.Parallelable {
		return fmt.Errorf("%w: %w: %s", ErrInvalidRequest, ErrNotParallelable, inv.Model)
	}
	if inv.MaxParallelUnits > 0 && count > inv.MaxParallelUnits {
		return fmt.Errorf("%w: %w: requested %d, %s allows %d",
			ErrInvalidRequest, ErrTooManyParallelUnits, count, inv.Model, inv.MaxParallelUnits)
	}
	return nil
}

func lookupError(err, notFound error, id uuid.UUID) error {
	if errors.Is(err, equipment.ErrNotFound) {
		return fmt.Errorf("%w: %w: %s", ErrInvalidRequest, notFound, id)
	}
	return fmt.Errorf("failed to load %s: %w", id, err)
}
