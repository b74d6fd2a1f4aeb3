package sysconfig

import (
	"time"

	"github.com/google/uuid"

	"pv-configurator/internal/equipment"
	"pv-configurator/internal/stringing"
	"pv-configurator/internal/validation"
)

// Configuration is the authoritative equipment selection of a project and
// the verdict last computed for it. There is at most one per project.
type Configuration struct {
	ID                 uuid.UUID                 `json:"id"`
	ProjectID          uuid.UUID                 `json:"project_id"`
	PVModuleID         uuid.UUID                 `json:"pv_module_id"`
	PanelCount         int                       `json:"panel_count"`
	InverterID         uuid.UUID                 `json:"inverter_id"`
	InverterCount      int                       `json:"inverter_count"`
	BatteryID          *uuid.UUID                `json:"battery_id,omitempty"`
	BatteryCount       int                       `json:"battery_count"`
	Accessories        []equipment.AccessoryLine `json:"accessories"`
	Layout             stringing.Layout          `json:"layout"`
	MaxPanelsPerString int                       `json:"max_panels_per_string"`
	DCACRatio          float64                   `json:"dc_ac_ratio"`
	ValidationStatus   validation.Rank           `json:"validation_status"`
	ValidationReasons  []validation.Reason       `json:"validation_reasons"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

// Blocked reports whether commercial actions such as quoting must be refused.
func (c *Configuration) Blocked() bool {
	return c.ValidationStatus == validation.RankBlock
}

// Request rebuilds the request that produced c, the starting point of
// every adjustment.
func (c *Configuration) Request() ConfigureRequest {
	req := ConfigureRequest{
		ProjectID:     c.ProjectID,
		PVModuleID:    c.PVModuleID,
		PanelCount:    c.PanelCount,
		InverterID:    c.InverterID,
		InverterCount: c.InverterCount,
		BatteryCount:  c.BatteryCount,
	}
	if c.BatteryID != nil {
		id := *c.BatteryID
		req.BatteryID = &id
	}
	if len(c.Accessories) > 0 {
		req.Accessories = append([]equipment.AccessoryLine(nil), c.Accessories...)
	}
	return req
}

// ConfigureRequest is the full equipment selection for a project.
type ConfigureRequest struct {
	ProjectID     uuid.UUID                 `json:"project_id" validate:"required"`
	PVModuleID    uuid.UUID                 `json:"pv_module_id" validate:"required"`
	PanelCount    int                       `json:"panel_count" validate:"min=1"`
	InverterID    uuid.UUID                 `json:"inverter_id" validate:"required"`
	InverterCount int                       `json:"inverter_count" validate:"min=0"`
	BatteryID     *uuid.UUID                `json:"battery_id,omitempty"`
	BatteryCount  int                       `json:"battery_count" validate:"min=0"`
	Accessories   []equipment.AccessoryLine `json:"accessories,omitempty" validate:"dive"`
}

// normalize applies the unit-count defaults: one inverter, one battery when
// a battery is selected, none otherwise.
func (r *ConfigureRequest) normalize() {
	if r.InverterCount == 0 {
		r.InverterCount = 1
	}
	switch {
	case r.BatteryID == nil:
		r.BatteryCount = 0
	case r.BatteryCount == 0:
		r.BatteryCount = 1
	}
}
