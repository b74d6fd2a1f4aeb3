package equipment

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by catalog and project lookups for unknown or
// not-ready ids.
var ErrNotFound = errors.New("not found")

// Kind is the closed set of catalog equipment types.
type Kind string

const (
	KindPVModule  Kind = "pv_module"
	KindInverter  Kind = "inverter"
	KindBattery   Kind = "battery"
	KindAccessory Kind = "accessory"
)

type InverterType string

const (
	InverterString InverterType = "STRING"
	InverterHybrid InverterType = "HYBRID"
	InverterMicro  InverterType = "MICRO"
)

// DefaultDepthOfDischarge applies to batteries that do not declare one.
const DefaultDepthOfDischarge = 80.0

// PVModule holds the electrical profile of a solar panel at STC.
type PVModule struct {
	ID           uuid.UUID       `json:"id"`
	Brand        string          `json:"brand"`
	Model        string          `json:"model"`
	PowerW       float64         `json:"power_w"`
	Voc          float64         `json:"voc_v"`
	Vmp          float64         `json:"vmp_v"`
	Isc          float64         `json:"isc_a"`
	Imp          float64         `json:"imp_a"`
	EfficiencyPc *float64        `json:"efficiency_pct,omitempty"`
	LengthMM     *float64        `json:"length_mm,omitempty"`
	WidthMM      *float64        `json:"width_mm,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Ready        bool            `json:"ready"`
}

// FootprintM2 estimates the panel area, ok is false when dimensions are missing.
func (m PVModule) FootprintM2() (area float64, ok bool) {
	if m.LengthMM == nil || m.WidthMM == nil || *m.LengthMM <= 0 || *m.WidthMM <= 0 {
		return 0, false
	}
	return (*m.LengthMM / 1000) * (*m.WidthMM / 1000), true
}

func (m PVModule) Efficiency() float64 {
	if m.EfficiencyPc == nil {
		return 0
	}
	return *m.EfficiencyPc
}

type Inverter struct {
	ID               uuid.UUID       `json:"id"`
	Brand            string          `json:"brand"`
	Model            string          `json:"model"`
	Type             InverterType    `json:"type"`
	PowerW           float64         `json:"power_w"`
	MaxDCVoltage     float64         `json:"max_dc_voltage_v"`
	MPPTCount        int             `json:"mppt_count"`
	Phases           int             `json:"phases,omitempty"`
	Parallelable     bool            `json:"parallelable"`
	MaxParallelUnits int             `json:"max_parallel_units,omitempty"`
	Price            decimal.Decimal `json:"price"`
	Ready            bool            `json:"ready"`

	// Only meaningful for HYBRID inverters.
	BatteryNominalVoltage float64 `json:"battery_nominal_voltage_v,omitempty"`
	BatteryMinVoltage     float64 `json:"battery_min_voltage_v,omitempty"`
	BatteryMaxVoltage     float64 `json:"battery_max_voltage_v,omitempty"`
	MaxChargeCurrent      float64 `json:"max_charge_current_a,omitempty"`
}

// BatteryVoltageBand returns the accepted battery voltage range. A missing
// bound falls back to the nominal voltage; a bound still zero after that is
// open. ok is false when the inverter declares no battery voltage at all.
func (i Inverter) BatteryVoltageBand() (low, high float64, ok bool) {
	low, high = i.BatteryMinVoltage, i.BatteryMaxVoltage
	if low <= 0 {
		low = i.BatteryNominalVoltage
	}
	if high <= 0 {
		high = i.BatteryNominalVoltage
	}
	return low, high, low > 0 || high > 0
}

type Battery struct {
	ID               uuid.UUID       `json:"id"`
	Brand            string          `json:"brand"`
	Model            string          `json:"model"`
	NominalVoltage   float64         `json:"nominal_voltage_v"`
	CapacityKWh      float64         `json:"capacity_kwh"`
	DepthOfDischarge float64         `json:"depth_of_discharge_pct"`
	CycleLife        *int            `json:"cycle_life,omitempty"`
	Price            decimal.Decimal `json:"price"`
	Ready            bool            `json:"ready"`
}

// UsableCapacityKWh is capacity scaled by depth of discharge.
func (b Battery) UsableCapacityKWh() float64 {
	dod := b.DepthOfDischarge
	if dod <= 0 {
		dod = DefaultDepthOfDischarge
	}
	return b.CapacityKWh * dod / 100
}

type Accessory struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Ready bool            `json:"ready"`
}

// AccessoryLine is a selected accessory on a configuration. It is stored
// as given and never evaluated.
type AccessoryLine struct {
	AccessoryID uuid.UUID `json:"accessory_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"min=1"`
}

// Project is the site context the rankers read.
type Project struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	MonthlyEnergyKWh float64   `json:"monthly_energy_kwh"`
	StorageTargetKWh float64   `json:"storage_target_kwh"`
	RoofAreaM2       float64   `json:"roof_area_m2"`
	Phases           int       `json:"phases,omitempty"`
}
