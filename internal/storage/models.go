package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"pv-configurator/internal/equipment"
	"pv-configurator/internal/stringing"
	"pv-configurator/internal/sysconfig"
	"pv-configurator/internal/validation"
)

type PVModuleRecord struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Brand         string          `gorm:"not null"`
	Model         string          `gorm:"not null"`
	PowerW        float64         `gorm:"not null"`
	Voc           float64         `gorm:"not null"`
	Vmp           float64
	Isc           float64
	Imp           float64
	EfficiencyPct *float64
	LengthMM      *float64
	WidthMM       *float64
	Price         decimal.Decimal `gorm:"type:numeric(12,2)"`
	Ready         bool            `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (PVModuleRecord) TableName() string { return "pv_modules" }

func (r PVModuleRecord) toDomain() equipment.PVModule {
	return equipment.PVModule{
		ID:           r.ID,
		Brand:        r.Brand,
		Model:        r.Model,
		PowerW:       r.PowerW,
		Voc:          r.Voc,
		Vmp:          r.Vmp,
		Isc:          r.Isc,
		Imp:          r.Imp,
		EfficiencyPc: r.EfficiencyPct,
		LengthMM:     r.LengthMM,
		WidthMM:      r.WidthMM,
		Price:        r.Price,
		Ready:        r.Ready,
	}
}

func pvModuleRecord(m equipment.PVModule) PVModuleRecord {
	return PVModuleRecord{
		ID:            m.ID,
		Brand:         m.Brand,
		Model:         m.Model,
		PowerW:        m.PowerW,
		Voc:           m.Voc,
		Vmp:           m.Vmp,
		Isc:           m.Isc,
		Imp:           m.Imp,
		EfficiencyPct: m.EfficiencyPc,
		LengthMM:      m.LengthMM,
		WidthMM:       m.WidthMM,
		Price:         m.Price,
		Ready:         m.Ready,
	}
}

type InverterRecord struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	Brand            string    `gorm:"not null"`
	Model            string    `gorm:"not null"`
	Type             string    `gorm:"size:16;not null"`
	PowerW           float64   `gorm:"not null;index"`
	MaxDCVoltage     float64   `gorm:"column:max_dc_voltage;not null"`
	MPPTCount        int       `gorm:"column:mppt_count;not null"`
	Phases           int
	Parallelable     bool
	MaxParallelUnits int

	// Hybrid battery port
	BatteryNominalVoltage float64
	BatteryMinVoltage     float64
	BatteryMaxVoltage     float64
	MaxChargeCurrent      float64

	Price     decimal.Decimal `gorm:"type:numeric(12,2)"`
	Ready     bool            `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (InverterRecord) TableName() string { return "inverters" }

func (r InverterRecord) toDomain() equipment.Inverter {
	return equipment.Inverter{
		ID:                    r.ID,
		Brand:                 r.Brand,
		Model:                 r.Model,
		Type:                  equipment.InverterType(r.Type),
		PowerW:                r.PowerW,
		MaxDCVoltage:          r.MaxDCVoltage,
		MPPTCount:             r.MPPTCount,
		Phases:                r.Phases,
		Parallelable:          r.Parallelable,
		MaxParallelUnits:      r.MaxParallelUnits,
		Price:                 r.Price,
		Ready:                 r.Ready,
		BatteryNominalVoltage: r.BatteryNominalVoltage,
		BatteryMinVoltage:     r.BatteryMinVoltage,
		BatteryMaxVoltage:     r.BatteryMaxVoltage,
		MaxChargeCurrent:      r.MaxChargeCurrent,
	}
}

func inverterRecord(i equipment.Inverter) InverterRecord {
	return InverterRecord{
		ID:                    i.ID,
		Brand:                 i.Brand,
		Model:                 i.Model,
		Type:                  string(i.Type),
		PowerW:                i.PowerW,
		MaxDCVoltage:          i.MaxDCVoltage,
		MPPTCount:             i.MPPTCount,
		Phases:                i.Phases,
		Parallelable:          i.Parallelable,
		MaxParallelUnits:      i.MaxParallelUnits,
		BatteryNominalVoltage: i.BatteryNominalVoltage,
		BatteryMinVoltage:     i.BatteryMinVoltage,
		BatteryMaxVoltage:     i.BatteryMaxVoltage,
		MaxChargeCurrent:      i.MaxChargeCurrent,
		Price:                 i.Price,
		Ready:                 i.Ready,
	}
}

type BatteryRecord struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Brand            string          `gorm:"not null"`
	Model            string          `gorm:"not null"`
	NominalVoltage   float64         `gorm:"not null"`
	CapacityKWh      float64         `gorm:"column:capacity_kwh;not null;index"`
	DepthOfDischarge float64
	CycleLife        *int
	Price            decimal.Decimal `gorm:"type:numeric(12,2)"`
	Ready            bool            `gorm:"index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (BatteryRecord) TableName() string { return "batteries" }

func (r BatteryRecord) toDomain() equipment.Battery {
	return equipment.Battery{
		ID:               r.ID,
		Brand:            r.Brand,
		Model:            r.Model,
		NominalVoltage:   r.NominalVoltage,
		CapacityKWh:      r.CapacityKWh,
		DepthOfDischarge: r.DepthOfDischarge,
		CycleLife:        r.CycleLife,
		Price:            r.Price,
		Ready:            r.Ready,
	}
}

func batteryRecord(b equipment.Battery) BatteryRecord {
	return BatteryRecord{
		ID:               b.ID,
		Brand:            b.Brand,
		Model:            b.Model,
		NominalVoltage:   b.NominalVoltage,
		CapacityKWh:      b.CapacityKWh,
		DepthOfDischarge: b.DepthOfDischarge,
		CycleLife:        b.CycleLife,
		Price:            b.Price,
		Ready:            b.Ready,
	}
}

type AccessoryRecord struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name      string          `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2)"`
	Ready     bool            `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (AccessoryRecord) TableName() string { return "accessories" }

func (r AccessoryRecord) toDomain() equipment.Accessory {
	return equipment.Accessory{ID: r.ID, Name: r.Name, Price: r.Price, Ready: r.Ready}
}

type ProjectRecord struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name             string
	MonthlyEnergyKWh float64 `gorm:"column:monthly_energy_kwh"`
	StorageTargetKWh float64 `gorm:"column:storage_target_kwh"`
	RoofAreaM2       float64 `gorm:"column:roof_area_m2"`
	Phases           int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (ProjectRecord) TableName() string { return "projects" }

func (r ProjectRecord) toDomain() equipment.Project {
	return equipment.Project{
		ID:               r.ID,
		Name:             r.Name,
		MonthlyEnergyKWh: r.MonthlyEnergyKWh,
		StorageTargetKWh: r.StorageTargetKWh,
		RoofAreaM2:       r.RoofAreaM2,
		Phases:           r.Phases,
	}
}

func projectRecord(p equipment.Project) ProjectRecord {
	return ProjectRecord{
		ID:               p.ID,
		Name:             p.Name,
		MonthlyEnergyKWh: p.MonthlyEnergyKWh,
		StorageTargetKWh: p.StorageTargetKWh,
		RoofAreaM2:       p.RoofAreaM2,
		Phases:           p.Phases,
	}
}

// ConfigurationRecord is the persisted system configuration. project_id is
// unique so each project holds at most one row.
type ConfigurationRecord struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProjectID     uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null"`
	PVModuleID    uuid.UUID  `gorm:"type:uuid;not null;column:pv_module_id"`
	PanelCount    int        `gorm:"not null"`
	InverterID    uuid.UUID  `gorm:"type:uuid;not null"`
	InverterCount int        `gorm:"not null"`
	BatteryID     *uuid.UUID `gorm:"type:uuid"`
	BatteryCount  int

	Accessories datatypes.JSONSlice[equipment.AccessoryLine]

	// Stringing
	PanelsPerString    int
	StringCount        int
	TotalPanelsUsed    int
	MaxPanelsPerString int
	DCACRatio          float64 `gorm:"column:dc_ac_ratio"`

	ValidationStatus  string `gorm:"size:16;not null;index"`
	ValidationReasons datatypes.JSONSlice[validation.Reason]

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ConfigurationRecord) TableName() string { return "system_configurations" }

func (r ConfigurationRecord) toDomain() *sysconfig.Configuration {
	return &sysconfig.Configuration{
		ID:            r.ID,
		ProjectID:     r.ProjectID,
		PVModuleID:    r.PVModuleID,
		PanelCount:    r.PanelCount,
		InverterID:    r.InverterID,
		InverterCount: r.InverterCount,
		BatteryID:     r.BatteryID,
		BatteryCount:  r.BatteryCount,
		Accessories:   []equipment.AccessoryLine(r.Accessories),
		Layout: stringing.Layout{
			PanelsPerString: r.PanelsPerString,
			StringCount:     r.StringCount,
			TotalPanelsUsed: r.TotalPanelsUsed,
		},
		MaxPanelsPerString: r.MaxPanelsPerString,
		DCACRatio:          r.DCACRatio,
		ValidationStatus:   validation.Rank(r.ValidationStatus),
		ValidationReasons:  []validation.Reason(r.ValidationReasons),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func configurationRecord(c *sysconfig.Configuration) ConfigurationRecord {
	accessories := c.Accessories
	if accessories == nil {
		accessories = []equipment.AccessoryLine{}
	}
	reasons := c.ValidationReasons
	if reasons == nil {
		reasons = []validation.Reason{}
	}
	return ConfigurationRecord{
		ID:                 c.ID,
		ProjectID:          c.ProjectID,
		PVModuleID:         c.PVModuleID,
		PanelCount:         c.PanelCount,
		InverterID:         c.InverterID,
		InverterCount:      c.InverterCount,
		BatteryID:          c.BatteryID,
		BatteryCount:       c.BatteryCount,
		Accessories:        datatypes.JSONSlice[equipment.AccessoryLine](accessories),
		PanelsPerString:    c.Layout.PanelsPerString,
		StringCount:        c.Layout.StringCount,
		TotalPanelsUsed:    c.Layout.TotalPanelsUsed,
		MaxPanelsPerString: c.MaxPanelsPerString,
		DCACRatio:          c.DCACRatio,
		ValidationStatus:   string(c.ValidationStatus),
		ValidationReasons:  datatypes.JSONSlice[validation.Reason](reasons),
	}
}
