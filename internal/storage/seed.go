package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"pv-configurator/internal/equipment"
)

// Seed is a catalog and project fixture file. Entries without an id get a
// fresh one; entries with an id are updated in place.
type Seed struct {
	Projects    []SeedProject   `mapstructure:"projects"`
	PVModules   []SeedPVModule  `mapstructure:"pv_modules"`
	Inverters   []SeedInverter  `mapstructure:"inverters"`
	Batteries   []SeedBattery   `mapstructure:"batteries"`
	Accessories []SeedAccessory `mapstructure:"accessories"`
}

type SeedProject struct {
	ID               string  `mapstructure:"id"`
	Name             string  `mapstructure:"name"`
	MonthlyEnergyKWh float64 `mapstructure:"monthly_energy_kwh"`
	StorageTargetKWh float64 `mapstructure:"storage_target_kwh"`
	RoofAreaM2       float64 `mapstructure:"roof_area_m2"`
	Phases           int     `mapstructure:"phases"`
}

type SeedPVModule struct {
	ID            string   `mapstructure:"id"`
	Brand         string   `mapstructure:"brand"`
	Model         string   `mapstructure:"model"`
	PowerW        float64  `mapstructure:"power_w"`
	Voc           float64  `mapstructure:"voc"`
	Vmp           float64  `mapstructure:"vmp"`
	Isc           float64  `mapstructure:"isc"`
	Imp           float64  `mapstructure:"imp"`
	EfficiencyPct *float64 `mapstructure:"efficiency_pct"`
	LengthMM      *float64 `mapstructure:"length_mm"`
	WidthMM       *float64 `mapstructure:"width_mm"`
	Price         string   `mapstructure:"price"`
	Ready         bool     `mapstructure:"ready"`
}

type SeedInverter struct {
	ID                    string  `mapstructure:"id"`
	Brand                 string  `mapstructure:"brand"`
	Model                 string  `mapstructure:"model"`
	Type                  string  `mapstructure:"type"`
	PowerW                float64 `mapstructure:"power_w"`
	MaxDCVoltage          float64 `mapstructure:"max_dc_voltage"`
	MPPTCount             int     `mapstructure:"mppt_count"`
	Phases                int     `mapstructure:"phases"`
	Parallelable          bool    `mapstructure:"parallelable"`
	MaxParallelUnits      int     `mapstructure:"max_parallel_units"`
	BatteryNominalVoltage float64 `mapstructure:"battery_nominal_voltage"`
	BatteryMinVoltage     float64 `mapstructure:"battery_min_voltage"`
	BatteryMaxVoltage     float64 `mapstructure:"battery_max_voltage"`
	MaxChargeCurrent      float64 `mapstructure:"max_charge_current"`
	Price                 string  `mapstructure:"price"`
	Ready                 bool    `mapstructure:"ready"`
}

type SeedBattery struct {
	ID               string  `mapstructure:"id"`
	Brand            string  `mapstructure:"brand"`
	Model            string  `mapstructure:"model"`
	NominalVoltage   float64 `mapstructure:"nominal_voltage"`
	CapacityKWh      float64 `mapstructure:"capacity_kwh"`
	DepthOfDischarge float64 `mapstructure:"depth_of_discharge"`
	CycleLife        *int    `mapstructure:"cycle_life"`
	Price            string  `mapstructure:"price"`
	Ready            bool    `mapstructure:"ready"`
}

type SeedAccessory struct {
	ID    string `mapstructure:"id"`
	Name  string `mapstructure:"name"`
	Price string `mapstructure:"price"`
	Ready bool   `mapstructure:"ready"`
}

// LoadSeed reads a seed file in any format viper understands.
func LoadSeed(path string) (*Seed, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := v.Unmarshal(&seed); err != nil {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}
	return &seed, nil
}

// Apply writes every seed entry and returns the number of rows saved.
func (s *Seed) Apply(ctx context.Context, d *Database) (int, error) {
	saved := 0

	for _, p := range s.Projects {
		id, err := seedID(p.ID)
		if err != nil {
			return saved, fmt.Errorf("project %q: %w", p.Name, err)
		}
		project := equipment.Project{
			ID:               id,
			Name:             p.Name,
			MonthlyEnergyKWh: p.MonthlyEnergyKWh,
			StorageTargetKWh: p.StorageTargetKWh,
			RoofAreaM2:       p.RoofAreaM2,
			Phases:           p.Phases,
		}
		if err := d.SaveProject(ctx, &project); err != nil {
			return saved, err
		}
		saved++
	}

	for _, m := range s.PVModules {
		id, price, err := seedIDAndPrice(m.ID, m.Price)
		if err != nil {
			return saved, fmt.Errorf("pv module %q: %w", m.Model, err)
		}
		module := equipment.PVModule{
			ID:           id,
			Brand:        m.Brand,
			Model:        m.Model,
			PowerW:       m.PowerW,
			Voc:          m.Voc,
			Vmp:          m.Vmp,
			Isc:          m.Isc,
			Imp:          m.Imp,
			EfficiencyPc: m.EfficiencyPct,
			LengthMM:     m.LengthMM,
			WidthMM:      m.WidthMM,
			Price:        price,
			Ready:        m.Ready,
		}
		if err := d.SavePVModule(ctx, &module); err != nil {
			return saved, err
		}
		saved++
	}

	for _, i := range s.Inverters {
		id, price, err := seedIDAndPrice(i.ID, i.Price)
		if err != nil {
			return saved, fmt.Errorf("inverter %q: %w", i.Model, err)
		}
		inverter := equipment.Inverter{
			ID:                    id,
			Brand:                 i.Brand,
			Model:                 i.Model,
			Type:                  equipment.InverterType(i.Type),
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
			Price:                 price,
			Ready:                 i.Ready,
		}
		if err := d.SaveInverter(ctx, &inverter); err != nil {
			return saved, err
		}
		saved++
	}

	for _, b := range s.Batteries {
		id, price, err := seedIDAndPrice(b.ID, b.Price)
		if err != nil {
			return saved, fmt.Errorf("battery %q: %w", b.Model, err)
		}
		battery := equipment.Battery{
			ID:               id,
			Brand:            b.Brand,
			Model:            b.Model,
			NominalVoltage:   b.NominalVoltage,
			CapacityKWh:      b.CapacityKWh,
			DepthOfDischarge: b.DepthOfDischarge,
			CycleLife:        b.CycleLife,
			Price:            price,
			Ready:            b.Ready,
		}
		if err := d.SaveBattery(ctx, &battery); err != nil {
			return saved, err
		}
		saved++
	}

	for _, a := range s.Accessories {
		id, price, err := seedIDAndPrice(a.ID, a.Price)
		if err != nil {
			return saved, fmt.Errorf("accessory %q: %w", a.Name, err)
		}
		accessory := equipment.Accessory{ID: id, Name: a.Name, Price: price, Ready: a.Ready}
		if err := d.SaveAccessory(ctx, &accessory); err != nil {
			return saved, err
		}
		saved++
	}

	slog.Info("Seed applied", "rows", saved)
	return saved, nil
}

func seedID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}

func seedIDAndPrice(rawID, rawPrice string) (uuid.UUID, decimal.Decimal, error) {
	id, err := seedID(rawID)
	if err != nil {
		return uuid.Nil, decimal.Zero, err
	}
	if rawPrice == "" {
		return id, decimal.Zero, nil
	}
	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return uuid.Nil, decimal.Zero, fmt.Errorf("invalid price %q: %w", rawPrice, err)
	}
	return id, price, nil
}
