package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pv-configurator/internal/equipment"
	"pv-configurator/internal/stringing"
	"pv-configurator/internal/sysconfig"
	"pv-configurator/internal/validation"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewDatabaseRejectsUnknownDriver(t *testing.T) {
	_, err := NewDatabase("mysql", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestReadyInvertersAreGatedAndOrdered(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	for _, inv := range []equipment.Inverter{
		{Brand: "Acme", Model: "S5K", Type: equipment.InverterString, PowerW: 5000, MaxDCVoltage: 600, MPPTCount: 2, Ready: true},
		{Brand: "Acme", Model: "S10K", Type: equipment.InverterString, PowerW: 10000, MaxDCVoltage: 1000, MPPTCount: 2, Ready: true},
		{Brand: "Acme", Model: "Draft", Type: equipment.InverterString, PowerW: 20000, MaxDCVoltage: 1000, MPPTCount: 4},
		{Brand: "Acme", Model: "H8K", Type: equipment.InverterHybrid, PowerW: 8000, MaxDCVoltage: 600, MPPTCount: 2,
			BatteryMinVoltage: 150, BatteryMaxVoltage: 600, Price: decimal.RequireFromString("1999.90"), Ready: true},
	} {
		inv := inv
		require.NoError(t, db.SaveInverter(ctx, &inv))
		assert.NotEqual(t, uuid.Nil, inv.ID)
	}

	inverters, err := db.ReadyInverters(ctx)
	require.NoError(t, err)
	require.Len(t, inverters, 3)

	var models []string
	for _, inv := range inverters {
		models = append(models, inv.Model)
	}
	assert.Equal(t, []string{"S10K", "H8K", "S5K"}, models)

	hybrid := inverters[1]
	assert.Equal(t, equipment.InverterHybrid, hybrid.Type)
	assert.Equal(t, 600.0, hybrid.BatteryMaxVoltage)
	assert.True(t, decimal.RequireFromString("1999.90").Equal(hybrid.Price))
}

func TestReadyBatteriesOrderedByCapacity(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	for _, b := range []equipment.Battery{
		{Brand: "Cell", Model: "B5", NominalVoltage: 48, CapacityKWh: 5, Ready: true},
		{Brand: "Cell", Model: "B10", NominalVoltage: 400, CapacityKWh: 10, DepthOfDischarge: 90, Ready: true},
		{Brand: "Cell", Model: "B20", NominalVoltage: 400, CapacityKWh: 20},
	} {
		b := b
		require.NoError(t, db.SaveBattery(ctx, &b))
	}

	batteries, err := db.ReadyBatteries(ctx)
	require.NoError(t, err)
	require.Len(t, batteries, 2)
	assert.Equal(t, "B10", batteries[0].Model)
	assert.Equal(t, 9.0, batteries[0].UsableCapacityKWh())
	assert.Equal(t, "B5", batteries[1].Model)
}

func TestLookupsReportNotFound(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	draft := equipment.PVModule{Brand: "Sun", Model: "Draft", PowerW: 400, Voc: 49}
	require.NoError(t, db.SavePVModule(ctx, &draft))

	_, err := db.PVModule(ctx, draft.ID)
	assert.ErrorIs(t, err, equipment.ErrNotFound)

	_, err = db.Inverter(ctx, uuid.New())
	assert.ErrorIs(t, err, equipment.ErrNotFound)

	_, err = db.Battery(ctx, uuid.New())
	assert.ErrorIs(t, err, equipment.ErrNotFound)

	_, err = db.Project(ctx, uuid.New())
	assert.ErrorIs(t, err, equipment.ErrNotFound)

	_, err = db.Configuration(ctx, uuid.New())
	assert.ErrorIs(t, err, equipment.ErrNotFound)
}

func TestPVModuleRoundTripKeepsOptionalFields(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	length, width, eff := 1722.0, 1134.0, 21.3
	m := equipment.PVModule{
		Brand: "Sun", Model: "M410", PowerW: 410, Voc: 37.5, Vmp: 31.2, Isc: 13.9, Imp: 13.1,
		EfficiencyPc: &eff, LengthMM: &length, WidthMM: &width, Ready: true,
	}
	require.NoError(t, db.SavePVModule(ctx, &m))

	got, err := db.PVModule(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 21.3, got.Efficiency())
	area, ok := got.FootprintM2()
	require.True(t, ok)
	assert.InDelta(t, 1.9527, area, 0.001)
}

func TestMigratedColumnsMatchQueries(t *testing.T) {
	db := newTestDatabase(t)
	migrator := db.db.Migrator()

	for _, column := range configurationUpdateColumns {
		assert.True(t, migrator.HasColumn(&ConfigurationRecord{}, column), "system_configurations.%s", column)
	}
	for _, column := range []string{"power_w", "max_dc_voltage", "mppt_count", "ready"} {
		assert.True(t, migrator.HasColumn(&InverterRecord{}, column), "inverters.%s", column)
	}
	assert.True(t, migrator.HasColumn(&BatteryRecord{}, "capacity_kwh"))
	assert.True(t, migrator.HasColumn(&PVModuleRecord{}, "power_w"))
}

func TestUpsertConfigurationReplacesProjectRow(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	project := equipment.Project{Name: "Roof", MonthlyEnergyKWh: 600, Phases: 3}
	require.NoError(t, db.SaveProject(ctx, &project))

	batteryID := uuid.New()
	first := &sysconfig.Configuration{
		ProjectID:     project.ID,
		PVModuleID:    uuid.New(),
		PanelCount:    20,
		InverterID:    uuid.New(),
		InverterCount: 1,
		BatteryID:     &batteryID,
		BatteryCount:  1,
		Accessories: []equipment.AccessoryLine{
			{AccessoryID: uuid.New(), Quantity: 2},
		},
		Layout:             stringing.Layout{PanelsPerString: 10, StringCount: 2, TotalPanelsUsed: 20},
		MaxPanelsPerString: 18,
		DCACRatio:          1.1,
		ValidationStatus:   validation.RankWarning,
		ValidationReasons: []validation.Reason{
			{Check: validation.CheckDCACRatio, Severity: validation.RankWarning, Message: "DC/AC ratio 1.35 is high"},
		},
	}

	saved, err := db.UpsertConfiguration(ctx, first)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, saved.ID)
	assert.Equal(t, validation.RankWarning, saved.ValidationStatus)
	require.Len(t, saved.ValidationReasons, 1)
	assert.Equal(t, validation.CheckDCACRatio, saved.ValidationReasons[0].Check)
	require.Len(t, saved.Accessories, 1)
	assert.Equal(t, 2, saved.Accessories[0].Quantity)
	require.NotNil(t, saved.BatteryID)
	assert.Equal(t, batteryID, *saved.BatteryID)

	second := &sysconfig.Configuration{
		ProjectID:          project.ID,
		PVModuleID:         first.PVModuleID,
		PanelCount:         21,
		InverterID:         first.InverterID,
		InverterCount:      1,
		Layout:             stringing.Layout{PanelsPerString: 10, StringCount: 2, TotalPanelsUsed: 20},
		MaxPanelsPerString: 18,
		DCACRatio:          1.2,
		ValidationStatus:   validation.RankPass,
	}
	replaced, err := db.UpsertConfiguration(ctx, second)
	require.NoError(t, err)

	assert.Equal(t, saved.ID, replaced.ID)
	assert.Equal(t, 21, replaced.PanelCount)
	assert.Nil(t, replaced.BatteryID)
	assert.Empty(t, replaced.Accessories)
	assert.Empty(t, replaced.ValidationReasons)
	assert.Equal(t, validation.RankPass, replaced.ValidationStatus)

	var rows int64
	require.NoError(t, db.db.Model(&ConfigurationRecord{}).Where("project_id = ?", project.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestDatabaseSatisfiesEngineStore(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	project := equipment.Project{Name: "Garage", MonthlyEnergyKWh: 450, Phases: 1}
	require.NoError(t, db.SaveProject(ctx, &project))
	module := equipment.PVModule{Brand: "Sun", Model: "M400", PowerW: 400, Voc: 49.5, Vmp: 41.5, Imp: 10, Ready: true}
	require.NoError(t, db.SavePVModule(ctx, &module))
	inverter := equipment.Inverter{Brand: "Acme", Model: "S5K", Type: equipment.InverterString,
		PowerW: 5000, MaxDCVoltage: 1000, MPPTCount: 2, Phases: 1, Ready: true}
	require.NoError(t, db.SaveInverter(ctx, &inverter))

	engine := sysconfig.NewEngine(sysconfig.EngineConfig{Catalog: db, Projects: db, Store: db})
	cfg, err := engine.Configure(ctx, sysconfig.ConfigureRequest{
		ProjectID:  project.ID,
		PVModuleID: module.ID,
		PanelCount: 12,
		InverterID: inverter.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, stringing.Layout{PanelsPerString: 6, StringCount: 2, TotalPanelsUsed: 12}, cfg.Layout)
	assert.Equal(t, validation.RankPass, cfg.ValidationStatus)

	loaded, err := engine.GetConfiguration(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, loaded.ID)
}

func TestBlockedConfigurationIsPersistedAndGated(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	project := equipment.Project{Name: "Barn", MonthlyEnergyKWh: 900, StorageTargetKWh: 8, Phases: 3}
	require.NoError(t, db.SaveProject(ctx, &project))
	module := equipment.PVModule{Brand: "Sun", Model: "M400", PowerW: 400, Voc: 49.5, Vmp: 41.5, Imp: 10, Ready: true}
	require.NoError(t, db.SavePVModule(ctx, &module))
	inverter := equipment.Inverter{Brand: "Acme", Model: "S10K", Type: equipment.InverterString,
		PowerW: 10000, MaxDCVoltage: 1000, MPPTCount: 2, Phases: 3, Ready: true}
	require.NoError(t, db.SaveInverter(ctx, &inverter))
	battery := equipment.Battery{Brand: "Cell", Model: "HV10", NominalVoltage: 400, CapacityKWh: 10, Ready: true}
	require.NoError(t, db.SaveBattery(ctx, &battery))

	engine := sysconfig.NewEngine(sysconfig.EngineConfig{Catalog: db, Projects: db, Store: db})
	cfg, err := engine.Configure(ctx, sysconfig.ConfigureRequest{
		ProjectID:  project.ID,
		PVModuleID: module.ID,
		PanelCount: 18,
		InverterID: inverter.ID,
		BatteryID:  &battery.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, validation.RankBlock, cfg.ValidationStatus)

	stored, err := db.Configuration(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, validation.RankBlock, stored.ValidationStatus)
	require.NotEmpty(t, stored.ValidationReasons)
	assert.Equal(t, module.ID, stored.PVModuleID)
	assert.ErrorIs(t, engine.CheckQuoteGate(ctx, project.ID), sysconfig.ErrConfigurationBlocked)
}
