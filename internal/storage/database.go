package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"pv-configurator/internal/equipment"
	"pv-configurator/internal/sysconfig"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Columns rewritten when a project's configuration is replaced. id and
// created_at belong to the first write.
var configurationUpdateColumns = []string{
	"pv_module_id", "panel_count", "inverter_id", "inverter_count",
	"battery_id", "battery_count", "accessories",
	"panels_per_string", "string_count", "total_panels_used",
	"max_panels_per_string", "dc_ac_ratio",
	"validation_status", "validation_reasons", "updated_at",
}

// Database is the catalog, project and configuration store.
type Database struct {
	db *gorm.DB
}

// NewDatabase opens the database and migrates the schema. For sqlite dsn is
// a file path or ":memory:", for postgres a connection string.
func NewDatabase(driver, dsn string) (*Database, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "", DriverSQLite:
		if dsn != ":memory:" {
			if dir := filepath.Dir(dsn); dir != "" && dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("failed to create database directory: %w", err)
				}
			}
		}
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialector.Name() == DriverSQLite {
		// One connection keeps ":memory:" a single database and serializes writers.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	d := &Database{db: db}
	if err := d.Migrate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Database) Migrate() error {
	err := d.db.AutoMigrate(
		&PVModuleRecord{},
		&InverterRecord{},
		&BatteryRecord{},
		&AccessoryRecord{},
		&ProjectRecord{},
		&ConfigurationRecord{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (d *Database) ReadyPVModules(ctx context.Context) ([]equipment.PVModule, error) {
	var records []PVModuleRecord
	result := d.db.WithContext(ctx).Where("ready = ?", true).
		Order("power_w desc").Order("id").
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list pv modules: %w", result.Error)
	}
	modules := make([]equipment.PVModule, 0, len(records))
	for _, r := range records {
		modules = append(modules, r.toDomain())
	}
	return modules, nil
}

func (d *Database) ReadyInverters(ctx context.Context) ([]equipment.Inverter, error) {
	var records []InverterRecord
	result := d.db.WithContext(ctx).Where("ready = ?", true).
		Order("power_w desc").Order("id").
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list inverters: %w", result.Error)
	}
	inverters := make([]equipment.Inverter, 0, len(records))
	for _, r := range records {
		inverters = append(inverters, r.toDomain())
	}
	return inverters, nil
}

func (d *Database) ReadyBatteries(ctx context.Context) ([]equipment.Battery, error) {
	var records []BatteryRecord
	result := d.db.WithContext(ctx).Where("ready = ?", true).
		Order("capacity_kwh desc").Order("id").
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list batteries: %w", result.Error)
	}
	batteries := make([]equipment.Battery, 0, len(records))
	for _, r := range records {
		batteries = append(batteries, r.toDomain())
	}
	return batteries, nil
}

func (d *Database) ReadyAccessories(ctx context.Context) ([]equipment.Accessory, error) {
	var records []AccessoryRecord
	result := d.db.WithContext(ctx).Where("ready = ?", true).Order("name").Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list accessories: %w", result.Error)
	}
	accessories := make([]equipment.Accessory, 0, len(records))
	for _, r := range records {
		accessories = append(accessories, r.toDomain())
	}
	return accessories, nil
}

// PVModule returns a ready module; not-ready modules are reported as not found.
func (d *Database) PVModule(ctx context.Context, id uuid.UUID) (*equipment.PVModule, error) {
	var r PVModuleRecord
	if err := d.readyByID(ctx, id, &r); err != nil {
		return nil, fmt.Errorf("pv module %s: %w", id, err)
	}
	m := r.toDomain()
	return &m, nil
}

func (d *Database) Inverter(ctx context.Context, id uuid.UUID) (*equipment.Inverter, error) {
	var r InverterRecord
	if err := d.readyByID(ctx, id, &r); err != nil {
		return nil, fmt.Errorf("inverter %s: %w", id, err)
	}
	inv := r.toDomain()
	return &inv, nil
}

func (d *Database) Battery(ctx context.Context, id uuid.UUID) (*equipment.Battery, error) {
	var r BatteryRecord
	if err := d.readyByID(ctx, id, &r); err != nil {
		return nil, fmt.Errorf("battery %s: %w", id, err)
	}
	b := r.toDomain()
	return &b, nil
}

func (d *Database) Project(ctx context.Context, id uuid.UUID) (*equipment.Project, error) {
	var r ProjectRecord
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, fmt.Errorf("project %s: %w", id, notFound(err))
	}
	p := r.toDomain()
	return &p, nil
}

func (d *Database) readyByID(ctx context.Context, id uuid.UUID, dest any) error {
	err := d.db.WithContext(ctx).Where("id = ? AND ready = ?", id, true).First(dest).Error
	return notFound(err)
}

// UpsertConfiguration inserts or replaces the project's configuration in
// one statement and returns the stored row.
func (d *Database) UpsertConfiguration(ctx context.Context, c *sysconfig.Configuration) (*sysconfig.Configuration, error) {
	rec := configurationRecord(c)
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns(configurationUpdateColumns),
	}).Create(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert configuration: %w", err)
	}

	return d.Configuration(ctx, c.ProjectID)
}

func (d *Database) Configuration(ctx context.Context, projectID uuid.UUID) (*sysconfig.Configuration, error) {
	var r ConfigurationRecord
	if err := d.db.WithContext(ctx).Where("project_id = ?", projectID).First(&r).Error; err != nil {
		return nil, fmt.Errorf("configuration for project %s: %w", projectID, notFound(err))
	}
	return r.toDomain(), nil
}

// SavePVModule inserts or updates a catalog module, assigning an id when
// none is set.
func (d *Database) SavePVModule(ctx context.Context, m *equipment.PVModule) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r := pvModuleRecord(*m)
	if err := d.db.WithContext(ctx).Save(&r).Error; err != nil {
		return fmt.Errorf("failed to save pv module %s: %w", m.Model, err)
	}
	return nil
}

func (d *Database) SaveInverter(ctx context.Context, inv *equipment.Inverter) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	r := inverterRecord(*inv)
	if err := d.db.WithContext(ctx).Save(&r).Error; err != nil {
		return fmt.Errorf("failed to save inverter %s: %w", inv.Model, err)
	}
	return nil
}

func (d *Database) SaveBattery(ctx context.Context, b *equipment.Battery) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	r := batteryRecord(*b)
	if err := d.db.WithContext(ctx).Save(&r).Error; err != nil {
		return fmt.Errorf("failed to save battery %s: %w", b.Model, err)
	}
	return nil
}

func (d *Database) SaveAccessory(ctx context.Context, a *equipment.Accessory) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r := AccessoryRecord{ID: a.ID, Name: a.Name, Price: a.Price, Ready: a.Ready}
	if err := d.db.WithContext(ctx).Save(&r).Error; err != nil {
		return fmt.Errorf("failed to save accessory %s: %w", a.Name, err)
	}
	return nil
}

func (d *Database) SaveProject(ctx context.Context, p *equipment.Project) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r := projectRecord(*p)
	if err := d.db.WithContext(ctx).Save(&r).Error; err != nil {
		return fmt.Errorf("failed to save project %s: %w", p.Name, err)
	}
	return nil
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return equipment.ErrNotFound
	}
	return err
}
