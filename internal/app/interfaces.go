package app

import (
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/talkincode/hotspotbill/config"
	"github.com/talkincode/hotspotbill/internal/hotspot"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SettingsProvider provides system settings access
type SettingsProvider interface {
	GetSettingsStringValue(category, key string) string
	GetSettingsInt64Value(category, key string) int64
	GetSettingsBoolValue(category, key string) bool
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// EngineProvider provides the device integration engine services
type EngineProvider interface {
	DeviceService() *hotspot.DeviceService
	VoucherService() *hotspot.VoucherService
	ReconcileService() *hotspot.ReconcileService
	HistoryService() *hotspot.ConfigHistoryService
	EngineStore() hotspot.Store
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SettingsProvider
	SchedulerProvider
	EngineProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
	// RunDeviceProbe triggers an immediate status probe for one device
	RunDeviceProbe(deviceID int64) error
	// RunReconcileSweep triggers an immediate reconciliation sweep
	RunReconcileSweep(limit int) (int, error)
}
