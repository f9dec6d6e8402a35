package app

import (
	"context"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/talkincode/hotspotbill/config"
	"github.com/talkincode/hotspotbill/internal/domain"
	"github.com/talkincode/hotspotbill/internal/hotspot"
	"github.com/talkincode/hotspotbill/internal/hotspot/clients"
	"github.com/talkincode/hotspotbill/internal/sms"
)

type Application struct {
	appConfig     *config.AppConfig
	gormDB        *gorm.DB
	sched         *cron.Cron
	configManager *ConfigManager

	sharedStore *hotspot.SharedStore
	connMgr     *hotspot.ConnectionManager
	store       hotspot.Store
	deviceSvc   *hotspot.DeviceService
	voucherSvc  *hotspot.VoucherService
	reconcile   *hotspot.ReconcileService
	history     *hotspot.ConfigHistoryService
}

// Ensure Application implements all interfaces
var (
	_ DBProvider     = (*Application)(nil)
	_ ConfigProvider = (*Application)(nil)
	_ EngineProvider = (*Application)(nil)
	_ AppContext     = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig { return a.appConfig }

func (a *Application) DB() *gorm.DB { return a.gormDB }

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	a.initLogger(cfg)

	// Initialize database connection
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	a.gormDB = getDatabase(cfg.Database)
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	// Ensure database schema is migrated before loading configs
	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	// wait for database initialization to complete
	go func() {
		time.Sleep(3 * time.Second)
		a.checkSuper()
		a.checkSettings()
		a.checkSchedulers()
	}()

	a.configManager = NewConfigManager(a.gormDB)

	a.initEngine(cfg)
	a.initJob()
}

// initLogger configures the zap global logger, optionally teeing into a
// rotated file.
func (a *Application) initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	var err error
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}
		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
	}
	zap.ReplaceGlobals(logger)
}

// initEngine builds the device integration engine: the shared store, the
// connection manager, rate limiter, retrying executor, result cache and
// the services on top of them.
func (a *Application) initEngine(cfg *config.AppConfig) {
	_ = os.MkdirAll(cfg.System.Workdir, 0o755)

	sharedStore, err := hotspot.OpenSharedStore(filepath.Join(cfg.System.Workdir, "engine.db"))
	if err != nil {
		zap.S().Panicf("failed to open engine shared store: %v", err)
	}
	a.sharedStore = sharedStore

	rateLimit := cfg.Hotspot.RateLimit
	if v := a.configManager.GetInt64("hotspot", "rate_limit"); v > 0 {
		rateLimit = int(v)
	}

	a.connMgr = hotspot.NewConnectionManager(cfg.Hotspot.ConnectTimeout(), clients.DialMikrotik)
	limiter := hotspot.NewRateLimiter(sharedStore, cfg.Hotspot.RateWindow(), rateLimit, nil)
	executor := hotspot.NewExecutor(cfg.Hotspot.RetryAttempts, cfg.Hotspot.RetryBackoff())
	cache := hotspot.NewResultCache(sharedStore, nil)

	a.store = hotspot.NewGormStore(a.gormDB)
	a.deviceSvc = hotspot.NewDeviceService(a.connMgr, limiter, executor, cache, a.store)

	var notifier hotspot.Notifier
	if sender := sms.NewGatewaySender(cfg.Sms); sender != nil {
		notifier = sender
	}
	a.voucherSvc = hotspot.NewVoucherService(a.store, a.deviceSvc, notifier, cfg.Hotspot.VoucherPrefix)
	a.reconcile = hotspot.NewReconcileService(a.store, a.deviceSvc)
	a.history = hotspot.NewConfigHistoryService(a.store, a.deviceSvc)
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEBUG_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	if track {
		if err := a.gormDB.Debug().Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	} else {
		if err := a.gormDB.Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	}
	return nil
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
}

// ConfigMgr returns the configuration manager
func (a *Application) ConfigMgr() *ConfigManager { return a.configManager }

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron { return a.sched }

// DeviceService returns the gated device RPC surface.
func (a *Application) DeviceService() *hotspot.DeviceService { return a.deviceSvc }

// VoucherService returns the provisioning service.
func (a *Application) VoucherService() *hotspot.VoucherService { return a.voucherSvc }

// ReconcileService returns the reconciliation service.
func (a *Application) ReconcileService() *hotspot.ReconcileService { return a.reconcile }

// HistoryService returns the config history service.
func (a *Application) HistoryService() *hotspot.ConfigHistoryService { return a.history }

// EngineStore returns the engine repositories.
func (a *Application) EngineStore() hotspot.Store { return a.store }

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.connMgr != nil {
		a.connMgr.Close()
	}
	if a.sharedStore != nil {
		_ = a.sharedStore.Close()
	}
	_ = zap.L().Sync()
}

// StartBackgroundJobs starts the periodic job runner.
func (a *Application) StartBackgroundJobs(ctx context.Context) {
	if a.sched != nil {
		a.sched.Start()
	}
	go func() {
		<-ctx.Done()
		if a.sched != nil {
			a.sched.Stop()
		}
	}()
}
