package app

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/talkincode/hotspotbill/internal/domain"
	"github.com/talkincode/hotspotbill/pkg/common"
)

func (a *Application) checkSuper() {
	const superUsername = "admin"
	const defaultPassword = "hotspotbill"

	hashedPassword := common.Sha256HashWithSalt(defaultPassword, common.GetSecretSalt())

	var operator domain.SysOpr
	err := a.gormDB.Where("username = ?", superUsername).First(&operator).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := a.gormDB.Create(&domain.SysOpr{
			ID:        common.UUIDint64(),
			Realname:  "administrator",
			Mobile:    "0000",
			Email:     "N/A",
			Username:  superUsername,
			Password:  hashedPassword,
			Level:     "super",
			Status:    common.ENABLED,
			Remark:    "super",
			LastLogin: time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default super admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default super admin account", zap.String("username", superUsername))
		}
	case err != nil:
		zap.L().Error("failed to query super admin", zap.Error(err))
	}
}

// defaultSettings seeded once; operators tune them from the dashboard.
var defaultSettings = []domain.SysConfig{
	{Type: "hotspot", Name: "rate_limit", Value: "100", Remark: "Device API calls per window"},
	{Type: "hotspot", Name: "reconcile_batch", Value: "100", Remark: "Vouchers reconciled per sweep"},
	{Type: "hotspot", Name: "audit_retention_days", Value: "90", Remark: "Voucher audit log retention"},
}

func (a *Application) checkSettings() {
	for _, setting := range defaultSettings {
		var row domain.SysConfig
		err := a.gormDB.Where("type = ? AND name = ?", setting.Type, setting.Name).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			setting.ID = common.UUIDint64()
			if err := a.gormDB.Create(&setting).Error; err != nil {
				zap.L().Error("failed to seed setting",
					zap.String("name", setting.Name), zap.Error(err))
			}
		}
	}
}

// defaultSchedulers drive the periodic engine sweeps.
var defaultSchedulers = []domain.NetScheduler{
	{Name: "device status poll", TaskType: "device_status", Interval: 60, Status: common.ENABLED,
		Remark: "Ping and API-probe every device, update status/uptime/latency"},
	{Name: "voucher reconcile", TaskType: "voucher_reconcile", Interval: 300, Status: common.ENABLED,
		Remark: "Detect and repair voucher drift between DB and devices"},
}

func (a *Application) checkSchedulers() {
	for _, sched := range defaultSchedulers {
		var row domain.NetScheduler
		err := a.gormDB.Where("task_type = ?", sched.TaskType).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sched.ID = common.UUIDint64()
			if err := a.gormDB.Create(&sched).Error; err != nil {
				zap.L().Error("failed to seed scheduler",
					zap.String("task_type", sched.TaskType), zap.Error(err))
			} else {
				zap.L().Info("seeded default scheduler", zap.String("task_type", sched.TaskType))
			}
		}
	}
}
