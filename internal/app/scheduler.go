package app

import (
	"time"

	"go.uber.org/zap"

	"github.com/talkincode/hotspotbill/internal/domain"
)

// runSchedulers executes enabled schedulers that are due. The engine
// itself stays request-per-operation; this runner is the external driver
// invoking its operations repeatedly.
func (a *Application) runSchedulers() {
	var schedulers []domain.NetScheduler
	a.gormDB.Where("status = ?", "enabled").Find(&schedulers)
	now := time.Now()
	for _, sched := range schedulers {
		if sched.NextRunAt.IsZero() || now.After(sched.NextRunAt) || now.Equal(sched.NextRunAt) {
			result, message := "success", ""
			switch sched.TaskType {
			case "device_status":
				if err := a.runDeviceStatusJob(); err != nil {
					result, message = "failed", err.Error()
				}
			case "voucher_reconcile":
				if err := a.runReconcileJob(); err != nil {
					result, message = "failed", err.Error()
				}
			default:
				// unsupported task type
				continue
			}

			a.gormDB.Model(&domain.NetScheduler{}).Where("id = ?", sched.ID).Updates(map[string]interface{}{
				"last_run_at":  now,
				"next_run_at":  now.Add(time.Duration(sched.Interval) * time.Second),
				"last_result":  result,
				"last_message": message,
			})
		}
	}
}

// RunSchedulerNow triggers a scheduler execution immediately by ID
func (a *Application) RunSchedulerNow(id int64) error {
	var sched domain.NetScheduler
	if err := a.gormDB.First(&sched, id).Error; err != nil {
		return err
	}

	switch sched.TaskType {
	case "device_status":
		if err := a.runDeviceStatusJob(); err != nil {
			zap.L().Error("device status job failed", zap.Error(err))
		}
	case "voucher_reconcile":
		if err := a.runReconcileJob(); err != nil {
			zap.L().Error("reconcile job failed", zap.Error(err))
		}
	default:
		// unsupported task type
	}

	now := time.Now()
	a.gormDB.Model(&domain.NetScheduler{}).Where("id = ?", sched.ID).Updates(map[string]interface{}{
		"last_run_at": now,
		"next_run_at": now.Add(time.Duration(sched.Interval) * time.Second),
	})
	return nil
}
