package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-ping/ping"
	"github.com/panjf2000/ants/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/talkincode/hotspotbill/internal/domain"
)

var errPingTimeout = errors.New("ping timeout")

// initJob wires the cron runner: a fast tick dispatching DB-defined
// schedulers plus a daily audit-log cleanup.
func (a *Application) initJob() {
	a.sched = cron.New()

	_, err := a.sched.AddFunc("@every 10s", a.runSchedulers)
	if err != nil {
		zap.L().Error("failed to register scheduler tick", zap.Error(err))
	}

	_, err = a.sched.AddFunc("@daily", func() {
		days := int(a.configManager.GetInt64("hotspot", "audit_retention_days"))
		if days <= 0 {
			days = 90
		}
		if err := a.store.Logs().DeleteOlderThan(context.Background(), days); err != nil {
			zap.L().Error("audit log cleanup failed", zap.Error(err))
		}
	})
	if err != nil {
		zap.L().Error("failed to register cleanup job", zap.Error(err))
	}
}

// runDeviceStatusJob sweeps the fleet: ICMP latency first, then the API
// identity/resource probe through the engine. Probes fan out on a
// bounded worker pool so one slow device does not stall the sweep.
func (a *Application) runDeviceStatusJob() error {
	ctx := context.Background()
	devices, err := a.store.Devices().List(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return nil
	}

	pool, err := ants.NewPool(8)
	if err != nil {
		return err
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, device := range devices {
		device := device
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			a.probeDevice(ctx, device)
		}); err != nil {
			wg.Done()
			zap.L().Warn("failed to submit device probe", zap.Int64("device_id", device.ID), zap.Error(err))
		}
	}
	wg.Wait()
	return nil
}

// probeDevice updates one device's status row from live measurements.
func (a *Application) probeDevice(ctx context.Context, device *domain.HotspotDevice) {
	now := time.Now()
	fields := map[string]interface{}{}

	latency, pingErr := pingLatency(device.Ipaddr)
	if pingErr == nil {
		fields["latency"] = latency
	}

	identity, err := a.deviceSvc.Identity(ctx, device)
	if err != nil {
		status := domain.DeviceStatusError
		if pingErr != nil {
			status = domain.DeviceStatusOffline
		}
		fields["status"] = status
		fields["last_message"] = err.Error()
		if uerr := a.store.Devices().UpdateProbeResult(ctx, device.ID, fields); uerr != nil {
			zap.L().Error("failed to update device probe result",
				zap.Int64("device_id", device.ID), zap.Error(uerr))
		}
		zap.L().Warn("device probe failed",
			zap.Int64("device_id", device.ID),
			zap.String("ipaddr", device.Ipaddr),
			zap.Error(err),
		)
		return
	}

	fields["status"] = domain.DeviceStatusOnline
	fields["identity"] = identity
	fields["last_seen"] = now
	fields["last_message"] = "ok"

	if stats, serr := a.deviceSvc.GetStatistics(ctx, device.ID); serr == nil {
		fields["uptime"] = stats.Uptime
	}

	if err := a.store.Devices().UpdateProbeResult(ctx, device.ID, fields); err != nil {
		zap.L().Error("failed to update device probe result",
			zap.Int64("device_id", device.ID), zap.Error(err))
	}
}

// pingLatency measures average ICMP round trip in milliseconds.
func pingLatency(addr string) (int, error) {
	pinger, err := ping.NewPinger(addr)
	if err != nil {
		return 0, err
	}
	pinger.Count = 3
	pinger.Timeout = 3 * time.Second
	pinger.SetPrivileged(true)
	if err := pinger.Run(); err != nil {
		return 0, err
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, errPingTimeout
	}
	return int(stats.AvgRtt / time.Millisecond), nil
}

// runReconcileJob sweeps active vouchers through the reconciliation
// protocol.
func (a *Application) runReconcileJob() error {
	limit := int(a.configManager.GetInt64("hotspot", "reconcile_batch"))
	synced, err := a.reconcile.SyncActiveVouchers(context.Background(), limit)
	if err != nil {
		return err
	}
	zap.L().Info("reconcile sweep finished", zap.Int("synced", synced))
	return nil
}

// RunDeviceProbe triggers an immediate status probe for one device.
func (a *Application) RunDeviceProbe(deviceID int64) error {
	device, err := a.store.Devices().GetByID(context.Background(), deviceID)
	if err != nil {
		return err
	}
	a.probeDevice(context.Background(), device)
	return nil
}

// RunReconcileSweep triggers an immediate reconciliation sweep.
func (a *Application) RunReconcileSweep(limit int) (int, error) {
	return a.reconcile.SyncActiveVouchers(context.Background(), limit)
}
