package hotspot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/talkincode/hotspotbill/internal/domain"
	"github.com/talkincode/hotspotbill/pkg/common"
)

// Reconciliation actions.
const (
	ActionCreated        = "created"
	ActionSynced         = "synced"
	ActionDisabled       = "disabled"
	ActionStatusMismatch = "status_mismatch"
)

// ReconcileResult reports what one sync pass did for a voucher.
type ReconcileResult struct {
	Code        string `json:"code"`
	Action      string `json:"action"`
	LocalStatus string `json:"local_status"`
	RemoteID    string `json:"remote_id,omitempty"`
	Message     string `json:"message,omitempty"`
}

// ReconcileService detects and resolves divergence between local voucher
// records and remote device state. It is the sole authority for the
// voucher consistency invariant.
type ReconcileService struct {
	store  Store
	device *DeviceService
	now    func() time.Time
}

// NewReconcileService builds the reconciliation service.
func NewReconcileService(store Store, device *DeviceService) *ReconcileService {
	return &ReconcileService{store: store, device: device, now: time.Now}
}

// SyncVoucher reconciles one voucher against its assigned device.
//
//   - Absent remotely: the remote user is recreated from the voucher's
//     stored profile/validity/limits (repair of an orphaned local
//     record); action "created".
//   - Present and flags agree: action "synced", no mutation, no remote
//     call beyond the initial read.
//   - Local inactive but remote enabled: disabled remotely; action
//     "disabled".
//   - Local active but remote disabled: RouterOS has no direct enable
//     primitive for a disabled user, and recreating would change the
//     voucher's password/identity. Reported as "status_mismatch" with no
//     mutation on either side; resolution is left to an operator.
func (s *ReconcileService) SyncVoucher(ctx context.Context, code string) (*ReconcileResult, error) {
	voucher, err := s.store.Vouchers().GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	device, err := s.store.Devices().GetByID(ctx, voucher.DeviceID)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{Code: code, LocalStatus: voucher.Status}

	remote, err := s.device.FindHotspotUser(ctx, device, voucher.Code)
	switch {
	case IsNotFoundOnDevice(err):
		remoteID, cerr := s.device.CreateHotspotUser(ctx, device, RemoteUserSpec{
			Name:          voucher.Code,
			Password:      voucher.Password,
			Profile:       voucher.Profile,
			ValidityHours: voucher.ValidityHours,
			DataLimitMB:   voucher.DataLimitMB,
		})
		if cerr != nil {
			s.audit(ctx, voucher, ActionCreated, "failure", cerr.Error())
			return nil, cerr
		}
		voucher.RemoteID = remoteID
		if uerr := s.store.Vouchers().Update(ctx, voucher); uerr != nil {
			zap.L().Error("failed to store recreated remote id",
				zap.String("code", code), zap.Error(uerr))
		}
		result.Action = ActionCreated
		result.RemoteID = remoteID
		result.Message = "remote user recreated from local voucher"

	case err != nil:
		return nil, err

	default:
		localActive := voucher.Status == domain.VoucherStatusActive
		remoteEnabled := !remote.Disabled
		result.RemoteID = remote.ID

		switch {
		case localActive == remoteEnabled:
			result.Action = ActionSynced

		case !localActive && remoteEnabled:
			if derr := s.device.DisableHotspotUser(ctx, device, remote.ID); derr != nil {
				s.audit(ctx, voucher, ActionDisabled, "failure", derr.Error())
				return nil, derr
			}
			result.Action = ActionDisabled
			result.Message = "remote user disabled to match local status"

		default:
			// local active, remote disabled
			result.Action = ActionStatusMismatch
			result.Message = "local voucher active but remote user disabled; manual resolution required"
		}
	}

	s.audit(ctx, voucher, result.Action, "success", result.Message)

	zap.L().Info("voucher reconciled",
		zap.String("code", code),
		zap.String("action", result.Action),
		zap.String("local_status", voucher.Status),
	)
	return result, nil
}

// SyncActiveVouchers sweeps active vouchers, reconciling each. Used by
// the periodic reconciliation job; per-voucher failures are logged and
// do not stop the sweep.
func (s *ReconcileService) SyncActiveVouchers(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	vouchers, err := s.store.Vouchers().ListByStatus(ctx, domain.VoucherStatusActive, limit)
	if err != nil {
		return 0, err
	}
	synced := 0
	for _, v := range vouchers {
		if _, err := s.SyncVoucher(ctx, v.Code); err != nil {
			zap.L().Warn("reconcile sweep item failed",
				zap.String("code", v.Code), zap.Error(err))
			continue
		}
		synced++
	}
	return synced, nil
}

func (s *ReconcileService) audit(ctx context.Context, v *domain.HotspotVoucher, action, status, message string) {
	row := &domain.HotspotVoucherLog{
		ID:         common.UUIDint64(),
		VoucherID:  v.ID,
		DeviceID:   v.DeviceID,
		Code:       v.Code,
		Action:     action,
		Status:     status,
		ErrorMsg:   messageIfFailure(status, message),
		Payload:    "",
		ExecutedAt: s.now(),
	}
	if err := s.store.Logs().Create(ctx, row); err != nil {
		zap.L().Warn("failed to create reconcile audit row",
			zap.String("code", v.Code), zap.Error(err))
	}
}

func messageIfFailure(status, message string) string {
	if status == "failure" {
		return message
	}
	return ""
}
