package hotspot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/talkincode/hotspotbill/internal/domain"
	"github.com/talkincode/hotspotbill/pkg/common"
)

// PackageSpec maps a purchasable package tier onto the device-side
// profile and limits.
type PackageSpec struct {
	Profile     string
	Hours       int
	DataLimitMB int64
}

// packageTable is the fixed tier lookup. Unknown tiers fall back to a
// 24-hour uncapped default.
var packageTable = map[string]PackageSpec{
	"hourly_3":        {Profile: "3H-BASIC", Hours: 3, DataLimitMB: 0},
	"daily_1gb":       {Profile: "1GB-DAILY", Hours: 24, DataLimitMB: 1024},
	"daily_unlimited": {Profile: "UNL-DAILY", Hours: 24, DataLimitMB: 0},
	"weekly_5gb":      {Profile: "5GB-WEEKLY", Hours: 168, DataLimitMB: 5120},
	"monthly_20gb":    {Profile: "20GB-MONTHLY", Hours: 720, DataLimitMB: 20480},
}

var defaultPackage = PackageSpec{Profile: "DEFAULT", Hours: 24, DataLimitMB: 0}

// LookupPackage resolves a tier key to its package spec.
func LookupPackage(tier string) PackageSpec {
	if spec, ok := packageTable[tier]; ok {
		return spec
	}
	return defaultPackage
}

// Notifier delivers the voucher credentials to the buyer. Delivery is
// best effort: failures are logged, never propagated.
type Notifier interface {
	SendVoucherMessage(ctx context.Context, phone string, v *domain.HotspotVoucher) error
}

// ProvisionRequest asks for one voucher on one device.
type ProvisionRequest struct {
	DeviceID    int64  `json:"device_id,string"`
	PackageTier string `json:"package_tier"`
	Phone       string `json:"phone"`
}

// BatchResult accumulates per-item outcomes of a batch provisioning run.
type BatchResult struct {
	Requested int                      `json:"requested"`
	Succeeded int                      `json:"succeeded"`
	Failed    int                      `json:"failed"`
	Vouchers  []*domain.HotspotVoucher `json:"vouchers"`
	Errors    []string                 `json:"errors"`
}

// VoucherService orchestrates remote-then-local voucher creation with
// compensating repair via the reconciliation sweep.
type VoucherService struct {
	store      Store
	device     *DeviceService
	notifier   Notifier
	codePrefix string
	now        func() time.Time
}

// NewVoucherService builds the provisioning service. notifier may be nil
// when SMS delivery is disabled.
func NewVoucherService(store Store, device *DeviceService, notifier Notifier, codePrefix string) *VoucherService {
	return &VoucherService{
		store:      store,
		device:     device,
		notifier:   notifier,
		codePrefix: codePrefix,
		now:        time.Now,
	}
}

// ProvisionVoucher runs the full flow: generate credentials, create the
// hotspot user on the device FIRST, then persist the local voucher in
// one transaction, then attempt SMS delivery.
//
// A remote failure aborts with nothing persisted. A local failure after
// remote success is logged as an orphan-risk event and surfaced as a
// PersistenceError; the reconciliation sweep repairs the remote-only
// orphan on its next pass.
func (s *VoucherService) ProvisionVoucher(ctx context.Context, req ProvisionRequest) (*domain.HotspotVoucher, error) {
	device, err := s.store.Devices().GetByID(ctx, req.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("device %d: %w", req.DeviceID, err)
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}
	password := common.GenerateVoucherPassword(6)
	spec := LookupPackage(req.PackageTier)

	remoteID, err := s.device.CreateHotspotUser(ctx, device, RemoteUserSpec{
		Name:          code,
		Password:      password,
		Profile:       spec.Profile,
		ValidityHours: spec.Hours,
		DataLimitMB:   spec.DataLimitMB,
	})
	if err != nil {
		zap.L().Error("voucher remote create failed, nothing persisted",
			zap.Int64("device_id", device.ID),
			zap.String("code", code),
			zap.Error(err),
		)
		return nil, err
	}

	now := s.now()
	voucher := &domain.HotspotVoucher{
		ID:            common.UUIDint64(),
		DeviceID:      device.ID,
		Code:          code,
		Password:      password,
		PackageTier:   req.PackageTier,
		Profile:       spec.Profile,
		ValidityHours: spec.Hours,
		DataLimitMB:   spec.DataLimitMB,
		Phone:         req.Phone,
		Status:        domain.VoucherStatusActive,
		RemoteID:      remoteID,
		ExpireAt:      now.Add(time.Duration(spec.Hours) * time.Hour),
	}

	err = s.store.Transaction(ctx, func(tx Store) error {
		if err := tx.Vouchers().Create(ctx, voucher); err != nil {
			return err
		}
		return tx.Logs().Create(ctx, s.auditRow(voucher, "provisioned", "success", "", nil))
	})
	if err != nil {
		// Remote user exists but no local row does: log distinctly so
		// operators see the orphan risk, then surface the failure.
		zap.L().Error("voucher persist failed after remote create, orphan risk",
			zap.Int64("device_id", device.ID),
			zap.String("code", code),
			zap.String("remote_id", remoteID),
			zap.Error(err),
		)
		return nil, &PersistenceError{Code: code, Err: err}
	}

	s.deliver(ctx, voucher)

	zap.L().Info("voucher provisioned",
		zap.Int64("device_id", device.ID),
		zap.String("code", code),
		zap.String("profile", spec.Profile),
		zap.Int("validity_hours", spec.Hours),
		zap.Int64("data_limit_mb", spec.DataLimitMB),
	)
	return voucher, nil
}

// ProvisionBatch applies the per-item flow in a loop inside one local
// transaction boundary. A single item's remote failure marks only that
// item failed; the rest of the batch proceeds.
func (s *VoucherService) ProvisionBatch(ctx context.Context, reqs []ProvisionRequest) (*BatchResult, error) {
	result := &BatchResult{Requested: len(reqs)}

	err := s.store.Transaction(ctx, func(tx Store) error {
		for i, req := range reqs {
			device, err := tx.Devices().GetByID(ctx, req.DeviceID)
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("item %d: device %d: %v", i, req.DeviceID, err))
				continue
			}

			code, err := s.uniqueCodeIn(ctx, tx)
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("item %d: %v", i, err))
				continue
			}
			password := common.GenerateVoucherPassword(6)
			spec := LookupPackage(req.PackageTier)

			remoteID, err := s.device.CreateHotspotUser(ctx, device, RemoteUserSpec{
				Name:          code,
				Password:      password,
				Profile:       spec.Profile,
				ValidityHours: spec.Hours,
				DataLimitMB:   spec.DataLimitMB,
			})
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("item %d: %v", i, err))
				continue
			}

			now := s.now()
			voucher := &domain.HotspotVoucher{
				ID:            common.UUIDint64(),
				DeviceID:      device.ID,
				Code:          code,
				Password:      password,
				PackageTier:   req.PackageTier,
				Profile:       spec.Profile,
				ValidityHours: spec.Hours,
				DataLimitMB:   spec.DataLimitMB,
				Phone:         req.Phone,
				Status:        domain.VoucherStatusActive,
				RemoteID:      remoteID,
				ExpireAt:      now.Add(time.Duration(spec.Hours) * time.Hour),
			}
			if err := tx.Vouchers().Create(ctx, voucher); err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("item %d: persist %s: %v", i, code, err))
				zap.L().Error("batch voucher persist failed after remote create, orphan risk",
					zap.String("code", code), zap.Error(err))
				continue
			}
			_ = tx.Logs().Create(ctx, s.auditRow(voucher, "provisioned", "success", "", nil))

			result.Succeeded++
			result.Vouchers = append(result.Vouchers, voucher)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Delivery happens after the transaction commits so a gateway stall
	// never holds database locks.
	for _, voucher := range result.Vouchers {
		s.deliver(ctx, voucher)
	}
	return result, nil
}

// deliver attempts SMS delivery as a best-effort side effect.
func (s *VoucherService) deliver(ctx context.Context, voucher *domain.HotspotVoucher) {
	if s.notifier == nil || voucher.Phone == "" {
		return
	}
	if err := s.notifier.SendVoucherMessage(ctx, voucher.Phone, voucher); err != nil {
		zap.L().Warn("voucher delivery failed, voucher remains valid",
			zap.String("code", voucher.Code),
			zap.String("phone", voucher.Phone),
			zap.Error(err),
		)
		_ = s.store.Logs().Create(ctx, s.auditRow(voucher, "delivery_failed", "failure", err.Error(), nil))
		return
	}
	voucher.Delivered = true
	if err := s.store.Vouchers().MarkDelivered(ctx, voucher.ID); err != nil {
		zap.L().Warn("failed to flag voucher delivered", zap.String("code", voucher.Code), zap.Error(err))
	}
}

func (s *VoucherService) uniqueCode(ctx context.Context) (string, error) {
	return s.uniqueCodeIn(ctx, s.store)
}

// uniqueCodeIn generates a collision-checked human-readable code.
func (s *VoucherService) uniqueCodeIn(ctx context.Context, store Store) (string, error) {
	for i := 0; i < 5; i++ {
		code := common.GenerateVoucherCode(s.codePrefix, 8)
		exists, err := store.Vouchers().CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("code collision check: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique voucher code")
}

func (s *VoucherService) auditRow(v *domain.HotspotVoucher, action, status, errMsg string, payload map[string]interface{}) *domain.HotspotVoucherLog {
	row := &domain.HotspotVoucherLog{
		ID:         common.UUIDint64(),
		VoucherID:  v.ID,
		DeviceID:   v.DeviceID,
		Code:       v.Code,
		Action:     action,
		Status:     status,
		ErrorMsg:   errMsg,
		ExecutedAt: s.now(),
	}
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			row.Payload = string(b)
		}
	}
	return row
}
