package hotspot

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/talkincode/hotspotbill/internal/domain"
)

// ErrVoucherNotFound is returned when a voucher code has no local record.
var ErrVoucherNotFound = errors.New("voucher not found")

// DeviceRepository interface for device data access
type DeviceRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.HotspotDevice, error)
	List(ctx context.Context) ([]*domain.HotspotDevice, error)
	UpdateProbeResult(ctx context.Context, id int64, fields map[string]interface{}) error
}

// VoucherRepository handles database operations for voucher records
type VoucherRepository interface {
	// Create inserts a new voucher
	Create(ctx context.Context, v *domain.HotspotVoucher) error

	// Update saves an existing voucher
	Update(ctx context.Context, v *domain.HotspotVoucher) error

	// GetByCode retrieves a voucher by its code
	GetByCode(ctx context.Context, code string) (*domain.HotspotVoucher, error)

	// CodeExists reports whether a code is already taken
	CodeExists(ctx context.Context, code string) (bool, error)

	// UpdateStatus updates the status of a voucher
	UpdateStatus(ctx context.Context, id int64, status string) error

	// MarkDelivered flags a voucher's SMS as delivered
	MarkDelivered(ctx context.Context, id int64) error

	// ListByStatus retrieves vouchers in a given status
	ListByStatus(ctx context.Context, status string, limit int) ([]*domain.HotspotVoucher, error)
}

// VoucherLogRepository handles database operations for audit logs
type VoucherLogRepository interface {
	// Create inserts a new audit log entry
	Create(ctx context.Context, log *domain.HotspotVoucherLog) error

	// GetByCode retrieves all logs for a voucher code
	GetByCode(ctx context.Context, code string) ([]*domain.HotspotVoucherLog, error)

	// DeleteOlderThan removes old logs (older than N days)
	DeleteOlderThan(ctx context.Context, days int) error
}

// SnapshotRepository handles database operations for config snapshots.
// Snapshots are append-only; Append supersedes the current version
// without mutating prior rows.
type SnapshotRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.ConfigSnapshot, error)
	GetCurrent(ctx context.Context, deviceID int64) (*domain.ConfigSnapshot, error)
	Append(ctx context.Context, snap *domain.ConfigSnapshot) error
	ListByDevice(ctx context.Context, deviceID int64, limit int) ([]*domain.ConfigSnapshot, error)
}

// Store aggregates the engine repositories and provides the local
// transaction boundary the provisioning flow persists inside.
type Store interface {
	Devices() DeviceRepository
	Vouchers() VoucherRepository
	Logs() VoucherLogRepository
	Snapshots() SnapshotRepository

	// Transaction runs fn against a store bound to one local database
	// transaction.
	Transaction(ctx context.Context, fn func(Store) error) error
}

// GormStore is the GORM implementation of Store
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-based store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Devices() DeviceRepository     { return &gormDeviceRepository{db: s.db} }
func (s *GormStore) Vouchers() VoucherRepository   { return &gormVoucherRepository{db: s.db} }
func (s *GormStore) Logs() VoucherLogRepository    { return &gormVoucherLogRepository{db: s.db} }
func (s *GormStore) Snapshots() SnapshotRepository { return &gormSnapshotRepository{db: s.db} }

func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

type gormDeviceRepository struct {
	db *gorm.DB
}

func (r *gormDeviceRepository) GetByID(ctx context.Context, id int64) (*domain.HotspotDevice, error) {
	var device domain.HotspotDevice
	err := r.db.WithContext(ctx).First(&device, id).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *gormDeviceRepository) List(ctx context.Context) ([]*domain.HotspotDevice, error) {
	var devices []*domain.HotspotDevice
	err := r.db.WithContext(ctx).Order("id ASC").Find(&devices).Error
	return devices, err
}

func (r *gormDeviceRepository) UpdateProbeResult(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&domain.HotspotDevice{}).
		Where("id = ?", id).
		Updates(fields).Error
}

type gormVoucherRepository struct {
	db *gorm.DB
}

func (r *gormVoucherRepository) Create(ctx context.Context, v *domain.HotspotVoucher) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *gormVoucherRepository) Update(ctx context.Context, v *domain.HotspotVoucher) error {
	return r.db.WithContext(ctx).Save(v).Error
}

func (r *gormVoucherRepository) GetByCode(ctx context.Context, code string) (*domain.HotspotVoucher, error) {
	var v domain.HotspotVoucher
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVoucherNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *gormVoucherRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.HotspotVoucher{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (r *gormVoucherRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).
		Model(&domain.HotspotVoucher{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *gormVoucherRepository) MarkDelivered(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&domain.HotspotVoucher{}).
		Where("id = ?", id).
		Update("delivered", true).Error
}

func (r *gormVoucherRepository) ListByStatus(ctx context.Context, status string, limit int) ([]*domain.HotspotVoucher, error) {
	var vouchers []*domain.HotspotVoucher
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&vouchers).Error
	return vouchers, err
}

type gormVoucherLogRepository struct {
	db *gorm.DB
}

func (r *gormVoucherLogRepository) Create(ctx context.Context, log *domain.HotspotVoucherLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *gormVoucherLogRepository) GetByCode(ctx context.Context, code string) ([]*domain.HotspotVoucherLog, error) {
	var logs []*domain.HotspotVoucherLog
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}

func (r *gormVoucherLogRepository) DeleteOlderThan(ctx context.Context, days int) error {
	cutoff := time.Now().AddDate(0, 0, -days)
	return r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.HotspotVoucherLog{}).Error
}

type gormSnapshotRepository struct {
	db *gorm.DB
}

func (r *gormSnapshotRepository) GetByID(ctx context.Context, id int64) (*domain.ConfigSnapshot, error) {
	var snap domain.ConfigSnapshot
	err := r.db.WithContext(ctx).First(&snap, id).Error
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *gormSnapshotRepository) GetCurrent(ctx context.Context, deviceID int64) (*domain.ConfigSnapshot, error) {
	var snap domain.ConfigSnapshot
	err := r.db.WithContext(ctx).
		Where("device_id = ? AND current = ?", deviceID, true).
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *gormSnapshotRepository) Append(ctx context.Context, snap *domain.ConfigSnapshot) error {
	tx := r.db.WithContext(ctx)
	var maxVersion int64
	if err := tx.Model(&domain.ConfigSnapshot{}).
		Where("device_id = ?", snap.DeviceID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&maxVersion).Error; err != nil {
		return err
	}
	snap.Version = int(maxVersion) + 1
	if snap.Current {
		if err := tx.Model(&domain.ConfigSnapshot{}).
			Where("device_id = ? AND current = ?", snap.DeviceID, true).
			Update("current", false).Error; err != nil {
			return err
		}
	}
	return tx.Create(snap).Error
}

func (r *gormSnapshotRepository) ListByDevice(ctx context.Context, deviceID int64, limit int) ([]*domain.ConfigSnapshot, error) {
	var snaps []*domain.ConfigSnapshot
	err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("version DESC").
		Limit(limit).
		Find(&snaps).Error
	return snaps, err
}
