package hotspot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/talkincode/hotspotbill/internal/domain"
	"github.com/talkincode/hotspotbill/pkg/common"
)

// backupBlob is the snapshot content recorded for device-side backups.
type backupBlob struct {
	BackupName string `json:"backup_name"`
	Size       int64  `json:"size"`
	CreatedAt  string `json:"created_at"`
	Identity   string `json:"identity"`
}

// ConfigHistoryService versions device configuration snapshots for audit
// and rollback. History is append-only: the previous snapshot is never
// mutated, only superseded, and every restore replays through the normal
// record path so it is itself auditable.
type ConfigHistoryService struct {
	store  Store
	device *DeviceService
	now    func() time.Time
}

// NewConfigHistoryService builds the history service.
func NewConfigHistoryService(store Store, device *DeviceService) *ConfigHistoryService {
	return &ConfigHistoryService{store: store, device: device, now: time.Now}
}

// Record stores a new configuration blob for a device. If a prior
// current configuration exists, it is snapshotted first as a
// create-type backup, then the new blob becomes the current version
// tagged with changeType. Returns the new snapshot id.
func (s *ConfigHistoryService) Record(ctx context.Context, deviceID int64, blob, changeType, actor string) (int64, error) {
	switch changeType {
	case domain.ConfigChangeCreate, domain.ConfigChangeUpdate, domain.ConfigChangeRestore:
	default:
		return 0, fmt.Errorf("unknown config change type %q", changeType)
	}

	snap := &domain.ConfigSnapshot{
		ID:         common.UUIDint64(),
		DeviceID:   deviceID,
		ChangeType: changeType,
		Actor:      actor,
		Content:    blob,
		Current:    true,
		CreatedAt:  s.now(),
	}

	err := s.store.Transaction(ctx, func(tx Store) error {
		prior, err := tx.Snapshots().GetCurrent(ctx, deviceID)
		if err != nil {
			return err
		}
		if prior != nil {
			backup := &domain.ConfigSnapshot{
				ID:         common.UUIDint64(),
				DeviceID:   deviceID,
				ChangeType: domain.ConfigChangeCreate,
				Actor:      "system",
				Content:    prior.Content,
				Current:    false,
				CreatedAt:  s.now(),
			}
			if err := tx.Snapshots().Append(ctx, backup); err != nil {
				return err
			}
		}
		return tx.Snapshots().Append(ctx, snap)
	})
	if err != nil {
		return 0, fmt.Errorf("record config snapshot: %w", err)
	}

	zap.L().Info("config snapshot recorded",
		zap.Int64("device_id", deviceID),
		zap.Int64("snapshot_id", snap.ID),
		zap.Int("version", snap.Version),
		zap.String("change_type", changeType),
		zap.String("actor", actor),
	)
	return snap.ID, nil
}

// Restore looks up a historical snapshot by id and re-records its
// content as the current version with changeType restore. History is
// never rewritten in place.
func (s *ConfigHistoryService) Restore(ctx context.Context, deviceID, snapshotID int64, actor string) (int64, error) {
	snap, err := s.store.Snapshots().GetByID(ctx, snapshotID)
	if err != nil {
		return 0, err
	}
	if snap.DeviceID != deviceID {
		return 0, fmt.Errorf("snapshot %d does not belong to device %d", snapshotID, deviceID)
	}
	return s.Record(ctx, deviceID, snap.Content, domain.ConfigChangeRestore, actor)
}

// History lists a device's snapshots, newest first.
func (s *ConfigHistoryService) History(ctx context.Context, deviceID int64, limit int) ([]*domain.ConfigSnapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.Snapshots().ListByDevice(ctx, deviceID, limit)
}

// CreateBackup saves a backup file on the device itself, then records a
// snapshot describing it so device-side backups share the same audit
// trail as configuration blobs.
func (s *ConfigHistoryService) CreateBackup(ctx context.Context, deviceID int64, actor string) (int64, error) {
	device, err := s.store.Devices().GetByID(ctx, deviceID)
	if err != nil {
		return 0, err
	}

	name := fmt.Sprintf("hotspotbill-%s", s.now().Format("20060102-150405"))
	if err := s.device.SaveBackup(ctx, device, name); err != nil {
		return 0, err
	}

	blob := backupBlob{
		BackupName: name + ".backup",
		CreatedAt:  s.now().Format(time.RFC3339),
		Identity:   device.Identity,
	}
	if files, err := s.device.ListFiles(ctx, device); err == nil {
		for _, f := range files {
			if f.Name == blob.BackupName {
				blob.Size = f.Size
				break
			}
		}
	}
	payload, err := json.Marshal(blob)
	if err != nil {
		return 0, err
	}

	changeType := domain.ConfigChangeUpdate
	if cur, err := s.store.Snapshots().GetCurrent(ctx, deviceID); err == nil && cur == nil {
		changeType = domain.ConfigChangeCreate
	}
	return s.Record(ctx, deviceID, string(payload), changeType, actor)
}

// RestoreBackup loads the device-side backup file referenced by a
// snapshot back onto the device, then records the restore in history.
// The device reboots as part of the load.
func (s *ConfigHistoryService) RestoreBackup(ctx context.Context, deviceID, snapshotID int64, actor string) (int64, error) {
	device, err := s.store.Devices().GetByID(ctx, deviceID)
	if err != nil {
		return 0, err
	}
	snap, err := s.store.Snapshots().GetByID(ctx, snapshotID)
	if err != nil {
		return 0, err
	}
	if snap.DeviceID != deviceID {
		return 0, fmt.Errorf("snapshot %d does not belong to device %d", snapshotID, deviceID)
	}

	var blob backupBlob
	if err := json.Unmarshal([]byte(snap.Content), &blob); err != nil || blob.BackupName == "" {
		return 0, fmt.Errorf("snapshot %d does not reference a device backup", snapshotID)
	}

	if err := s.device.LoadBackup(ctx, device, blob.BackupName); err != nil {
		return 0, err
	}
	return s.Record(ctx, deviceID, snap.Content, domain.ConfigChangeRestore, actor)
}
