package hotspot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/talkincode/hotspotbill/internal/domain"
)

// memStore is the in-memory Store used by the engine tests. Error
// injection fields let tests simulate local persistence failures.
type memStore struct {
	mu       sync.Mutex
	devices  map[int64]*domain.HotspotDevice
	vouchers map[string]*domain.HotspotVoucher
	logs     []*domain.HotspotVoucherLog
	snaps    []*domain.ConfigSnapshot

	voucherCreateErr error
	snapshotErr      error
}

func newMemStore() *memStore {
	return &memStore{
		devices:  make(map[int64]*domain.HotspotDevice),
		vouchers: make(map[string]*domain.HotspotVoucher),
	}
}

func (s *memStore) addDevice(d *domain.HotspotDevice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[d.ID] = d
}

func (s *memStore) voucherByCode(code string) *domain.HotspotVoucher {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vouchers[code]
}

func (s *memStore) voucherCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.vouchers)
}

func (s *memStore) logActions(code string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var actions []string
	for _, l := range s.logs {
		if l.Code == code {
			actions = append(actions, l.Action)
		}
	}
	return actions
}

func (s *memStore) Devices() DeviceRepository     { return &memDeviceRepo{s} }
func (s *memStore) Vouchers() VoucherRepository   { return &memVoucherRepo{s} }
func (s *memStore) Logs() VoucherLogRepository    { return &memVoucherLogRepo{s} }
func (s *memStore) Snapshots() SnapshotRepository { return &memSnapshotRepo{s} }

func (s *memStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return fn(s)
}

type memDeviceRepo struct{ s *memStore }

func (r *memDeviceRepo) GetByID(ctx context.Context, id int64) (*domain.HotspotDevice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.devices[id]
	if !ok {
		return nil, fmt.Errorf("device %d not found", id)
	}
	return d, nil
}

func (r *memDeviceRepo) List(ctx context.Context) ([]*domain.HotspotDevice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.HotspotDevice
	for _, d := range r.s.devices {
		out = append(out, d)
	}
	return out, nil
}

func (r *memDeviceRepo) UpdateProbeResult(ctx context.Context, id int64, fields map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.devices[id]
	if !ok {
		return fmt.Errorf("device %d not found", id)
	}
	if v, ok := fields["status"].(string); ok {
		d.Status = v
	}
	if v, ok := fields["identity"].(string); ok {
		d.Identity = v
	}
	return nil
}

type memVoucherRepo struct{ s *memStore }

func (r *memVoucherRepo) Create(ctx context.Context, v *domain.HotspotVoucher) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.voucherCreateErr != nil {
		return r.s.voucherCreateErr
	}
	if _, exists := r.s.vouchers[v.Code]; exists {
		return fmt.Errorf("duplicate code %s", v.Code)
	}
	cp := *v
	r.s.vouchers[v.Code] = &cp
	return nil
}

func (r *memVoucherRepo) Update(ctx context.Context, v *domain.HotspotVoucher) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.vouchers[v.Code]; !exists {
		return ErrVoucherNotFound
	}
	cp := *v
	r.s.vouchers[v.Code] = &cp
	return nil
}

func (r *memVoucherRepo) GetByCode(ctx context.Context, code string) (*domain.HotspotVoucher, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vouchers[code]
	if !ok {
		return nil, ErrVoucherNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *memVoucherRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.vouchers[code]
	return ok, nil
}

func (r *memVoucherRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.vouchers {
		if v.ID == id {
			v.Status = status
			return nil
		}
	}
	return ErrVoucherNotFound
}

func (r *memVoucherRepo) MarkDelivered(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.vouchers {
		if v.ID == id {
			v.Delivered = true
			return nil
		}
	}
	return ErrVoucherNotFound
}

func (r *memVoucherRepo) ListByStatus(ctx context.Context, status string, limit int) ([]*domain.HotspotVoucher, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.HotspotVoucher
	for _, v := range r.s.vouchers {
		if v.Status == status {
			cp := *v
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type memVoucherLogRepo struct{ s *memStore }

func (r *memVoucherLogRepo) Create(ctx context.Context, log *domain.HotspotVoucherLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	log.CreatedAt = time.Now()
	r.s.logs = append(r.s.logs, log)
	return nil
}

func (r *memVoucherLogRepo) GetByCode(ctx context.Context, code string) ([]*domain.HotspotVoucherLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.HotspotVoucherLog
	for _, l := range r.s.logs {
		if l.Code == code {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memVoucherLogRepo) DeleteOlderThan(ctx context.Context, days int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -days)
	kept := r.s.logs[:0]
	for _, l := range r.s.logs {
		if l.CreatedAt.After(cutoff) {
			kept = append(kept, l)
		}
	}
	r.s.logs = kept
	return nil
}

type memSnapshotRepo struct{ s *memStore }

func (r *memSnapshotRepo) GetByID(ctx context.Context, id int64) (*domain.ConfigSnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, snap := range r.s.snaps {
		if snap.ID == id {
			cp := *snap
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("snapshot %d not found", id)
}

func (r *memSnapshotRepo) GetCurrent(ctx context.Context, deviceID int64) (*domain.ConfigSnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, snap := range r.s.snaps {
		if snap.DeviceID == deviceID && snap.Current {
			cp := *snap
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memSnapshotRepo) Append(ctx context.Context, snap *domain.ConfigSnapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.snapshotErr != nil {
		return r.s.snapshotErr
	}
	maxVersion := 0
	for _, existing := range r.s.snaps {
		if existing.DeviceID == snap.DeviceID && existing.Version > maxVersion {
			maxVersion = existing.Version
		}
	}
	snap.Version = maxVersion + 1
	if snap.Current {
		for _, existing := range r.s.snaps {
			if existing.DeviceID == snap.DeviceID {
				existing.Current = false
			}
		}
	}
	cp := *snap
	r.s.snaps = append(r.s.snaps, &cp)
	return nil
}

func (r *memSnapshotRepo) ListByDevice(ctx context.Context, deviceID int64, limit int) ([]*domain.ConfigSnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.ConfigSnapshot
	for i := len(r.s.snaps) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.snaps[i].DeviceID == deviceID {
			cp := *r.s.snaps[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}
