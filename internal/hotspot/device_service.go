package hotspot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-routeros/routeros/v3"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/talkincode/hotspotbill/internal/domain"
)

// Cache query names; combined with the device id they form cache keys.
const (
	queryStatistics   = "statistics"
	queryInterfaces   = "interfaces"
	queryHotspotUsers = "hotspot_users"
	queryLogs         = "logs"
)

// DeviceStatistics is the parsed /system/resource snapshot.
type DeviceStatistics struct {
	Uptime      string `json:"uptime"`
	Version     string `json:"version"`
	BoardName   string `json:"board_name"`
	CPULoad     int    `json:"cpu_load"`
	FreeMemory  int64  `json:"free_memory"`
	TotalMemory int64  `json:"total_memory"`
	FreeHDD     int64  `json:"free_hdd_space"`
	TotalHDD    int64  `json:"total_hdd_space"`
}

// DeviceInterface is one row of /interface/print.
type DeviceInterface struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Running  bool   `json:"running"`
	Disabled bool   `json:"disabled"`
	RxByte   int64  `json:"rx_byte"`
	TxByte   int64  `json:"tx_byte"`
}

// RemoteUser is the device-side hotspot account backing a voucher.
type RemoteUser struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Profile    string `json:"profile"`
	Disabled   bool   `json:"disabled"`
	LimitBytes int64  `json:"limit_bytes_total"`
	Uptime     string `json:"uptime"`
	BytesIn    int64  `json:"bytes_in"`
	BytesOut   int64  `json:"bytes_out"`
}

// DeviceLogEntry is one row of /log/print.
type DeviceLogEntry struct {
	Time    string `json:"time"`
	Topics  string `json:"topics"`
	Message string `json:"message"`
}

// DeviceFile is one row of /file/print.
type DeviceFile struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Size         int64  `json:"size"`
	CreationTime string `json:"creation_time"`
}

// DeviceService issues gated calls against RouterOS devices: every
// logical operation passes the rate limiter once, then the retrying
// executor drives attempts through the connection manager. Read-heavy
// queries are memoized in the result cache; every mutation invalidates
// the caches it affects before returning.
type DeviceService struct {
	conn    *ConnectionManager
	limiter *RateLimiter
	exec    *Executor
	cache   *ResultCache
	store   Store
}

// NewDeviceService wires the engine components together.
func NewDeviceService(conn *ConnectionManager, limiter *RateLimiter, exec *Executor, cache *ResultCache, store Store) *DeviceService {
	return &DeviceService{conn: conn, limiter: limiter, exec: exec, cache: cache, store: store}
}

// Cache exposes the result cache to sibling services for invalidation.
func (s *DeviceService) Cache() *ResultCache { return s.cache }

// runCommand executes one logical RouterOS operation. The rate check
// happens exactly once, before any retry attempt.
func (s *DeviceService) runCommand(ctx context.Context, device *domain.HotspotDevice, operation string, args []string) (*routeros.Reply, error) {
	if !s.limiter.CheckAndIncrement(device.ID) {
		return nil, fmt.Errorf("device %d: %w", device.ID, ErrRateLimitExceeded)
	}

	var reply *routeros.Reply
	err := s.exec.Execute(ctx, device.ID, operation, func() error {
		sess, err := s.conn.AcquireSession(device)
		if err != nil {
			return err
		}
		r, err := sess.RunArgs(args)
		if err != nil {
			err = classifyRunError(device.ID, device.Ipaddr, err)
			if IsRetryable(err) {
				s.conn.Invalidate(device.ID)
			}
			return err
		}
		reply = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// GetStatistics returns the device resource snapshot, cached 30s.
func (s *DeviceService) GetStatistics(ctx context.Context, deviceID int64) (*DeviceStatistics, error) {
	device, err := s.store.Devices().GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	stats := new(DeviceStatistics)
	err = s.cache.GetOrCompute(CacheKey(deviceID, queryStatistics), TTLStatistics, stats, func() error {
		reply, err := s.runCommand(ctx, device, "get_statistics", []string{"/system/resource/print"})
		if err != nil {
			return err
		}
		if len(reply.Re) == 0 {
			return fmt.Errorf("device %d returned no resource data", deviceID)
		}
		m := reply.Re[0].Map
		*stats = DeviceStatistics{
			Uptime:      m["uptime"],
			Version:     m["version"],
			BoardName:   m["board-name"],
			CPULoad:     cast.ToInt(m["cpu-load"]),
			FreeMemory:  cast.ToInt64(m["free-memory"]),
			TotalMemory: cast.ToInt64(m["total-memory"]),
			FreeHDD:     cast.ToInt64(m["free-hdd-space"]),
			TotalHDD:    cast.ToInt64(m["total-hdd-space"]),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// GetInterfaces returns the device interface list, cached 30s.
func (s *DeviceService) GetInterfaces(ctx context.Context, deviceID int64) ([]DeviceInterface, error) {
	device, err := s.store.Devices().GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	var ifaces []DeviceInterface
	err = s.cache.GetOrCompute(CacheKey(deviceID, queryInterfaces), TTLInterfaces, &ifaces, func() error {
		reply, err := s.runCommand(ctx, device, "get_interfaces", []string{"/interface/print"})
		if err != nil {
			return err
		}
		ifaces = ifaces[:0]
		for _, re := range reply.Re {
			m := re.Map
			ifaces = append(ifaces, DeviceInterface{
				ID:       m[".id"],
				Name:     m["name"],
				Type:     m["type"],
				Running:  m["running"] == "true",
				Disabled: m["disabled"] == "true",
				RxByte:   cast.ToInt64(m["rx-byte"]),
				TxByte:   cast.ToInt64(m["tx-byte"]),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ifaces, nil
}

// ToggleInterface enables or disables an interface and synchronously
// invalidates the interface cache before reporting success.
func (s *DeviceService) ToggleInterface(ctx context.Context, deviceID int64, ifaceID string, disabled bool) error {
	device, err := s.store.Devices().GetByID(ctx, deviceID)
	if err != nil {
		return err
	}
	state := "no"
	if disabled {
		state = "yes"
	}
	_, err = s.runCommand(ctx, device, "toggle_interface", []string{
		"/interface/set",
		fmt.Sprintf("=.id=%s", ifaceID),
		fmt.Sprintf("=disabled=%s", state),
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(CacheKey(deviceID, queryInterfaces))
	zap.L().Info("interface toggled",
		zap.Int64("device_id", deviceID),
		zap.String("iface_id", ifaceID),
		zap.Bool("disabled", disabled),
	)
	return nil
}

// GetHotspotUsers returns the device hotspot user list, cached 30s.
func (s *DeviceService) GetHotspotUsers(ctx context.Context, deviceID int64) ([]RemoteUser, error) {
	device, err := s.store.Devices().GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	var users []RemoteUser
	err = s.cache.GetOrCompute(CacheKey(deviceID, queryHotspotUsers), TTLHotspotUsers, &users, func() error {
		reply, err := s.runCommand(ctx, device, "get_hotspot_users", []string{"/ip/hotspot/user/print"})
		if err != nil {
			return err
		}
		users = users[:0]
		for _, re := range reply.Re {
			users = append(users, parseRemoteUser(re.Map))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// GetLogs returns recent device log entries, cached 60s.
func (s *DeviceService) GetLogs(ctx context.Context, deviceID int64) ([]DeviceLogEntry, error) {
	device, err := s.store.Devices().GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	var logs []DeviceLogEntry
	err = s.cache.GetOrCompute(CacheKey(deviceID, queryLogs), TTLLogs, &logs, func() error {
		reply, err := s.runCommand(ctx, device, "get_logs", []string{"/log/print"})
		if err != nil {
			return err
		}
		logs = logs[:0]
		for _, re := range reply.Re {
			m := re.Map
			logs = append(logs, DeviceLogEntry{
				Time:    m["time"],
				Topics:  m["topics"],
				Message: m["message"],
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// FindHotspotUser queries the device for one hotspot user by name. The
// read is deliberately uncached: reconciliation depends on fresh device
// state. Returns ErrNotFoundOnDevice when the user does not exist.
func (s *DeviceService) FindHotspotUser(ctx context.Context, device *domain.HotspotDevice, name string) (*RemoteUser, error) {
	reply, err := s.runCommand(ctx, device, "find_hotspot_user", []string{
		"/ip/hotspot/user/print",
		fmt.Sprintf("?name=%s", name),
	})
	if err != nil {
		return nil, err
	}
	if len(reply.Re) == 0 {
		return nil, fmt.Errorf("hotspot user %s: %w", name, ErrNotFoundOnDevice)
	}
	user := parseRemoteUser(reply.Re[0].Map)
	return &user, nil
}

// RemoteUserSpec carries the attributes for a device-side hotspot user.
type RemoteUserSpec struct {
	Name          string
	Password      string
	Profile       string
	ValidityHours int
	DataLimitMB   int64
}

// CreateHotspotUser creates the hotspot user on the device and returns
// its remote id. Creation is check-then-create: if a user with the same
// name already exists, its id is returned instead of re-applying the
// mutation, and duplicate-name traps from racing writers are tolerated
// the same way.
func (s *DeviceService) CreateHotspotUser(ctx context.Context, device *domain.HotspotDevice, spec RemoteUserSpec) (string, error) {
	existing, err := s.FindHotspotUser(ctx, device, spec.Name)
	if err == nil {
		zap.L().Info("hotspot user already present on device, reusing",
			zap.Int64("device_id", device.ID),
			zap.String("name", spec.Name),
		)
		return existing.ID, nil
	}
	if !IsNotFoundOnDevice(err) {
		return "", err
	}

	args := []string{
		"/ip/hotspot/user/add",
		fmt.Sprintf("=name=%s", spec.Name),
		fmt.Sprintf("=password=%s", spec.Password),
		fmt.Sprintf("=profile=%s", spec.Profile),
		fmt.Sprintf("=limit-uptime=%dh", spec.ValidityHours),
	}
	if spec.DataLimitMB > 0 {
		args = append(args, fmt.Sprintf("=limit-bytes-total=%d", spec.DataLimitMB*1024*1024))
	}

	reply, err := s.runCommand(ctx, device, "create_hotspot_user", args)
	if err != nil {
		if msg := trapMessage(err); strings.Contains(msg, "already") {
			// Lost a create race; the existing record wins.
			if existing, ferr := s.FindHotspotUser(ctx, device, spec.Name); ferr == nil {
				return existing.ID, nil
			}
		}
		return "", err
	}

	s.cache.Invalidate(CacheKey(device.ID, queryHotspotUsers))

	remoteID := ""
	if reply.Done != nil {
		remoteID = reply.Done.Map["ret"]
	}
	if remoteID == "" {
		// Some RouterOS builds omit the ret id; fall back to a lookup.
		if created, ferr := s.FindHotspotUser(ctx, device, spec.Name); ferr == nil {
			remoteID = created.ID
		}
	}
	if remoteID == "" {
		return "", fmt.Errorf("no user id returned from device %d for %s", device.ID, spec.Name)
	}

	zap.L().Info("hotspot user created",
		zap.Int64("device_id", device.ID),
		zap.String("name", spec.Name),
		zap.String("remote_id", remoteID),
		zap.String("profile", spec.Profile),
	)
	return remoteID, nil
}

// DisableHotspotUser disables a hotspot user on the device. The set
// command is naturally idempotent so retries are safe.
func (s *DeviceService) DisableHotspotUser(ctx context.Context, device *domain.HotspotDevice, remoteID string) error {
	_, err := s.runCommand(ctx, device, "disable_hotspot_user", []string{
		"/ip/hotspot/user/set",
		fmt.Sprintf("=.id=%s", remoteID),
		"=disabled=yes",
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(CacheKey(device.ID, queryHotspotUsers))
	return nil
}

// RemoveHotspotUser removes a hotspot user from the device.
func (s *DeviceService) RemoveHotspotUser(ctx context.Context, device *domain.HotspotDevice, remoteID string) error {
	_, err := s.runCommand(ctx, device, "remove_hotspot_user", []string{
		"/ip/hotspot/user/remove",
		fmt.Sprintf("=.id=%s", remoteID),
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(CacheKey(device.ID, queryHotspotUsers))
	return nil
}

// Identity runs the identity query, used by the monitoring job.
func (s *DeviceService) Identity(ctx context.Context, device *domain.HotspotDevice) (string, error) {
	reply, err := s.runCommand(ctx, device, "identity", []string{"/system/identity/print"})
	if err != nil {
		return "", err
	}
	if len(reply.Re) > 0 {
		return reply.Re[0].Map["name"], nil
	}
	return "", nil
}

// SaveBackup creates a device-side backup file.
func (s *DeviceService) SaveBackup(ctx context.Context, device *domain.HotspotDevice, name string) error {
	_, err := s.runCommand(ctx, device, "save_backup", []string{
		"/system/backup/save",
		fmt.Sprintf("=name=%s", name),
	})
	return err
}

// LoadBackup restores a device-side backup file. The device reboots
// afterwards, so the pooled session is invalidated.
func (s *DeviceService) LoadBackup(ctx context.Context, device *domain.HotspotDevice, name string) error {
	_, err := s.runCommand(ctx, device, "load_backup", []string{
		"/system/backup/load",
		fmt.Sprintf("=name=%s", name),
	})
	if err != nil {
		return err
	}
	s.conn.Invalidate(device.ID)
	return nil
}

// ListFiles lists files stored on the device.
func (s *DeviceService) ListFiles(ctx context.Context, device *domain.HotspotDevice) ([]DeviceFile, error) {
	reply, err := s.runCommand(ctx, device, "list_files", []string{"/file/print"})
	if err != nil {
		return nil, err
	}
	files := make([]DeviceFile, 0, len(reply.Re))
	for _, re := range reply.Re {
		m := re.Map
		files = append(files, DeviceFile{
			Name:         m["name"],
			Type:         m["type"],
			Size:         cast.ToInt64(m["size"]),
			CreationTime: m["creation-time"],
		})
	}
	return files, nil
}

// IsNotFoundOnDevice reports the benign device-side miss.
func IsNotFoundOnDevice(err error) bool {
	return errors.Is(err, ErrNotFoundOnDevice)
}

func parseRemoteUser(m map[string]string) RemoteUser {
	return RemoteUser{
		ID:         m[".id"],
		Name:       m["name"],
		Profile:    m["profile"],
		Disabled:   m["disabled"] == "true",
		LimitBytes: cast.ToInt64(m["limit-bytes-total"]),
		Uptime:     m["uptime"],
		BytesIn:    cast.ToInt64(m["bytes-in"]),
		BytesOut:   cast.ToInt64(m["bytes-out"]),
	}
}
