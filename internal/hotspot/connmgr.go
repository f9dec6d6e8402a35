package hotspot

import (
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/talkincode/hotspotbill/internal/domain"
	"github.com/talkincode/hotspotbill/internal/hotspot/clients"
)

// ConnectionManager owns one live session per physical device, keyed by
// device id. Stale sessions are recycled after a failed liveness probe.
// Session construction is de-duplicated per device: concurrent callers
// join the in-flight dial instead of racing to open duplicate sessions.
type ConnectionManager struct {
	mu      sync.Mutex
	pool    map[int64]clients.Session
	group   singleflight.Group
	dialer  clients.Dialer
	timeout time.Duration
}

// NewConnectionManager builds a manager with the given dial timeout. A
// nil dialer defaults to the real RouterOS dialer; tests inject a fake.
func NewConnectionManager(timeout time.Duration, dialer clients.Dialer) *ConnectionManager {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if dialer == nil {
		dialer = clients.DialMikrotik
	}
	return &ConnectionManager{
		pool:    make(map[int64]clients.Session),
		dialer:  dialer,
		timeout: timeout,
	}
}

// AcquireSession returns a live session for the device, reusing the
// pooled one when its liveness probe succeeds. Dial and authentication
// failures surface as ConnectionError, which callers classify as
// retryable.
func (m *ConnectionManager) AcquireSession(device *domain.HotspotDevice) (clients.Session, error) {
	m.mu.Lock()
	sess := m.pool[device.ID]
	m.mu.Unlock()

	if sess != nil {
		if m.probe(sess) {
			return sess, nil
		}
		zap.L().Info("discarding stale device session",
			zap.Int64("device_id", device.ID),
			zap.String("ipaddr", device.Ipaddr),
		)
		m.Invalidate(device.ID)
	}

	v, err, _ := m.group.Do(strconv.FormatInt(device.ID, 10), func() (interface{}, error) {
		// Another caller may have rebuilt the session while this one
		// waited on the flight group.
		m.mu.Lock()
		if pooled := m.pool[device.ID]; pooled != nil {
			m.mu.Unlock()
			return pooled, nil
		}
		m.mu.Unlock()

		addr := deviceAddr(device)
		s, err := m.dialer(addr, device.Username, device.Password, m.timeout)
		if err != nil {
			return nil, &ConnectionError{DeviceID: device.ID, Addr: addr, Err: err}
		}

		m.mu.Lock()
		m.pool[device.ID] = s
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(clients.Session), nil
}

// Invalidate closes and drops the pooled session for a device. Callers
// invoke it after transport failures so the next acquire rebuilds.
func (m *ConnectionManager) Invalidate(deviceID int64) {
	m.mu.Lock()
	sess := m.pool[deviceID]
	delete(m.pool, deviceID)
	m.mu.Unlock()

	if sess != nil {
		if err := sess.Close(); err != nil {
			zap.L().Warn("error closing device session",
				zap.Int64("device_id", deviceID),
				zap.Error(err),
			)
		}
	}
}

// Close releases all pooled sessions.
func (m *ConnectionManager) Close() {
	m.mu.Lock()
	sessions := m.pool
	m.pool = make(map[int64]clients.Session)
	m.mu.Unlock()

	for id, sess := range sessions {
		if err := sess.Close(); err != nil {
			zap.L().Warn("error closing device session",
				zap.Int64("device_id", id),
				zap.Error(err),
			)
		}
	}
}

// probe runs a lightweight identity query to verify the session is live.
func (m *ConnectionManager) probe(sess clients.Session) bool {
	_, err := sess.RunArgs([]string{"/system/identity/print"})
	return err == nil
}

func deviceAddr(device *domain.HotspotDevice) string {
	port := device.ApiPort
	if port <= 0 {
		port = 8728 // Default RouterOS API port
	}
	return net.JoinHostPort(device.Ipaddr, strconv.Itoa(port))
}
