package hotspot

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-routeros/routeros/v3"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/hotspotbill/internal/domain"
	"github.com/talkincode/hotspotbill/internal/hotspot/clients"
)

// fakeClock is an adjustable clock for cache and rate limiter tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testSharedStore(t *testing.T) *SharedStore {
	t.Helper()
	store, err := OpenSharedStore(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testDevice(id int64) *domain.HotspotDevice {
	return &domain.HotspotDevice{
		ID:       id,
		Name:     fmt.Sprintf("gw-%d", id),
		Ipaddr:   "192.168.88.1",
		ApiPort:  8728,
		Username: "admin",
		Password: "secret",
		Status:   domain.DeviceStatusOnline,
	}
}

// fakeRouter is a stateful RouterOS stand-in: it keeps hotspot users in
// memory and answers print/add/set the way a real device would.
type fakeRouter struct {
	Sess *clients.FakeSession

	mu     sync.Mutex
	users  map[string]map[string]string
	nextID int
}

func newFakeRouter() *fakeRouter {
	r := &fakeRouter{
		Sess:  clients.NewFakeSession(),
		users: make(map[string]map[string]string),
	}

	r.Sess.Handle("/ip/hotspot/user/print", func(args []string) (*routeros.Reply, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		name := queryArg(args, "name")
		if name != "" {
			if u, ok := r.users[name]; ok {
				return clients.ReplyRe(copyAttrs(u)), nil
			}
			return clients.ReplyRe(), nil
		}
		var all []map[string]string
		for _, u := range r.users {
			all = append(all, copyAttrs(u))
		}
		return clients.ReplyRe(all...), nil
	})

	r.Sess.Handle("/ip/hotspot/user/add", func(args []string) (*routeros.Reply, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		name := clients.SentenceArg(args, "name")
		if _, exists := r.users[name]; exists {
			return nil, clients.TrapError("failure: already have user with this name")
		}
		r.nextID++
		id := fmt.Sprintf("*%X", r.nextID)
		r.users[name] = map[string]string{
			".id":               id,
			"name":              name,
			"password":          clients.SentenceArg(args, "password"),
			"profile":           clients.SentenceArg(args, "profile"),
			"limit-uptime":      clients.SentenceArg(args, "limit-uptime"),
			"limit-bytes-total": clients.SentenceArg(args, "limit-bytes-total"),
			"disabled":          "false",
		}
		return clients.ReplyDone(map[string]string{"ret": id}), nil
	})

	r.Sess.Handle("/ip/hotspot/user/set", func(args []string) (*routeros.Reply, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		id := clients.SentenceArg(args, ".id")
		for _, u := range r.users {
			if u[".id"] == id {
				if v := clients.SentenceArg(args, "disabled"); v != "" {
					if v == "yes" {
						u["disabled"] = "true"
					} else {
						u["disabled"] = "false"
					}
				}
				return clients.ReplyDone(nil), nil
			}
		}
		return nil, clients.TrapError("no such item")
	})

	return r
}

// AddUser seeds a hotspot user directly, bypassing the API surface.
func (r *fakeRouter) AddUser(name string, disabled bool) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := fmt.Sprintf("*%X", r.nextID)
	state := "false"
	if disabled {
		state = "true"
	}
	r.users[name] = map[string]string{
		".id": id, "name": name, "disabled": state,
	}
	return id
}

func (r *fakeRouter) User(name string) map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[name]; ok {
		return copyAttrs(u)
	}
	return nil
}

func (r *fakeRouter) UserCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func copyAttrs(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// queryArg extracts "?key=value" style query values from a sentence.
func queryArg(args []string, key string) string {
	prefix := "?" + key + "="
	for _, a := range args {
		if strings.HasPrefix(a, prefix) {
			return strings.TrimPrefix(a, prefix)
		}
	}
	return ""
}

// sessionDialer returns a Dialer handing out the given session.
func sessionDialer(sess clients.Session) clients.Dialer {
	return func(addr, username, password string, timeout time.Duration) (clients.Session, error) {
		return sess, nil
	}
}

// newTestDeviceService wires a DeviceService around a fake session with
// generous rate and retry budgets.
func newTestDeviceService(t *testing.T, store Store, sess clients.Session) *DeviceService {
	t.Helper()
	shared := testSharedStore(t)
	conn := NewConnectionManager(time.Second, sessionDialer(sess))
	t.Cleanup(conn.Close)
	limiter := NewRateLimiter(shared, time.Minute, 10000, nil)
	exec := NewExecutor(3, time.Millisecond)
	cache := NewResultCache(shared, nil)
	return NewDeviceService(conn, limiter, exec, cache, store)
}
