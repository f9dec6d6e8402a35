package hotspot

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

type rateWindow struct {
	Count       int   `json:"count"`
	WindowStart int64 `json:"window_start"` // unix nanos
}

// RateLimiter bounds outbound calls per device inside a fixed window. The
// counters live in the shared store so concurrent workers draw from the
// same budget.
//
// Counting policy: the limiter is consulted once per logical operation,
// before the first attempt. Retries of the same operation do not consume
// additional slots. Store failures fail open (treated as not yet
// limited) so a broken counter file never blocks all device traffic.
type RateLimiter struct {
	store  *SharedStore
	window time.Duration
	limit  int
	now    func() time.Time
}

// NewRateLimiter builds a limiter over the shared store. A nil clock
// defaults to time.Now.
func NewRateLimiter(store *SharedStore, window time.Duration, limit int, now func() time.Time) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if limit <= 0 {
		limit = 100
	}
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{store: store, window: window, limit: limit, now: now}
}

// CheckAndIncrement consumes one slot from the device's window. It
// returns false once the ceiling is hit; the counter resets automatically
// when the window elapses.
func (r *RateLimiter) CheckAndIncrement(deviceID int64) bool {
	key := []byte(fmt.Sprintf("dev:%d", deviceID))
	allowed := true
	err := r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketRateWindows))
		var win rateWindow
		if raw := b.Get(key); raw != nil {
			_ = json.Unmarshal(raw, &win)
		}
		now := r.now()
		if win.WindowStart == 0 || now.Sub(time.Unix(0, win.WindowStart)) >= r.window {
			win = rateWindow{WindowStart: now.UnixNano()}
		}
		if win.Count >= r.limit {
			allowed = false
			return nil
		}
		win.Count++
		raw, err := json.Marshal(win)
		if err != nil {
			return err
		}
		return b.Put(key, raw)
	})
	if err != nil {
		zap.L().Warn("rate limiter store failed, failing open",
			zap.Int64("device_id", deviceID), zap.Error(err))
		return true
	}
	if !allowed {
		zap.L().Warn("rate limit exceeded",
			zap.Int64("device_id", deviceID),
			zap.Int("limit", r.limit),
			zap.Duration("window", r.window))
	}
	return allowed
}
