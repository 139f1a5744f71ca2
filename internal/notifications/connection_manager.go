package notifications

import (
	"context"
	"strconv"
	"sync"
	"time"

	"shutterhub/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	presenceOnlineSetKey  = "presence:online"
	presenceSeenKeyPrefix = "presence:seen:"
	presenceTTL           = 90 * time.Second
	offlineGrace          = 5 * time.Second
	reaperInterval        = 60 * time.Second
)

// ConnectionManagerConfig overrides presence timings. Zero values keep the defaults.
type ConnectionManagerConfig struct {
	SeenTTL        time.Duration
	OfflineGrace   time.Duration
	ReaperInterval time.Duration
}

// ConnectionManager counts local connections per user and mirrors presence in Redis so
// other instances (and the inbox's online flag) can see it. Going offline waits out a
// grace period so a quick reconnect does not flap.
type ConnectionManager struct {
	rdb *redis.Client

	mu       sync.RWMutex
	local    map[uint]int
	timers   map[uint]*time.Timer
	notified map[uint]bool

	seenTTL time.Duration
	grace   time.Duration
	reap    time.Duration

	onOnline  func(userID uint)
	onOffline func(userID uint)

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewConnectionManager creates a manager and starts the Redis reaper when Redis is set.
func NewConnectionManager(rdb *redis.Client, cfg ConnectionManagerConfig) *ConnectionManager {
	m := &ConnectionManager{
		rdb:      rdb,
		local:    make(map[uint]int),
		timers:   make(map[uint]*time.Timer),
		notified: make(map[uint]bool),
		seenTTL:  presenceTTL,
		grace:    offlineGrace,
		reap:     reaperInterval,
		stopCh:   make(chan struct{}),
	}
	if cfg.SeenTTL > 0 {
		m.seenTTL = cfg.SeenTTL
	}
	if cfg.OfflineGrace > 0 {
		m.grace = cfg.OfflineGrace
	}
	if cfg.ReaperInterval > 0 {
		m.reap = cfg.ReaperInterval
	}
	if m.rdb != nil {
		go m.reaperLoop()
	}
	return m
}

// SetCallbacks installs online/offline hooks.
func (m *ConnectionManager) SetCallbacks(onOnline, onOffline func(userID uint)) {
	m.mu.Lock()
	m.onOnline = onOnline
	m.onOffline = onOffline
	m.mu.Unlock()
}

// SetOfflineGracePeriod changes the delay before a disconnected user is reported offline.
func (m *ConnectionManager) SetOfflineGracePeriod(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.grace = d
	m.mu.Unlock()
}

// Stop halts the reaper and pending offline timers.
func (m *ConnectionManager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.mu.Lock()
		for id, t := range m.timers {
			t.Stop()
			delete(m.timers, id)
		}
		m.mu.Unlock()
	})
}

// Register records a new local connection for userID.
func (m *ConnectionManager) Register(ctx context.Context, userID uint) {
	wasOnline := m.IsOnline(ctx, userID)

	m.mu.Lock()
	if t, ok := m.timers[userID]; ok {
		t.Stop()
		delete(m.timers, userID)
	}
	m.local[userID]++
	m.mu.Unlock()

	m.Touch(ctx, userID)
	if !wasOnline {
		m.emit(userID, true)
	}
}

// Touch refreshes the Redis presence entry of userID.
func (m *ConnectionManager) Touch(ctx context.Context, userID uint) {
	if m.rdb == nil {
		return
	}
	uid := strconv.FormatUint(uint64(userID), 10)
	pipe := m.rdb.TxPipeline()
	pipe.SAdd(ctx, presenceOnlineSetKey, uid)
	pipe.Set(ctx, presenceSeenKeyPrefix+uid, time.Now().Unix(), m.seenTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		middleware.Logger.WarnContext(ctx, "presence touch failed", "user_id", userID, "error", err)
	}
}

// Unregister drops one local connection. The last one starts the offline grace timer.
func (m *ConnectionManager) Unregister(ctx context.Context, userID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.local[userID]; n > 1 {
		m.local[userID] = n - 1
		return
	}
	delete(m.local, userID)
	if t, ok := m.timers[userID]; ok {
		t.Stop()
	}
	m.timers[userID] = time.AfterFunc(m.grace, func() {
		m.finalizeOffline(context.WithoutCancel(ctx), userID)
	})
}

// IsOnline reports local connections first, then Redis presence.
func (m *ConnectionManager) IsOnline(ctx context.Context, userID uint) bool {
	m.mu.RLock()
	n := m.local[userID]
	m.mu.RUnlock()
	if n > 0 {
		return true
	}
	if m.rdb == nil {
		return false
	}
	exists, err := m.rdb.Exists(ctx, presenceSeenKeyPrefix+strconv.FormatUint(uint64(userID), 10)).Result()
	return err == nil && exists > 0
}

func (m *ConnectionManager) finalizeOffline(ctx context.Context, userID uint) {
	m.mu.Lock()
	delete(m.timers, userID)
	stillLocal := m.local[userID] > 0
	m.mu.Unlock()
	if stillLocal {
		return
	}

	if m.rdb != nil {
		uid := strconv.FormatUint(uint64(userID), 10)
		// Drop our own presence key; another instance holding the user re-touches it.
		_ = m.rdb.Del(ctx, presenceSeenKeyPrefix+uid).Err()
		_ = m.rdb.SRem(ctx, presenceOnlineSetKey, uid).Err()
	}
	m.emit(userID, false)
}

// reapOnce removes set members whose seen key expired.
func (m *ConnectionManager) reapOnce(ctx context.Context) {
	members, err := m.rdb.SMembers(ctx, presenceOnlineSetKey).Result()
	if err != nil {
		return
	}
	for _, raw := range members {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			_ = m.rdb.SRem(ctx, presenceOnlineSetKey, raw).Err()
			continue
		}
		exists, err := m.rdb.Exists(ctx, presenceSeenKeyPrefix+raw).Result()
		if err != nil || exists > 0 {
			continue
		}
		_ = m.rdb.SRem(ctx, presenceOnlineSetKey, raw).Err()

		m.mu.RLock()
		hasLocal := m.local[uint(id)] > 0
		m.mu.RUnlock()
		if !hasLocal {
			m.emit(uint(id), false)
		}
	}
}

func (m *ConnectionManager) reaperLoop() {
	ticker := time.NewTicker(m.reap)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.reapOnce(context.Background())
		}
	}
}

// emit fires the online/offline hook once per transition.
func (m *ConnectionManager) emit(userID uint, online bool) {
	m.mu.Lock()
	if !online && m.notified[userID] {
		m.mu.Unlock()
		return
	}
	m.notified[userID] = !online
	cb := m.onOffline
	if online {
		cb = m.onOnline
	}
	m.mu.Unlock()
	if cb != nil {
		cb(userID)
	}
}
