package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"pokertracker/internal/auth"
	"pokertracker/internal/cache"
	"pokertracker/internal/core"
	"pokertracker/internal/log"
	"pokertracker/internal/stats"
	"pokertracker/internal/storage"
)

const statsCacheSize = 512

// StatsService computes dashboard reports and export sets. Reports are
// cached per owner, range and day; concurrent misses for the same key share
// one computation.
//
// The key also carries the owner's local generation, bumped by Invalidate,
// and the store's session version when the store reports one. A write in this
// process therefore never meets a report computed before it, and a write by
// another process is seen on the next Report.
type StatsService struct {
	store    storage.SessionStore
	versions storage.SessionVersioner
	cache    *cache.LRUCache[stats.Report]
	group    singleflight.Group
	now      func() time.Time
	logger   *log.Logger

	mu          sync.Mutex
	generations map[uuid.UUID]uint64
}

// NewStatsService caches reports for ttl. A zero ttl disables caching.
func NewStatsService(store storage.SessionStore, ttl time.Duration, logger *log.Logger) *StatsService {
	if logger == nil {
		logger = log.Default()
	}
	svc := &StatsService{
		store:       store,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.WithComponent(log.ComponentStats),
		generations: make(map[uuid.UUID]uint64),
	}
	if v, ok := store.(storage.SessionVersioner); ok {
		svc.versions = v
	}
	if ttl > 0 {
		svc.cache = cache.NewLRUCache[stats.Report](statsCacheSize, ttl)
	}
	return svc
}

// WithClock replaces the clock, for tests.
func (svc *StatsService) WithClock(now func() time.Time) *StatsService {
	svc.now = now
	return svc
}

// Cache exposes the report cache so it can be registered for cleanup. It is
// nil when caching is disabled.
func (svc *StatsService) Cache() *cache.LRUCache[stats.Report] {
	return svc.cache
}

// Report returns stats and the cumulative series for the caller over r.
func (svc *StatsService) Report(ctx context.Context, id auth.Identity, r stats.ChartRange) (stats.Report, error) {
	now := svc.now()
	r = stats.ParseChartRange(string(r))

	// Both are read before the sessions so a write racing the list moves
	// the key away from this computation.
	gen := svc.generation(id.UserID)
	version, err := svc.storeVersion(ctx, id.UserID)
	if err != nil {
		return stats.Report{}, err
	}
	key := cacheKey(id.UserID, r, now, gen, version)

	if svc.cache != nil {
		if report, ok := svc.cache.Get(key); ok {
			return report, nil
		}
	}

	v, err, _ := svc.group.Do(key, func() (any, error) {
		sessions, err := svc.store.ListSessions(ctx, id.UserID)
		if err != nil {
			return stats.Report{}, fmt.Errorf("list sessions for stats: %w", err)
		}
		report := stats.Compute(sessions, r, now)
		if svc.cache != nil && svc.generation(id.UserID) == gen {
			svc.cache.Set(key, report)
		}
		svc.logger.DebugContext(ctx, "Computed stats",
			log.FieldOwnerID, id.UserID,
			log.FieldRange, r,
			log.FieldCount, report.Stats.TotalSessions)
		return report, nil
	})
	if err != nil {
		return stats.Report{}, err
	}
	return v.(stats.Report), nil
}

// Export returns the caller's sessions inside r, oldest first.
func (svc *StatsService) Export(ctx context.Context, id auth.Identity, r stats.ExportRange) ([]core.Session, error) {
	sessions, err := svc.store.ListSessions(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("list sessions for export: %w", err)
	}
	filtered := r.Filter(sessions, svc.now())
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Date.IsBefore(filtered[j].Date)
	})
	return filtered, nil
}

// Invalidate retires every cached report of owner. Entries under the old
// generation are no longer reachable and age out of the LRU.
func (svc *StatsService) Invalidate(owner uuid.UUID) {
	svc.mu.Lock()
	svc.generations[owner]++
	svc.mu.Unlock()
}

func (svc *StatsService) generation(owner uuid.UUID) uint64 {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.generations[owner]
}

func (svc *StatsService) storeVersion(ctx context.Context, owner uuid.UUID) (int64, error) {
	if svc.versions == nil {
		return 0, nil
	}
	v, err := svc.versions.SessionsVersion(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("read session version: %w", err)
	}
	return v, nil
}

// Window boundaries move at midnight, so the day is part of the key.
func cacheKey(owner uuid.UUID, r stats.ChartRange, now time.Time, gen uint64, version int64) string {
	return owner.String() + "|" + string(r) + "|" + core.DateOf(now).String() +
		"|" + strconv.FormatUint(gen, 10) + "|" + strconv.FormatInt(version, 10)
}
