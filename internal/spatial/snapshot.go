package spatial

import (
	"context"
	"errors"
	"io/fs"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/stardex-io/stardex/internal/domain"
	"github.com/stardex-io/stardex/internal/metrics"
)

// ManagerConfig controls the snapshot lifecycle.
type ManagerConfig struct {
	// CachePath is where the binary artifact lives. Empty disables the
	// cache entirely.
	CachePath string
}

// Manager owns the published snapshot. Readers get the current index
// via Current without locking; rebuild triggers are collapsed so
// concurrent callers share one build.
type Manager struct {
	cfg     ManagerConfig
	source  Source
	logger  *zap.Logger
	current atomic.Pointer[Index]
	group   singleflight.Group
}

func NewManager(source Source, cfg ManagerConfig, logger *zap.Logger) *Manager {
	return &Manager{cfg: cfg, source: source, logger: logger}
}

// Start publishes the first snapshot: from the cache artifact when it
// is valid for the current exports, otherwise from a fresh build. A
// missing or rejected cache is never fatal; an unreachable catalog is.
func (m *Manager) Start(ctx context.Context) error {
	if m.cfg.CachePath != "" {
		idx, err := LoadCache(m.cfg.CachePath, m.source.SourcePaths())
		switch {
		case err == nil:
			m.publish(idx)
			metrics.SnapshotCacheLoadsTotal.WithLabelValues("hit").Inc()
			m.logger.Info("snapshot loaded from cache",
				zap.Int("systems", idx.Len()),
				zap.String("fingerprint", idx.Fingerprint()),
			)
			return nil
		case errors.Is(err, fs.ErrNotExist):
			metrics.SnapshotCacheLoadsTotal.WithLabelValues("miss").Inc()
			m.logger.Info("no snapshot cache, building from catalog")
		case errors.Is(err, ErrCacheStale):
			metrics.SnapshotCacheLoadsTotal.WithLabelValues("stale").Inc()
			m.logger.Warn("snapshot cache stale, rebuilding", zap.Error(err))
		default:
			metrics.SnapshotCacheLoadsTotal.WithLabelValues("corrupt").Inc()
			m.logger.Warn("snapshot cache rejected, rebuilding", zap.Error(err))
		}
	}

	_, err := m.Rebuild(ctx)
	return err
}

// Rebuild builds and publishes a new snapshot. Concurrent calls share a
// single build. The previous snapshot keeps serving until the new one
// is published, and stays published if the build fails. Cache write
// failures are logged and swallowed.
func (m *Manager) Rebuild(ctx context.Context) (*Index, error) {
	v, err, _ := m.group.Do("rebuild", func() (any, error) {
		start := time.Now()
		idx, err := Build(ctx, m.source, m.logger)
		if err != nil {
			metrics.SnapshotRebuildsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.SnapshotRebuildsTotal.WithLabelValues("ok").Inc()
		metrics.SnapshotRebuildDuration.Observe(time.Since(start).Seconds())

		m.publish(idx)

		if m.cfg.CachePath != "" {
			if err := SaveCache(idx, m.cfg.CachePath); err != nil {
				m.logger.Warn("snapshot cache write failed", zap.Error(err))
			}
		}
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

// Current returns the published snapshot.
func (m *Manager) Current() (*Index, error) {
	idx := m.current.Load()
	if idx == nil {
		return nil, domain.ErrSnapshotUnavailable
	}
	return idx, nil
}

func (m *Manager) publish(idx *Index) {
	m.current.Store(idx)
	metrics.SnapshotSystems.Set(float64(idx.Len()))
	metrics.SnapshotBuiltTimestamp.Set(float64(idx.BuiltAt().Unix()))
}
