// Package dataset holds the active registration snapshot that the query API reads from.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
	"github.com/aevon-lab/vahan-pulse/internal/core/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const defaultLoadTimeout = 30 * time.Second

// ErrNoSnapshot is returned when no load has succeeded yet.
var ErrNoSnapshot = errors.New("dataset not loaded")

// Snapshot is an immutable, fully loaded record set.
// Records is shared between readers and must not be modified.
type Snapshot struct {
	ID       uuid.UUID
	LoadedAt time.Time
	Source   string
	Fallback bool
	Records  []v1.Registration
}

// Recorder receives load outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	DatasetLoaded(records int, loadedAt time.Time, fallback bool)
	DatasetLoadFailed()
}

// Options configures a Manager.
type Options struct {
	// Fallback is tried when the primary source fails.
	Fallback    storage.RecordSource
	LoadTimeout time.Duration
	Metrics     Recorder
}

// Manager loads snapshots from a source and swaps them in atomically.
// Concurrent reloads collapse into one load.
type Manager struct {
	primary     storage.RecordSource
	fallback    storage.RecordSource
	loadTimeout time.Duration
	metrics     Recorder

	current atomic.Pointer[Snapshot]
	group   singleflight.Group
	now     func() time.Time
}

// NewManager creates a manager with no snapshot. Call Reload before serving.
func NewManager(primary storage.RecordSource, opts Options) *Manager {
	timeout := opts.LoadTimeout
	if timeout <= 0 {
		timeout = defaultLoadTimeout
	}
	return &Manager{
		primary:     primary,
		fallback:    opts.Fallback,
		loadTimeout: timeout,
		metrics:     opts.Metrics,
		now:         time.Now,
	}
}

// Current returns the active snapshot.
func (m *Manager) Current() (*Snapshot, error) {
	snap := m.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// Reload loads a fresh snapshot and makes it current. On failure the previous
// snapshot stays active and the error is returned.
// The shared load ignores caller cancellation and is bounded by the load timeout
// alone; a cancelled caller stops waiting while joined callers still get the result.
func (m *Manager) Reload(ctx context.Context) (*Snapshot, error) {
	loadCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan("reload", func() (interface{}, error) {
		return m.load(loadCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			slog.Debug("[Dataset] Reload joined an in-flight load")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

func (m *Manager) load(ctx context.Context) (*Snapshot, error) {
	loadCtx, cancel := context.WithTimeout(ctx, m.loadTimeout)
	defer cancel()

	started := m.now()
	records, err := m.primary.Load(loadCtx)
	source, fallback := m.primary.Describe(), false

	if err != nil && m.fallback != nil {
		slog.Warn("[Dataset] Primary source failed, loading fallback",
			"primary", m.primary.Describe(),
			"fallback", m.fallback.Describe(),
			"error", err)

		var fbErr error
		records, fbErr = m.fallback.Load(loadCtx)
		if fbErr != nil {
			err = errors.Join(err, fmt.Errorf("fallback: %w", fbErr))
		} else {
			err = nil
			source, fallback = m.fallback.Describe(), true
		}
	}
	if err != nil {
		if m.metrics != nil {
			m.metrics.DatasetLoadFailed()
		}
		slog.Error("[Dataset] Reload failed, keeping previous snapshot", "error", err)
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	if records == nil {
		records = []v1.Registration{}
	}
	snap := &Snapshot{
		ID:       uuid.New(),
		LoadedAt: m.now().UTC(),
		Source:   source,
		Fallback: fallback,
		Records:  records,
	}
	m.current.Store(snap)

	if m.metrics != nil {
		m.metrics.DatasetLoaded(len(records), snap.LoadedAt, fallback)
	}
	slog.Info("[Dataset] Snapshot loaded",
		"dataset_id", snap.ID,
		"source", source,
		"fallback", fallback,
		"records", len(records),
		"duration", m.now().Sub(started))
	return snap, nil
}
