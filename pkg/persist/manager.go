package persist

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ripple-dev/ripple/pkg/registry"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// StoreKey names the snapshot in the store. Defaults to "ripple".
	StoreKey string

	// SaveInterval is how often the auto-save loop persists. Zero
	// disables the loop; Save still works when called directly.
	SaveInterval time.Duration

	// SaveTimeout bounds each auto-save's store call. Defaults to 10s.
	SaveTimeout time.Duration
}

// Manager snapshots a registry's persistent cells into a Store and
// restores them on startup. A cell participates when it implements Cell
// and reports Persistent: signals do unless created with Transient,
// resources only when created with WithPersist.
type Manager struct {
	reg    *registry.Registry
	store  Store
	config ManagerConfig
	logger *slog.Logger

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
	loopWG  sync.WaitGroup
}

// NewManager creates a manager for the given registry and store. A nil
// registry means the default registry; a nil logger means slog.Default.
// When config.SaveInterval is positive, a background loop saves on that
// interval until Stop.
func NewManager(reg *registry.Registry, store Store, config ManagerConfig, logger *slog.Logger) *Manager {
	if reg == nil {
		reg = registry.Default
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.StoreKey == "" {
		config.StoreKey = "ripple"
	}
	if config.SaveTimeout <= 0 {
		config.SaveTimeout = 10 * time.Second
	}

	m := &Manager{
		reg:    reg,
		store:  store,
		config: config,
		logger: logger.With("component", "persist"),
		done:   make(chan struct{}),
	}
	if config.SaveInterval > 0 {
		m.loopWG.Add(1)
		go m.saveLoop()
	}
	return m
}

// Capture collects the current values of every persistent cell in the
// registry. Cells whose serialization fails are logged and skipped, so one
// bad cell cannot block the rest from saving.
func (m *Manager) Capture() *Snapshot {
	snap := &Snapshot{
		TakenAt: time.Now().UTC(),
		Cells:   make(map[string]json.RawMessage),
	}
	m.reg.Range(func(key registry.Key, v any) bool {
		c, ok := v.(Cell)
		if !ok || !c.Persistent() {
			return true
		}
		data, err := c.SnapshotValue()
		if err != nil {
			m.logger.Warn("skipping cell in snapshot", "key", key.String(), "error", err)
			return true
		}
		snap.Cells[key.String()] = data
		return true
	})
	return snap
}

// Save captures a snapshot and writes it to the store.
func (m *Manager) Save(ctx context.Context) error {
	snap := m.Capture()
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, m.config.StoreKey, data); err != nil {
		return err
	}
	m.logger.Debug("snapshot saved", "cells", len(snap.Cells), "bytes", len(data))
	return nil
}

// Restore loads the saved snapshot, if any, and writes its values into
// matching live registry cells through their ordinary write path, so
// subscribers react to the restored values. Snapshot entries with no live
// cell are skipped: a raw payload cannot reconstruct a typed cell, so
// restore only fills cells the program has already registered. Call it
// after startup code has built its keyed state.
func (m *Manager) Restore(ctx context.Context) error {
	data, err := m.store.Load(ctx, m.config.StoreKey)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	snap, err := Decode(data)
	if err != nil {
		return err
	}

	restored := 0
	m.reg.Range(func(key registry.Key, v any) bool {
		c, ok := v.(Cell)
		if !ok || !c.Persistent() {
			return true
		}
		raw, ok := snap.Cells[key.String()]
		if !ok {
			return true
		}
		if err := c.RestoreValue(raw); err != nil {
			m.logger.Warn("skipping cell in restore", "key", key.String(), "error", err)
			return true
		}
		restored++
		return true
	})
	m.logger.Debug("snapshot restored", "cells", restored, "taken_at", snap.TakenAt)
	return nil
}

// Clear deletes the saved snapshot from the store.
func (m *Manager) Clear(ctx context.Context) error {
	return m.store.Delete(ctx, m.config.StoreKey)
}

// Stop halts the auto-save loop and performs one final save. Only the
// first call saves; later calls return nil. The store stays open, since
// its lifecycle belongs to whoever injected it.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	close(m.done)
	m.mu.Unlock()

	m.loopWG.Wait()
	return m.Save(ctx)
}

// saveLoop persists on the configured interval until Stop.
func (m *Manager) saveLoop() {
	defer m.loopWG.Done()
	ticker := time.NewTicker(m.config.SaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.config.SaveTimeout)
			if err := m.Save(ctx); err != nil {
				m.logger.Error("periodic snapshot failed", "error", err)
			}
			cancel()
		case <-m.done:
			return
		}
	}
}
