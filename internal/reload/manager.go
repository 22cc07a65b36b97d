// Package reload watches the configuration directories and rebuilds the
// format snapshot when files change, with debouncing so one editor save or
// one directory sync triggers a single reload.
package reload

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"photocore/internal/formats"
	"photocore/internal/logging"
	"photocore/pkg/domain"
)

// State is the manager's lifecycle state.
type State string

// Manager states.
const (
	StateIdle       State = "idle"
	StateWatching   State = "watching"
	StateDebouncing State = "debouncing"
	StateReloading  State = "reloading"
	StateStopped    State = "stopped"
)

// Stats accumulates reload outcomes over the manager's lifetime.
type Stats struct {
	TotalReloads       int           `json:"total_reloads"`
	SuccessfulReloads  int           `json:"successful_reloads"`
	FailedReloads      int           `json:"failed_reloads"`
	LastReloadDuration time.Duration `json:"last_reload_duration"`
	LastReloadTime     time.Time     `json:"last_reload_time"`
}

// SuccessRate returns the fraction of reloads that succeeded, 1 when none
// have run yet.
func (s Stats) SuccessRate() float64 {
	if s.TotalReloads == 0 {
		return 1
	}
	return float64(s.SuccessfulReloads) / float64(s.TotalReloads)
}

// Event describes one finished reload attempt. Snapshot is nil when the
// reload failed and the previous snapshot stayed active.
type Event struct {
	Snapshot *formats.Snapshot
	Err      error
	Duration time.Duration
	Trigger  string
}

// Handler receives reload events. Handlers run on the reload goroutine and
// must not block for long.
type Handler func(Event)

// Observer receives reload outcomes for metrics. Implementations must be
// safe for concurrent use.
type Observer interface {
	ReloadFinished(outcome string, d time.Duration)
}

// Manager drives watch-debounce-reload over a format store.
type Manager struct {
	store    *formats.Store
	debounce time.Duration
	logger   logging.Logger
	observer Observer

	mu       sync.Mutex
	state    State
	stats    Stats
	handlers []Handler
	timer    *time.Timer

	watcher  *fsnotify.Watcher
	requests chan string
	done     chan struct{}
	wg       sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithObserver registers a metrics observer.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithDebounce overrides the debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(m *Manager) { m.debounce = d }
}

// NewManager creates a manager for the given store. It does not watch until
// Start is called.
func NewManager(store *formats.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		debounce: 500 * time.Millisecond,
		logger:   logging.Nop(),
		state:    StateIdle,
		requests: make(chan string, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the manager's current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats returns a copy of the accumulated reload statistics.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// OnChange registers a handler notified after every reload attempt, failed
// ones included.
func (m *Manager) OnChange(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// Start begins watching the store's directories. Directories that do not
// exist are logged and skipped; watching the remainder still works.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return fmt.Errorf("reload: manager already started (state %s)", m.state)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("reload: create watcher: %w", err)
	}
	m.watcher = watcher

	watched := 0
	for _, dir := range m.store.Directories() {
		watched += m.watchTree(watcher, dir)
	}
	m.state = StateWatching
	m.mu.Unlock()

	m.wg.Add(2)
	go m.watchLoop(ctx, watcher)
	go m.reloadLoop(ctx)

	m.logger.Info("reload manager started",
		"watched_dirs", watched, "debounce", m.debounce)
	return nil
}

// Stop halts watching and waits for in-flight work. Safe to call once.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.state == StateStopped || m.state == StateIdle {
		m.state = StateStopped
		m.mu.Unlock()
		return
	}
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	watcher := m.watcher
	m.watcher = nil
	m.state = StateStopped
	m.mu.Unlock()

	if watcher != nil {
		_ = watcher.Close()
	}
	close(m.done)
	m.wg.Wait()
	m.logger.Info("reload manager stopped")
}

// ForceReload rebuilds the snapshot immediately, bypassing the debounce.
func (m *Manager) ForceReload(ctx context.Context) error {
	event := m.reload("force")
	return event.Err
}

// watchTree registers dir and every directory below it. Descendant
// directories created while watching are added as their events arrive.
func (m *Manager) watchTree(w *fsnotify.Watcher, dir string) int {
	added := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if werr := w.Add(path); werr != nil {
			m.logger.Warn("cannot watch directory", "dir", path, "error", werr)
			return nil
		}
		added++
		return nil
	})
	if err != nil {
		m.logger.Warn("cannot watch directory", "dir", dir, "error", err)
	}
	return added
}

func (m *Manager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					m.watchTree(watcher, ev.Name)
					continue
				}
			}
			if !relevant(ev) {
				continue
			}
			m.scheduleReload(ev.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("watcher error", "error", err)
		}
	}
}

// relevant filters to configuration document changes. Editors and sync
// tools produce chmod-only noise this drops.
func relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return strings.HasSuffix(ev.Name, ".json")
}

// scheduleReload restarts the debounce timer. A burst of events within the
// window collapses into one reload request.
func (m *Manager) scheduleReload(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateStopped {
		return
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	m.state = StateDebouncing
	m.logger.Debug("change detected", "path", path)
	m.timer = time.AfterFunc(m.debounce, func() {
		select {
		case m.requests <- "watch":
		default:
			// A reload request is already pending; the pending one will
			// pick up this change too.
		}
	})
}

func (m *Manager) reloadLoop(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case trigger := <-m.requests:
			m.reload(trigger)
		}
	}
}

func (m *Manager) reload(trigger string) Event {
	m.mu.Lock()
	prev := m.state
	if prev == StateStopped {
		m.mu.Unlock()
		return Event{Err: fmt.Errorf("reload: manager stopped"), Trigger: trigger}
	}
	m.state = StateReloading
	handlers := append([]Handler(nil), m.handlers...)
	m.mu.Unlock()

	start := time.Now()
	snap, err := m.store.Load()
	duration := time.Since(start)
	if err != nil {
		err = domain.ReloadError{Err: err}
	}

	m.mu.Lock()
	m.stats.TotalReloads++
	m.stats.LastReloadDuration = duration
	m.stats.LastReloadTime = time.Now().UTC()
	outcome := "success"
	if err != nil {
		m.stats.FailedReloads++
		outcome = "failure"
	} else {
		m.stats.SuccessfulReloads++
	}
	if m.state == StateReloading {
		if prev == StateIdle {
			m.state = StateIdle
		} else {
			m.state = StateWatching
		}
	}
	m.mu.Unlock()

	if m.observer != nil {
		m.observer.ReloadFinished(outcome, duration)
	}
	if err != nil {
		m.logger.Error("configuration reload failed",
			"trigger", trigger, "duration", duration, "error", err)
	} else {
		m.logger.Info("configuration reloaded",
			"trigger", trigger, "duration", duration, "formats", snap.Len())
	}

	event := Event{Snapshot: snap, Err: err, Duration: duration, Trigger: trigger}
	for _, h := range handlers {
		h(event)
	}
	return event
}
