package datastore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"github.com/quillsync/docstore/internal/docerr"
	"github.com/quillsync/docstore/internal/eventbus"
	"github.com/quillsync/docstore/internal/storage/sqlite"
)

// Manager owns every opened Datastore under one root directory and is
// the only thing allowed to create, open, or delete one (spec.md §4.5).
// Two opens of the same name return the same *Datastore; opening
// concurrently with a delete is serialized by the manager's own lock,
// the advisory per-datastore flock guarding against a second process.
type Manager struct {
	root string
	bus  *eventbus.Bus

	mu   sync.Mutex
	open map[string]*Datastore

	watcher *fsnotify.Watcher
}

// NewManager creates root if it doesn't exist and starts watching it
// for datastore directories removed out from under the manager (e.g.
// by an operator deleting files directly). Watch failures are logged,
// not fatal — the manager degrades to trusting its own open map.
func NewManager(root string, bus *eventbus.Bus) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, docerr.New(docerr.KindIO, "datastore.NewManager", err)
	}
	m := &Manager{root: root, bus: bus, open: make(map[string]*Datastore)}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("datastore manager: fsnotify unavailable, external removal won't be detected", "error", err)
		return m, nil
	}
	if err := watcher.Add(root); err != nil {
		slog.Warn("datastore manager: failed to watch root", "root", root, "error", err)
		_ = watcher.Close()
		return m, nil
	}
	m.watcher = watcher
	go m.watchExternalRemovals()
	return m, nil
}

func (m *Manager) watchExternalRemovals() {
	for {
		select {
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			m.mu.Lock()
			if ds, stillOpen := m.open[name]; stillOpen {
				delete(m.open, name)
				_ = ds.close()
				m.bus.Publish(eventbus.Event{Type: eventbus.DatastoreDeleted, Name: name})
			}
			m.mu.Unlock()
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("datastore manager: fsnotify error", "error", err)
		}
	}
}

// Close stops the manager's filesystem watch. It does not close any
// open datastore.
func (m *Manager) Close() error {
	if m.watcher == nil {
		return nil
	}
	return m.watcher.Close()
}

func (m *Manager) dirFor(name string) string {
	return filepath.Join(m.root, name)
}

// Open returns the named datastore, creating its on-disk directory and
// schema on first use. A second Open of an already-open name returns
// the same *Datastore rather than a new connection pool.
func (m *Manager) Open(ctx context.Context, name string) (*Datastore, error) {
	const op = "datastore.Manager.Open"

	if err := ValidateName(name); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if ds, ok := m.open[name]; ok {
		return ds, nil
	}

	dirPath := m.dirFor(name)
	_, statErr := os.Stat(dirPath)
	isNew := os.IsNotExist(statErr)

	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return nil, docerr.New(docerr.KindIO, op, err)
	}
	attachmentsDir := filepath.Join(dirPath, "attachments")
	if err := os.MkdirAll(attachmentsDir, 0o755); err != nil {
		return nil, docerr.New(docerr.KindIO, op, err)
	}

	lock := flock.New(filepath.Join(dirPath, ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, docerr.New(docerr.KindIO, op, fmt.Errorf("acquiring datastore lock: %w", err))
	}
	if !locked {
		return nil, docerr.New(docerr.KindIO, op, fmt.Errorf("datastore %q is already open in another process", name))
	}

	store, err := sqlite.Open(ctx, filepath.Join(dirPath, "store.db"))
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	ds := newDatastore(name, store, attachmentsDir, lock)
	m.open[name] = ds

	if isNew {
		m.bus.Publish(eventbus.Event{Type: eventbus.DatastoreCreated, Name: name})
	} else {
		m.bus.Publish(eventbus.Event{Type: eventbus.DatastoreOpened, Name: name})
	}
	return ds, nil
}

// CloseDatastore releases name's connections and advisory lock without
// removing it from disk. A later Open reopens it fresh.
func (m *Manager) CloseDatastore(name string) error {
	const op = "datastore.Manager.Close"

	m.mu.Lock()
	defer m.mu.Unlock()

	ds, ok := m.open[name]
	if !ok {
		return docerr.New(docerr.KindNotFound, op, fmt.Errorf("datastore %q is not open", name))
	}
	if err := ds.close(); err != nil {
		return err
	}
	delete(m.open, name)
	m.bus.Publish(eventbus.Event{Type: eventbus.DatastoreClosed, Name: name})
	return nil
}

// Delete closes (if open) and permanently removes name's directory.
// Deleting a name with no on-disk directory fails with KindNotFound.
func (m *Manager) Delete(ctx context.Context, name string) error {
	const op = "datastore.Manager.Delete"

	if err := ValidateName(name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dirPath := m.dirFor(name)
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return docerr.New(docerr.KindNotFound, op, fmt.Errorf("datastore %q does not exist", name))
	}

	if ds, ok := m.open[name]; ok {
		if err := ds.close(); err != nil {
			return err
		}
		delete(m.open, name)
	}

	if err := os.RemoveAll(dirPath); err != nil {
		return docerr.New(docerr.KindIO, op, err)
	}
	m.bus.Publish(eventbus.Event{Type: eventbus.DatastoreDeleted, Name: name})
	return nil
}

// Names returns every currently open datastore name, in unspecified order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.open))
	for name := range m.open {
		out = append(out, name)
	}
	return out
}
