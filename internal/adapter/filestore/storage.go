// Package filestore implements port.KeyValueStore as one file per key in a
// directory shared by every process of the deployment. Changes made by
// other processes are picked up through fsnotify.
package filestore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"agency-hub/internal/core/port"
)

const (
	fileSuffix = ".kv"
	tempPrefix = ".tmp-"

	// ownHistory bounds the own writes remembered per key.
	ownHistory = 8
)

// Storage is one process's handle on the directory.
type Storage struct {
	dir    string
	logger *slog.Logger

	// own holds the files this handle recently renamed into place per key;
	// removed counts this handle's removals whose events are still pending.
	mu       sync.Mutex
	own      map[string][]os.FileInfo
	removed  map[string]int
	watchers map[int]func(port.Change)
	nextID   int

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Open creates dir if needed and starts watching it.
func Open(dir string, logger *slog.Logger) (*Storage, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err = w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch storage dir: %w", err)
	}
	s := &Storage{
		dir:      dir,
		logger:   logger,
		own:      map[string][]os.FileInfo{},
		removed:  map[string]int{},
		watchers: map[int]func(port.Change){},
		watcher:  w,
		done:     make(chan struct{}),
	}
	go s.loop()
	return s, nil
}

// Close stops watching the directory.
func (s *Storage) Close() error {
	err := s.watcher.Close()
	<-s.done
	return err
}

// Get implements port.KeyValueStore.
func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	raw, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %q: %w", key, err)
	}
	return string(raw), true, nil
}

// Set implements port.KeyValueStore. The value is written to a temporary
// file and renamed into place so readers never see a partial value.
func (s *Storage) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %q: %w", key, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	info, err := os.Stat(tmp.Name())
	if err != nil {
		return fmt.Errorf("stat temp file: %w", err)
	}

	s.mu.Lock()
	own := append(s.own[key], info)
	if len(own) > ownHistory {
		own = own[len(own)-ownHistory:]
	}
	s.own[key] = own
	s.mu.Unlock()

	if err = os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("replace %q: %w", key, err)
	}
	return nil
}

// Remove implements port.KeyValueStore.
func (s *Storage) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	delete(s.own, key)
	s.removed[key]++
	return nil
}

// Watch implements port.KeyValueStore. Callbacks run on the watcher
// goroutine, in event order.
func (s *Storage) Watch(fn func(port.Change)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

func (s *Storage) loop() {
	defer close(s.done)
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handle(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("storage watcher error", slog.Any("error", err))
		}
	}
}

func (s *Storage) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	key, ok := s.keyFromPath(event.Name)
	if !ok {
		return
	}

	ch, info, err := readChange(event.Name, key)
	if err != nil {
		s.logger.Debug("read changed key", slog.String("key", key), slog.Any("error", err))
		return
	}

	s.mu.Lock()
	if s.ownEvent(key, ch, info, event.Has(fsnotify.Remove)) {
		s.mu.Unlock()
		return
	}
	fns := make([]func(port.Change), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ch)
	}
}

// ownEvent reports whether the event describes this handle's own write.
// A present value is ours only when the file is the very one this handle
// renamed into place, so an equal value written by another process is
// still reported. Remove events are matched to this handle's removals in
// order. Must be called with s.mu held.
func (s *Storage) ownEvent(key string, ch port.Change, info os.FileInfo, removal bool) bool {
	pending := s.removed[key]
	if removal && pending > 0 {
		if pending == 1 {
			delete(s.removed, key)
		} else {
			s.removed[key] = pending - 1
		}
	}
	if !ch.Present {
		return pending > 0
	}
	for _, own := range s.own[key] {
		if sameWrite(own, info) {
			return true
		}
	}
	return false
}

func sameWrite(a, b os.FileInfo) bool {
	return os.SameFile(a, b) && a.ModTime().Equal(b.ModTime()) && a.Size() == b.Size()
}

// readChange reads the current content of path together with the identity
// of the file it was read from.
func readChange(path, key string) (port.Change, os.FileInfo, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return port.Change{Key: key}, nil, nil
	}
	if err != nil {
		return port.Change{}, nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return port.Change{}, nil, err
	}
	raw, err := io.ReadAll(f)
	if err != nil {
		return port.Change{}, nil, err
	}
	return port.Change{Key: key, Value: string(raw), Present: true}, info, nil
}

func (s *Storage) path(key string) string {
	return filepath.Join(s.dir, hex.EncodeToString([]byte(key))+fileSuffix)
}

func (s *Storage) keyFromPath(path string) (string, bool) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, tempPrefix) || !strings.HasSuffix(name, fileSuffix) {
		return "", false
	}
	raw, err := hex.DecodeString(strings.TrimSuffix(name, fileSuffix))
	if err != nil {
		return "", false
	}
	return string(raw), true
}
