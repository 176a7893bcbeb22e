package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	overlay "github.com/goliatone/go-overlay"
)

// Format identifies how a file is decoded.
type Format string

const (
	FormatAuto Format = ""
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// DefaultDebounce is the quiet period after the last file event before a
// watched file is reloaded.
const DefaultDebounce = 100 * time.Millisecond

var (
	// ErrFilePathRequired indicates OpenFile was called without a path.
	ErrFilePathRequired = errors.New("store: file path is required")
	// ErrNotAMap indicates the file's document root is not a mapping.
	ErrNotAMap = errors.New("store: document root must be a mapping")
)

// ReloadEvent reports the outcome of one reload of a watched file.
type ReloadEvent struct {
	Path    string
	Changes []overlay.Change
	Err     error
}

// FileOption configures OpenFile.
type FileOption func(*fileConfig)

type fileConfig struct {
	format   Format
	watch    bool
	debounce time.Duration
	onReload func(ReloadEvent)
	logger   *slog.Logger
}

// WithFormat forces the decoding format. By default .json files decode as
// JSON and everything else as YAML.
func WithFormat(format Format) FileOption {
	return func(cfg *fileConfig) {
		cfg.format = format
	}
}

// WithWatch reloads the file when it changes on disk.
func WithWatch(watch bool) FileOption {
	return func(cfg *fileConfig) {
		cfg.watch = watch
	}
}

// WithDebounce sets the reload debounce window. Non-positive values use
// DefaultDebounce.
func WithDebounce(d time.Duration) FileOption {
	return func(cfg *fileConfig) {
		cfg.debounce = d
	}
}

// WithReloadHook is called after every watched reload, including failed
// ones. The hook runs on the watcher goroutine and may call Close.
func WithReloadHook(fn func(ReloadEvent)) FileOption {
	return func(cfg *fileConfig) {
		cfg.onReload = fn
	}
}

// WithLogger logs watcher and reload failures.
func WithLogger(logger *slog.Logger) FileOption {
	return func(cfg *fileConfig) {
		cfg.logger = logger
	}
}

// File is a Memory store loaded from a YAML or JSON document. When watched,
// edits to the file are diffed against the current content and emitted as
// changes.
type File struct {
	*Memory

	path string
	cfg  fileConfig

	watcher   *fsnotify.Watcher
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
	// inHook is set while the reload hook runs on the watcher goroutine.
	inHook atomic.Bool
}

var _ overlay.Store = (*File)(nil)

// OpenFile loads path and, with WithWatch, starts watching it.
func OpenFile(ctx context.Context, path string, opts ...FileOption) (*File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrFilePathRequired
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	cfg := fileConfig{debounce: DefaultDebounce}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.debounce <= 0 {
		cfg.debounce = DefaultDebounce
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	fragments, err := readFile(path, cfg.format)
	if err != nil {
		return nil, err
	}

	f := &File{
		Memory: NewMemory(fragments...),
		path:   path,
		cfg:    cfg,
		done:   make(chan struct{}),
	}
	if cfg.watch {
		if err := f.startWatch(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// FileProvider returns an overlay.Provider that opens path on demand.
func FileProvider(path string, opts ...FileOption) overlay.Provider {
	return func(ctx context.Context) (overlay.Store, error) {
		return OpenFile(ctx, path, opts...)
	}
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// Reload re-reads the file and replaces the content, emitting the diff. A
// read or decode failure keeps the current content.
func (f *File) Reload() ([]overlay.Change, error) {
	fragments, err := readFile(f.path, f.cfg.format)
	if err != nil {
		return nil, err
	}
	return f.Replace(fragments), nil
}

// Close stops the watcher and closes the in-memory store. It is idempotent.
func (f *File) Close(ctx context.Context) error {
	f.closeOnce.Do(func() {
		close(f.done)
		if f.watcher != nil {
			f.closeErr = f.watcher.Close()
		}
		// The hook runs on the watcher goroutine, which cannot wait on itself.
		if !f.inHook.Load() {
			f.wg.Wait()
		}
		if err := f.Memory.Close(ctx); err != nil && f.closeErr == nil {
			f.closeErr = err
		}
	})
	return f.closeErr
}

// startWatch watches the parent directory, since editors often replace
// files by rename.
func (f *File) startWatch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("store: watch %s: %w", f.path, err)
	}
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("store: watch %s: %w", f.path, err)
	}
	f.watcher = watcher
	f.wg.Add(1)
	go f.watchLoop()
	return nil
}

func (f *File) watchLoop() {
	defer f.wg.Done()

	target := filepath.Clean(f.path)
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
	}
	defer stopTimer()

	for {
		select {
		case <-f.done:
			return
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(f.cfg.debounce)
				timerC = timer.C
			} else {
				timer.Reset(f.cfg.debounce)
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.cfg.logger.Warn("store: file watcher error", slog.String("path", f.path), slog.Any("error", err))
		case <-timerC:
			timer, timerC = nil, nil
			f.reloadWatched()
		}
	}
}

func (f *File) reloadWatched() {
	changes, err := f.Reload()
	if err != nil {
		f.cfg.logger.Warn("store: reload failed", slog.String("path", f.path), slog.Any("error", err))
	} else {
		f.cfg.logger.Debug("store: reloaded", slog.String("path", f.path), slog.Int("changes", len(changes)))
	}
	if f.cfg.onReload != nil {
		f.inHook.Store(true)
		defer f.inHook.Store(false)
		f.cfg.onReload(ReloadEvent{Path: f.path, Changes: changes, Err: err})
	}
}

func readFile(path string, format Format) ([]overlay.Fragment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	value, err := Decode(raw, resolveFormat(path, format))
	if err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", path, err)
	}
	return Flatten(value), nil
}

// Decode parses a YAML or JSON document whose root is a mapping. An empty
// document decodes to an empty map.
func Decode(raw []byte, format Format) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	var doc any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
	}
	if doc == nil {
		return map[string]any{}, nil
	}
	value, ok := asMap(doc)
	if !ok {
		return nil, ErrNotAMap
	}
	return value, nil
}

func resolveFormat(path string, format Format) Format {
	if format != FormatAuto {
		return format
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}
