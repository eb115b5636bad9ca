package settings

import (
	"bytes"
	"crypto/sha256"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/orato-ai/speech-scorer/internal/observability"
)

// Watcher polls one settings file and pushes parsed layers into a
// resolver. Polling with an mtime check and a content hash keeps the
// dependency surface small; settings files change rarely.
type Watcher struct {
	path     string
	layer    Layer
	resolver *Resolver
	interval time.Duration

	mu        sync.Mutex
	seen      bool
	lastMtime time.Time
	lastHash  [sha256.Size]byte

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads the file once and starts polling. A missing or
// broken file leaves the layer unset; the file may still appear later.
func NewWatcher(path string, layer Layer, resolver *Resolver, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     path,
		layer:    layer,
		resolver: resolver,
		interval: 5 * time.Second,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.check()
	go w.poll()
	return w
}

// Stop stops polling. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check reloads the file when its content changed. A file that fails to
// parse or validate keeps the last good layer in place.
func (w *Watcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		// A settings file is optional until it first appears
		return
	}

	w.mu.Lock()
	unchanged := w.seen && info.ModTime().Equal(w.lastMtime)
	w.mu.Unlock()
	if unchanged {
		return
	}

	data, err := os.ReadFile(w.path)
	if err != nil {
		log.Warn().
			Err(err).
			Str("component", "settings").
			Str("path", w.path).
			Msg("Failed to read settings file")
		observability.RecordSettingsReload(string(w.layer), false)
		return
	}

	hash := sha256.Sum256(data)
	w.mu.Lock()
	identical := w.seen && hash == w.lastHash
	w.seen = true
	w.lastMtime = info.ModTime()
	w.lastHash = hash
	w.mu.Unlock()
	if identical {
		// Touched but content is the same
		return
	}

	file, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		log.Warn().
			Err(err).
			Str("component", "settings").
			Str("path", w.path).
			Str("layer", string(w.layer)).
			Msg("Invalid settings file, keeping last good layer")
		observability.RecordSettingsReload(string(w.layer), false)
		return
	}

	w.resolver.SetLayer(w.layer, file.Patch())
	observability.RecordSettingsReload(string(w.layer), true)
	log.Info().
		Str("component", "settings").
		Str("path", w.path).
		Str("layer", string(w.layer)).
		Int("metrics", len(file.Metrics)).
		Msg("Settings layer applied")
}
