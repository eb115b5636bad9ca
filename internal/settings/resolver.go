package settings

import (
	"sync"

	"github.com/orato-ai/speech-scorer/internal/analysis"
)

// Layer names a settings precedence level. Later layers win.
type Layer string

const (
	LayerGlobal Layer = "global"
	LayerUser   Layer = "user"
)

// layerOrder lists layers from lowest to highest precedence.
var layerOrder = []Layer{LayerGlobal, LayerUser}

// Resolver composes settings layers over the built-in defaults. It is
// the engine's settings source; Snapshot is safe to call concurrently
// with layer updates.
type Resolver struct {
	mu     sync.RWMutex
	layers map[Layer]analysis.Patch
}

// NewResolver creates a resolver with no layers set, which resolves to
// the built-in defaults.
func NewResolver() *Resolver {
	return &Resolver{layers: make(map[Layer]analysis.Patch)}
}

// SetLayer replaces one layer wholesale.
func (r *Resolver) SetLayer(layer Layer, patch analysis.Patch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layers[layer] = patch
}

// ClearLayer removes a layer, dropping its influence from the next
// snapshot.
func (r *Resolver) ClearLayer(layer Layer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.layers, layer)
}

// Snapshot resolves the current configuration bottom-up: built-in
// defaults, then global, then user.
func (r *Resolver) Snapshot() analysis.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := analysis.DefaultSnapshot()
	for _, layer := range layerOrder {
		if patch, ok := r.layers[layer]; ok && len(patch) > 0 {
			snapshot = snapshot.Apply(patch)
		}
	}
	return snapshot
}
