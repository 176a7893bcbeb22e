package overlay

import (
	"encoding/json"

	"github.com/goliatone/go-overlay/keypath"
	"github.com/goliatone/go-overlay/layering"
)

// Provenance sources.
const (
	SourceOverride = "override"
	SourceStore    = "store"
)

// Trace captures, for one key, what every layer of an overlay chain holds,
// from the strongest overlay down to the base store.
type Trace struct {
	Path   string       `json:"path"`
	Value  any          `json:"value,omitempty"`
	Found  bool         `json:"found"`
	Layers []Provenance `json:"layers"`
}

// Provenance details how a single layer contributed to a traced key.
type Provenance struct {
	Scope  Scope  `json:"scope"`
	Source string `json:"source"`
	Path   string `json:"path"`
	Value  any    `json:"value,omitempty"`
	Found  bool   `json:"found"`
}

// Trace walks o and every overlay it wraps, recording the override each one
// holds for key, then records the base store's fragment. Value is the first
// found entry, which matches what Get returns.
func (o *Overlay) Trace(key any) Trace {
	path := keypath.Normalize(key)
	trace := Trace{Path: path.String()}

	var current Store = o
	for {
		layer, ok := current.(*Overlay)
		if !ok {
			break
		}
		layer.mu.RLock()
		fragment, found := layer.overrides.find(path)
		layer.mu.RUnlock()

		trace.add(Provenance{
			Scope:  layer.Scope(),
			Source: SourceOverride,
			Path:   trace.Path,
			Value:  layering.Clone(fragment.Value),
			Found:  found,
		})
		current = layer.store
	}

	fragment, found := current.Get(path)
	trace.add(Provenance{
		Source: SourceStore,
		Path:   trace.Path,
		Value:  fragment.Value,
		Found:  found,
	})
	return trace
}

func (t *Trace) add(p Provenance) {
	if !p.Found {
		p.Value = nil
	} else if !t.Found {
		t.Found = true
		t.Value = p.Value
	}
	t.Layers = append(t.Layers, p)
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
