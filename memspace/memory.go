// Package memspace implements Memory, the container that owns the
// layer DAG: it maps names to layer.DataLayer, enforces dependency
// integrity on add/remove, and is the sole Read/Write entry point
// layers use to resolve each other (layer.MemoryReader).
package memspace

import (
	"fmt"
	"sync"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/log"

	"github.com/coldcore/memlayer/layer"
)

// numShards controls how many independent mutexes guard the layer
// table. Adapted from encoding/bamprovider/concurrentmap.go's
// seahash-sharded map, sized down from that file's 1024 (tuned for a
// per-record hot path) to a count suited to a DAG that typically holds
// a handful to a few dozen layers.
const numShards = 16

type shard struct {
	mu     sync.RWMutex
	layers map[string]layer.DataLayer
}

// Memory is the DAG owner: a name->Layer mapping plus add/remove/lookup
// operations that preserve acyclicity and dependency satisfaction.
//
// Memory is read-only from the point of view of an in-flight scan;
// concurrent AddLayer/DelLayer against layers being actively scanned
// is undefined, per spec.md §5 — callers must synchronise externally.
type Memory struct {
	shards [numShards]shard
}

// New returns an empty Memory.
func New() *Memory {
	m := &Memory{}
	for i := range m.shards {
		m.shards[i].layers = make(map[string]layer.DataLayer)
	}
	return m
}

func (m *Memory) shardFor(name string) *shard {
	h := seahash.Sum64([]byte(name))
	return &m.shards[h%uint64(numShards)]
}

// Read delegates to the named layer. Implements layer.MemoryReader.
func (m *Memory) Read(layerName string, offset, length int64, pad bool) ([]byte, error) {
	l, ok := m.Layer(layerName)
	if !ok {
		return nil, layer.NewError("no such layer: %s", layerName)
	}
	return l.Read(offset, length, pad)
}

// Write delegates to the named layer. Implements layer.MemoryReader.
func (m *Memory) Write(layerName string, offset int64, data []byte) error {
	l, ok := m.Layer(layerName)
	if !ok {
		return layer.NewError("no such layer: %s", layerName)
	}
	return l.Write(offset, data)
}

// Layer returns the named layer, if present. Implements layer.MemoryReader.
func (m *Memory) Layer(name string) (layer.DataLayer, bool) {
	s := m.shardFor(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.layers[name]
	return l, ok
}

// AddLayer inserts l into the DAG. It fails with a *layer.Error if a
// layer of the same name already exists, or if any of l's declared
// Dependencies are not already present.
func (m *Memory) AddLayer(l layer.DataLayer) error {
	// Resolve dependencies before taking l's shard lock: a dependency
	// may live in the same shard, and Layer read-locks it.
	var missing []string
	for _, dep := range l.Dependencies() {
		if _, ok := m.Layer(dep); !ok {
			missing = append(missing, dep)
		}
	}
	s := m.shardFor(l.Name())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.layers[l.Name()]; exists {
		return layer.NewError("layer already exists: %s", l.Name())
	}
	if len(missing) > 0 {
		return layer.NewError("layer %s has unmet dependencies: %s", l.Name(), joinNames(missing))
	}
	s.layers[l.Name()] = l
	log.Debug.Printf("memspace: added layer %s (dependencies=%v)", l.Name(), l.Dependencies())
	return nil
}

// DelLayer removes the named layer, invoking its Destroy hook first.
// It fails with a *layer.Error, leaving Memory unchanged, if any other
// layer currently lists name among its Dependencies.
func (m *Memory) DelLayer(name string) error {
	var dependents []string
	m.Range(func(other layer.DataLayer) bool {
		if other.Name() == name {
			return true
		}
		for _, dep := range other.Dependencies() {
			if dep == name {
				dependents = append(dependents, other.Name())
				break
			}
		}
		return true
	})
	if len(dependents) > 0 {
		return layer.NewError("layer %s is depended upon: %s", name, joinNames(dependents))
	}

	s := m.shardFor(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.layers[name]
	if !ok {
		return layer.NewError("no such layer: %s", name)
	}
	if err := l.Destroy(); err != nil {
		return err
	}
	delete(s.layers, name)
	log.Debug.Printf("memspace: removed layer %s", name)
	return nil
}

// FreeLayerName returns prefix+k for the smallest positive integer k
// such that no layer is currently named prefix+k.
func (m *Memory) FreeLayerName(prefix string) string {
	if prefix == "" {
		prefix = "layer"
	}
	for k := 1; ; k++ {
		candidate := fmt.Sprintf("%s%d", prefix, k)
		if _, ok := m.Layer(candidate); !ok {
			return candidate
		}
	}
}

// Len returns the number of layers currently in the DAG.
func (m *Memory) Len() int {
	n := 0
	for i := range m.shards {
		m.shards[i].mu.RLock()
		n += len(m.shards[i].layers)
		m.shards[i].mu.RUnlock()
	}
	return n
}

// Contains reports whether a layer with the given name is present.
func (m *Memory) Contains(name string) bool {
	_, ok := m.Layer(name)
	return ok
}

// Names returns every current layer name, in no particular order.
func (m *Memory) Names() []string {
	names := make([]string, 0, m.Len())
	m.Range(func(l layer.DataLayer) bool {
		names = append(names, l.Name())
		return true
	})
	return names
}

// Range calls f for every layer currently in the DAG; f returning
// false stops the iteration early. Range takes a consistent per-shard
// snapshot but does not lock across shards, matching the "read-only
// during a scan" contract rather than serialising the whole DAG.
func (m *Memory) Range(f func(layer.DataLayer) bool) {
	for i := range m.shards {
		m.shards[i].mu.RLock()
		snapshot := make([]layer.DataLayer, 0, len(m.shards[i].layers))
		for _, l := range m.shards[i].layers {
			snapshot = append(snapshot, l)
		}
		m.shards[i].mu.RUnlock()
		for _, l := range snapshot {
			if !f(l) {
				return
			}
		}
	}
}

// CheckCycles traverses the dependency graph and reports the first
// cycle found, if any. AddLayer already refuses a dependency that
// isn't yet present, so a DAG built exclusively through AddLayer can
// never contain a cycle; CheckCycles exists to validate DAGs
// constructed some other way (e.g. rehydrated from serialized
// configuration — see the config package), which must call it before
// first use.
func (m *Memory) CheckCycles() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return layer.NewError("cycle detected: %s", joinNames(append(path, name)))
		}
		color[name] = gray
		if l, ok := m.Layer(name); ok {
			for _, dep := range l.Dependencies() {
				if err := visit(dep, append(path, name)); err != nil {
					return err
				}
			}
		}
		color[name] = black
		return nil
	}
	for _, name := range m.Names() {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
