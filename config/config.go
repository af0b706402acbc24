// Package config loads layer configuration from YAML into
// layer.HierarchicalDict trees and reconstructs the concrete layers
// spec.md §6 requires be reconstructable from serialized config:
// datalayer.BufferDataLayer, datalayer.FileDataLayer, and
// translation.BlockTranslationLayer. Building the full plugin/registry
// system for arbitrary user-defined layer types is explicitly out of
// scope (spec.md's Non-goals); this loader only knows these three
// built-in classes.
package config

import (
	"context"
	"io/ioutil"

	"gopkg.in/yaml.v3"

	"github.com/coldcore/memlayer/datalayer"
	"github.com/coldcore/memlayer/layer"
	"github.com/coldcore/memlayer/translation"
)

const (
	classBuffer = "github.com/coldcore/memlayer/datalayer.BufferDataLayer"
	classFile   = "github.com/coldcore/memlayer/datalayer.FileDataLayer"
	classBlock  = "github.com/coldcore/memlayer/translation.BlockTranslationLayer"
)

// LoadFile reads path and unmarshals it into a layer.HierarchicalDict.
func LoadFile(path string) (layer.HierarchicalDict, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(raw)
}

// Load unmarshals raw YAML into a layer.HierarchicalDict.
func Load(raw []byte) (layer.HierarchicalDict, error) {
	var node map[string]interface{}
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, err
	}
	return layer.HierarchicalDict(normalize(node)), nil
}

// normalize recursively converts map[interface{}]interface{} (which
// older yaml decoders can still produce for nested maps) into
// map[string]interface{}, so HierarchicalDict.Get's dotted-path
// lookups work uniformly regardless of nesting depth.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if ks, ok := k.(string); ok {
				out[ks] = normalize(val)
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}

// BuildLayer reconstructs a layer.DataLayer from a HierarchicalDict
// produced by one of this package's three known classes' own
// BuildConfiguration. mr is passed to classes (BlockTranslationLayer)
// that need a bound layer.MemoryReader to resolve dependencies.
func BuildLayer(cfg layer.HierarchicalDict, mr layer.MemoryReader) (layer.DataLayer, error) {
	class, ok := cfg.Get("class")
	if !ok {
		return nil, layer.NewError("config: missing required 'class' key")
	}
	className, _ := class.(string)

	switch className {
	case classBuffer:
		return buildBuffer(cfg)
	case classFile:
		return buildFile(cfg)
	case classBlock:
		return buildBlock(cfg, mr)
	default:
		return nil, layer.NewError("config: unknown layer class %q", className)
	}
}

func buildBuffer(cfg layer.HierarchicalDict) (layer.DataLayer, error) {
	name, ok := stringField(cfg, "name")
	if !ok {
		return nil, layer.NewError("config: BufferDataLayer requires 'name'")
	}
	size, _ := cfg.Get("size")
	n, _ := toInt(size)
	return datalayer.NewBufferDataLayer(name, make([]byte, n), nil), nil
}

func buildFile(cfg layer.HierarchicalDict) (layer.DataLayer, error) {
	name, ok := stringField(cfg, "name")
	if !ok {
		return nil, layer.NewError("config: FileDataLayer requires 'name'")
	}
	path, ok := stringField(cfg, "path")
	if !ok {
		return nil, layer.NewError("config: FileDataLayer requires 'path'")
	}
	return datalayer.NewFileDataLayer(context.Background(), name, path, datalayer.LocalOpener{}, nil)
}

func buildBlock(cfg layer.HierarchicalDict, mr layer.MemoryReader) (layer.DataLayer, error) {
	name, ok := stringField(cfg, "name")
	if !ok {
		return nil, layer.NewError("config: BlockTranslationLayer requires 'name'")
	}
	rawTuples, ok := cfg.Get("tuples")
	if !ok {
		return nil, layer.NewError("config: BlockTranslationLayer requires 'tuples'")
	}
	list, err := asInterfaceSlice(rawTuples)
	if err != nil {
		return nil, err
	}
	tuples := make([]layer.MappingTuple, 0, len(list))
	for _, item := range list {
		d, err := asHierarchicalDict(item)
		if err != nil {
			return nil, err
		}
		offset, _ := toInt(mustGet(d, "offset"))
		mappedOffset, _ := toInt(mustGet(d, "mapped_offset"))
		length, _ := toInt(mustGet(d, "length"))
		layerName, _ := stringField(d, "layer")
		tuples = append(tuples, layer.MappingTuple{
			Offset: offset, MappedOffset: mappedOffset, Length: length, LayerName: layerName,
		})
	}
	return translation.NewBlockTranslationLayer(name, tuples, mr, nil)
}

// asInterfaceSlice accepts either a freshly-unmarshaled []interface{}
// (the YAML path) or a []layer.HierarchicalDict (the in-memory path,
// when BuildLayer is fed a config a layer's own BuildConfiguration
// just produced without a YAML round trip).
func asInterfaceSlice(v interface{}) ([]interface{}, error) {
	switch t := v.(type) {
	case []interface{}:
		return t, nil
	case []layer.HierarchicalDict:
		out := make([]interface{}, len(t))
		for i, d := range t {
			out[i] = d
		}
		return out, nil
	default:
		return nil, layer.NewError("config: expected a list, got %T", v)
	}
}

func asHierarchicalDict(v interface{}) (layer.HierarchicalDict, error) {
	switch t := v.(type) {
	case layer.HierarchicalDict:
		return t, nil
	case map[string]interface{}:
		return layer.HierarchicalDict(t), nil
	default:
		return nil, layer.NewError("config: malformed mapping tuple entry %T", v)
	}
}

func stringField(cfg layer.HierarchicalDict, path string) (string, bool) {
	v, ok := cfg.Get(path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func mustGet(cfg layer.HierarchicalDict, path string) interface{} {
	v, _ := cfg.Get(path)
	return v
}

func toInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
