package layer

// Requirement describes one configurable value a Layer's constructor
// expects, for the benefit of an external configuration subsystem
// (out of scope here beyond this boundary shape; see spec.md §6).
type Requirement struct {
	Name        string
	Description string
	Type        string
	Optional    bool
}

// HierarchicalDict is a nested configuration tree. It always carries
// a "class" key (the fully qualified Go type name) for any layer
// built from serialized configuration, per spec.md §6.
type HierarchicalDict map[string]interface{}

// Get performs a dotted-path lookup, e.g. Get("primary.class").
func (h HierarchicalDict) Get(path string) (interface{}, bool) {
	cur := map[string]interface{}(h)
	parts := splitPath(path)
	for i, p := range parts {
		v, ok := cur[p]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := v.(map[string]interface{})
		if !ok {
			if hd, ok := v.(HierarchicalDict); ok {
				next = map[string]interface{}(hd)
			} else {
				return nil, false
			}
		}
		cur = next
	}
	return nil, false
}

func splitPath(path string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	parts = append(parts, path[start:])
	return parts
}
