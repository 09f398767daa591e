package domain

import "sort"

// Vars is a key/value store used for templating and process environment construction.
type Vars map[string]string

// Environment defines variables for a given runtime context (dev/ci/release).
// Secrets may be merged on top by infrastructure implementations.
type Environment struct {
	Name string
	Vars Vars
}

// EnvironmentRef is a lightweight reference to an environment file on disk.
type EnvironmentRef struct {
	Name string
	Path string
}

// Get returns a value for the given key and a boolean indicating if it exists.
func Get(vars Vars, key string) (string, bool) {
	if vars == nil {
		return "", false
	}
	val, ok := vars[key]
	return val, ok
}

// Set sets a key/value in the map, initializing it if needed.
func Set(vars Vars, key, value string) Vars {
	if vars == nil {
		vars = Vars{}
	}
	vars[key] = value
	return vars
}

// Merge merges base and override vars (override wins) and returns a new map.
func Merge(base Vars, override Vars) Vars {
	out := Vars{}
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// MergeAll layers vars left to right; later layers shadow earlier keys.
func MergeAll(layers ...Vars) Vars {
	out := Vars{}
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

// SortedKeys returns the keys of vars in lexical order.
func SortedKeys(vars Vars) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
