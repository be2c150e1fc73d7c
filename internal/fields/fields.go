// Package fields holds the set of fields a grouped criteria may target and
// the raw-subfield suffix each one uses for quoted terms.
package fields

import "sort"

// Map maps a field name to its raw suffix, e.g. {"texto": ".raw", "tipo": ""}.
// An empty map accepts any field.
type Map map[string]string

// Allows reports whether name may be searched. The default field is always
// allowed.
func (m Map) Allows(name, defaultField string) bool {
	if name == defaultField || len(m) == 0 {
		return true
	}
	_, ok := m[name]
	return ok
}

// RawSuffix returns the suffix for name, "" when it has none. The default
// field uses defaultSuffix when that is set.
func (m Map) RawSuffix(name, defaultField, defaultSuffix string) string {
	if name == defaultField && defaultSuffix != "" {
		return defaultSuffix
	}
	return m[name]
}

func (m Map) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge returns a copy of m overridden by other.
func (m Map) Merge(other Map) Map {
	out := m.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}
