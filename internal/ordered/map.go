// Package ordered provides a map that iterates in first-insertion order.
package ordered

// Map is an insertion-ordered map. Overwriting a key keeps its original position.
// The zero value is not usable; construct with New.
type Map[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{values: make(map[K]V)}
}

// Set stores v under k and reports whether k was newly inserted.
func (m *Map[K, V]) Set(k K, v V) bool {
	_, exists := m.values[k]
	if !exists {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
	return !exists
}

func (m *Map[K, V]) Get(k K) (V, bool) {
	v, ok := m.values[k]
	return v, ok
}

func (m *Map[K, V]) Has(k K) bool {
	_, ok := m.values[k]
	return ok
}

func (m *Map[K, V]) Len() int {
	return len(m.keys)
}

// Keys returns a copy of the keys in insertion order.
func (m *Map[K, V]) Keys() []K {
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// Each calls fn for every entry in insertion order until fn returns false.
func (m *Map[K, V]) Each(fn func(k K, v V) bool) {
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}
