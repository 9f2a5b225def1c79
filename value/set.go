package value

import (
	"sort"
	"strings"
)

// Set is a persistent hash set, composed on top of Map (storing each
// member against Bool(true)) rather than re-deriving its own trie —
// mirroring the teacher's preference for composing one store on top of
// another (mstindex.Index wraps mst.Tree) over duplicating storage code.
type Set struct {
	m *Map
}

func EmptySet() *Set { return &Set{m: EmptyMap()} }

func SetOf(items ...Value) *Set {
	s := EmptySet()
	for _, it := range items {
		s = s.Insert(it)
	}
	return s
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return s.m.Len()
}

func (s *Set) Has(v Value) bool {
	if s == nil {
		return false
	}
	return s.m.Has(v)
}

func (s *Set) Insert(v Value) *Set {
	if s == nil {
		s = EmptySet()
	}
	return &Set{m: s.m.Insert(v, Bool(true))}
}

func (s *Set) Remove(v Value) (*Set, bool) {
	if s == nil {
		return s, false
	}
	newM, removed := s.m.Remove(v)
	if !removed {
		return s, false
	}
	return &Set{m: newM}, true
}

func (s *Set) ForEach(fn func(Value) bool) {
	if s == nil {
		return
	}
	s.m.ForEach(func(k, _ Value) bool { return fn(k) })
}

func (s *Set) Slice() []Value {
	return s.m.Keys()
}

func (a *Set) Equal(b *Set) bool {
	if a.Len() != b.Len() {
		return false
	}
	equal := true
	a.ForEach(func(v Value) bool {
		if !b.Has(v) {
			equal = false
			return false
		}
		return true
	})
	return equal
}

func (s *Set) Hash() uint64 {
	var acc uint64
	s.ForEach(func(v Value) bool {
		acc ^= v.Hash() * 1099511628211
		return true
	})
	acc ^= uint64(s.Len()) * 2654435761
	return acc
}

func (s *Set) String() string {
	items := s.Slice()
	sort.Slice(items, func(i, j int) bool { return items[i].String() < items[j].String() })
	var b strings.Builder
	b.WriteString("#{")
	for i, it := range items {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(it.String())
	}
	b.WriteByte('}')
	return b.String()
}

func (a *Set) Union(b *Set) *Set {
	result := a
	b.ForEach(func(v Value) bool {
		result = result.Insert(v)
		return true
	})
	return result
}

func (a *Set) Intersection(b *Set) *Set {
	result := EmptySet()
	a.ForEach(func(v Value) bool {
		if b.Has(v) {
			result = result.Insert(v)
		}
		return true
	})
	return result
}

func (a *Set) Difference(b *Set) *Set {
	result := EmptySet()
	a.ForEach(func(v Value) bool {
		if !b.Has(v) {
			result = result.Insert(v)
		}
		return true
	})
	return result
}
