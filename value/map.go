package value

import (
	"sort"
	"strings"
)

// Map is a persistent hash-array-mapped trie from Value to Value,
// grounded on the teacher's mst.Tree put/get/delete-return-new-root
// shape but keyed by hash rather than sorted bytes, as spec.md calls
// for when it recommends a HAMT for Set/Map. Insertion order is not
// preserved; iteration order is deterministic for a given tree shape
// but unspecified otherwise, matching spec.md §4.1.
type Map struct {
	count int
	root  *mapNode
}

type mapEntry struct {
	key, val Value
}

// mapNode is a node of the HAMT: a bitmap of populated slots (32-way)
// plus a parallel slice of either leaf entries or child nodes. A slot
// can also hold a collision list when two keys hash identically past
// all levels considered so far.
type mapNode struct {
	bitmap   uint32
	entries  []*mapSlot
}

type mapSlot struct {
	isLeaf    bool
	leaf      mapEntry
	child     *mapNode
	collision []mapEntry // populated only when >1 key shares a full hash path
}

func EmptyMap() *Map { return &Map{} }

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return m.count
}

func bitpos(hash uint64, shift uint) uint32 {
	return 1 << ((hash >> shift) & branchMask)
}

func slotIndex(bitmap uint32, bit uint32) int {
	return popcount(bitmap & (bit - 1))
}

func popcount(x uint32) int {
	count := 0
	for x != 0 {
		count += int(x & 1)
		x >>= 1
	}
	return count
}

// Get looks up key, returning ok=false if absent.
func (m *Map) Get(key Value) (Value, bool) {
	if m == nil || m.root == nil {
		return Nil, false
	}
	return getNode(m.root, key, key.Hash(), 0)
}

func getNode(node *mapNode, key Value, hash uint64, shift uint) (Value, bool) {
	if node == nil {
		return Nil, false
	}
	bit := bitpos(hash, shift)
	if node.bitmap&bit == 0 {
		return Nil, false
	}
	slot := node.entries[slotIndex(node.bitmap, bit)]
	if slot.isLeaf {
		if slot.collision != nil {
			for _, e := range slot.collision {
				if e.key.Equal(key) {
					return e.val, true
				}
			}
			return Nil, false
		}
		if slot.leaf.key.Equal(key) {
			return slot.leaf.val, true
		}
		return Nil, false
	}
	return getNode(slot.child, key, hash, shift+branchBits)
}

func (m *Map) Has(key Value) bool {
	_, ok := m.Get(key)
	return ok
}

// Insert returns a new Map with key bound to val (overwriting any
// previous binding), sharing every subtree not on the path to key.
func (m *Map) Insert(key, val Value) *Map {
	if m == nil {
		m = EmptyMap()
	}
	hash := key.Hash()
	newRoot, added := insertNode(m.root, key, val, hash, 0)
	count := m.count
	if added {
		count++
	}
	return &Map{count: count, root: newRoot}
}

func insertNode(node *mapNode, key, val Value, hash uint64, shift uint) (*mapNode, bool) {
	if node == nil {
		return &mapNode{bitmap: bitpos(hash, shift), entries: []*mapSlot{{isLeaf: true, leaf: mapEntry{key, val}}}}, true
	}
	bit := bitpos(hash, shift)
	idx := slotIndex(node.bitmap, bit)

	if node.bitmap&bit == 0 {
		entries := make([]*mapSlot, len(node.entries)+1)
		copy(entries, node.entries[:idx])
		entries[idx] = &mapSlot{isLeaf: true, leaf: mapEntry{key, val}}
		copy(entries[idx+1:], node.entries[idx:])
		return &mapNode{bitmap: node.bitmap | bit, entries: entries}, true
	}

	existing := node.entries[idx]
	entries := append([]*mapSlot{}, node.entries...)

	if !existing.isLeaf {
		child, added := insertNode(existing.child, key, val, hash, shift+branchBits)
		entries[idx] = &mapSlot{child: child}
		return &mapNode{bitmap: node.bitmap, entries: entries}, added
	}

	if existing.collision != nil {
		for i, e := range existing.collision {
			if e.key.Equal(key) {
				coll := append([]mapEntry{}, existing.collision...)
				coll[i] = mapEntry{key, val}
				entries[idx] = &mapSlot{isLeaf: true, collision: coll}
				return &mapNode{bitmap: node.bitmap, entries: entries}, false
			}
		}
		coll := append(append([]mapEntry{}, existing.collision...), mapEntry{key, val})
		entries[idx] = &mapSlot{isLeaf: true, collision: coll}
		return &mapNode{bitmap: node.bitmap, entries: entries}, true
	}

	if existing.leaf.key.Equal(key) {
		entries[idx] = &mapSlot{isLeaf: true, leaf: mapEntry{key, val}}
		return &mapNode{bitmap: node.bitmap, entries: entries}, false
	}

	// Collision at this level: either split into a child node (hashes
	// differ further down) or fall back to a collision list (hashes
	// exhausted — extremely unlikely with a 64-bit hash, but handled
	// for correctness since hash truncation to 5-bit chunks can collide
	// many levels deep).
	if shift+branchBits < 64 {
		child, _ := insertNode(nil, existing.leaf.key, existing.leaf.val, existing.leaf.key.Hash(), shift+branchBits)
		child, _ = insertNode(child, key, val, hash, shift+branchBits)
		entries[idx] = &mapSlot{child: child}
	} else {
		entries[idx] = &mapSlot{isLeaf: true, collision: []mapEntry{existing.leaf, {key, val}}}
	}
	return &mapNode{bitmap: node.bitmap, entries: entries}, true
}

// Remove returns a new Map without key. removed is false if key was
// absent (in which case the same Map, not a copy, is returned).
func (m *Map) Remove(key Value) (*Map, bool) {
	if m == nil || m.root == nil {
		return m, false
	}
	newRoot, removed := removeNode(m.root, key, key.Hash(), 0)
	if !removed {
		return m, false
	}
	return &Map{count: m.count - 1, root: newRoot}, true
}

func removeNode(node *mapNode, key Value, hash uint64, shift uint) (*mapNode, bool) {
	if node == nil {
		return nil, false
	}
	bit := bitpos(hash, shift)
	if node.bitmap&bit == 0 {
		return node, false
	}
	idx := slotIndex(node.bitmap, bit)
	existing := node.entries[idx]

	if !existing.isLeaf {
		newChild, removed := removeNode(existing.child, key, hash, shift+branchBits)
		if !removed {
			return node, false
		}
		entries := append([]*mapSlot{}, node.entries...)
		if newChild == nil {
			entries = append(entries[:idx], entries[idx+1:]...)
			return &mapNode{bitmap: node.bitmap &^ bit, entries: entries}, true
		}
		entries[idx] = &mapSlot{child: newChild}
		return &mapNode{bitmap: node.bitmap, entries: entries}, true
	}

	if existing.collision != nil {
		for i, e := range existing.collision {
			if e.key.Equal(key) {
				coll := append(append([]mapEntry{}, existing.collision[:i]...), existing.collision[i+1:]...)
				entries := append([]*mapSlot{}, node.entries...)
				if len(coll) == 1 {
					entries[idx] = &mapSlot{isLeaf: true, leaf: coll[0]}
				} else {
					entries[idx] = &mapSlot{isLeaf: true, collision: coll}
				}
				return &mapNode{bitmap: node.bitmap, entries: entries}, true
			}
		}
		return node, false
	}

	if !existing.leaf.key.Equal(key) {
		return node, false
	}
	entries := append(append([]*mapSlot{}, node.entries[:idx]...), node.entries[idx+1:]...)
	newBitmap := node.bitmap &^ bit
	if newBitmap == 0 {
		return nil, true
	}
	return &mapNode{bitmap: newBitmap, entries: entries}, true
}

// ForEach visits every entry in an unspecified but deterministic (for a
// given tree shape) order, stopping early if fn returns false.
func (m *Map) ForEach(fn func(key, val Value) bool) {
	if m == nil || m.root == nil {
		return
	}
	walkMapNode(m.root, fn)
}

func walkMapNode(node *mapNode, fn func(key, val Value) bool) bool {
	for _, slot := range node.entries {
		if slot.isLeaf {
			if slot.collision != nil {
				for _, e := range slot.collision {
					if !fn(e.key, e.val) {
						return false
					}
				}
				continue
			}
			if !fn(slot.leaf.key, slot.leaf.val) {
				return false
			}
			continue
		}
		if !walkMapNode(slot.child, fn) {
			return false
		}
	}
	return true
}

func (a *Map) Equal(b *Map) bool {
	if a.Len() != b.Len() {
		return false
	}
	equal := true
	a.ForEach(func(k, v Value) bool {
		bv, ok := b.Get(k)
		if !ok || !v.Equal(bv) {
			equal = false
			return false
		}
		return true
	})
	return equal
}

// Hash XOR-sums per-entry hashes combined with the map's size, so it is
// independent of iteration/insertion order as spec.md §4.1 requires.
func (m *Map) Hash() uint64 {
	var acc uint64
	m.ForEach(func(k, v Value) bool {
		acc ^= (k.Hash() * 1099511628211) ^ v.Hash()
		return true
	})
	acc ^= uint64(m.Len()) * 2654435761
	return acc
}

func (m *Map) String() string {
	type kv struct {
		k, v Value
	}
	var items []kv
	m.ForEach(func(k, v Value) bool {
		items = append(items, kv{k, v})
		return true
	})
	sort.Slice(items, func(i, j int) bool { return items[i].k.String() < items[j].k.String() })

	var b strings.Builder
	b.WriteByte('{')
	for i, it := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(it.k.String())
		b.WriteByte(' ')
		b.WriteString(it.v.String())
	}
	b.WriteByte('}')
	return b.String()
}

// Keys materializes the map's keys.
func (m *Map) Keys() []Value {
	out := make([]Value, 0, m.Len())
	m.ForEach(func(k, _ Value) bool {
		out = append(out, k)
		return true
	})
	return out
}
