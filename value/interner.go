package value

import "sync"

// Interner is the process-local, bidirectional string<->id map backing
// symbols and keywords. Symbol ids and keyword ids are independent
// spaces; the same string may hold different (or identical, by
// coincidence) ids in each. Interning is idempotent and ids are dense,
// monotonically assigned 32-bit indices — grounded on the same
// registration discipline as a schema registry (hot map cache, mutex
// guarded, never shrinks) rather than on any teacher string-interning
// code, since none exists in the retrieval pack.
type Interner struct {
	mu sync.RWMutex

	symByName map[string]uint32
	symByID   []string

	kwByName map[string]uint32
	kwByID   []string
}

func NewInterner() *Interner {
	return &Interner{
		symByName: make(map[string]uint32),
		kwByName:  make(map[string]uint32),
	}
}

// InternSymbol returns the id for name, assigning a fresh one on first
// sight. Interning the same name twice returns the same id.
func (in *Interner) InternSymbol(name string) uint32 {
	in.mu.RLock()
	if id, ok := in.symByName[name]; ok {
		in.mu.RUnlock()
		return id
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.symByName[name]; ok {
		return id
	}
	id := uint32(len(in.symByID))
	in.symByID = append(in.symByID, name)
	in.symByName[name] = id
	return id
}

func (in *Interner) InternKeyword(name string) uint32 {
	in.mu.RLock()
	if id, ok := in.kwByName[name]; ok {
		in.mu.RUnlock()
		return id
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.kwByName[name]; ok {
		return id
	}
	id := uint32(len(in.kwByID))
	in.kwByID = append(in.kwByID, name)
	in.kwByName[name] = id
	return id
}

// SymbolName retrieves the original string interned for id. The second
// return value is false if id was never assigned.
func (in *Interner) SymbolName(id uint32) (string, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(id) >= len(in.symByID) {
		return "", false
	}
	return in.symByID[id], true
}

func (in *Interner) KeywordName(id uint32) (string, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(id) >= len(in.kwByID) {
		return "", false
	}
	return in.kwByID[id], true
}

// Sym interns name and returns the resulting Value in one step.
func (in *Interner) Sym(name string) Value {
	return Symbol(in.InternSymbol(name), name)
}

func (in *Interner) Kw(name string) Value {
	return Keyword(in.InternKeyword(name), name)
}
