package value

import (
	"encoding/binary"
	"math"

	"lukechampine.com/blake3"
)

// scalarHash reduces an arbitrary byte string to a 64-bit hash using
// BLAKE3 — the same primitive the teacher (gloudx-ues) uses to content-
// address entities, repurposed here as the bit-stable hash behind the
// value model's Hash contract instead of a CID.
func scalarHash(b []byte) uint64 {
	sum := blake3.Sum256(b)
	return binary.LittleEndian.Uint64(sum[:8])
}

func hashString(kindTag byte, s string) uint64 {
	buf := make([]byte, 0, len(s)+1)
	buf = append(buf, kindTag)
	buf = append(buf, s...)
	return scalarHash(buf)
}

// Hash returns a hash consistent with Equal: equal values always hash
// equal. Floats hash by bit pattern (so NaN hashes consistently with
// itself, matching Equal's bit-pattern comparison). Maps and sets XOR
// their entries' hashes, so equal maps and sets hash equal whatever
// their insertion order; a Vec's hash depends on element order.
func (v Value) Hash() uint64 {
	switch v.kind {
	case KindNil:
		return scalarHash([]byte{0})
	case KindBool:
		if v.b {
			return scalarHash([]byte{1, 1})
		}
		return scalarHash([]byte{1, 0})
	case KindInt:
		buf := make([]byte, 9)
		buf[0] = 2
		binary.LittleEndian.PutUint64(buf[1:], uint64(v.i))
		return scalarHash(buf)
	case KindFloat:
		buf := make([]byte, 9)
		buf[0] = 3
		binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(v.f))
		return scalarHash(buf)
	case KindString:
		return hashString(4, v.s)
	case KindSymbol:
		buf := make([]byte, 5)
		buf[0] = 5
		binary.LittleEndian.PutUint32(buf[1:], v.sym)
		return scalarHash(buf)
	case KindKeyword:
		buf := make([]byte, 5)
		buf[0] = 6
		binary.LittleEndian.PutUint32(buf[1:], v.sym)
		return scalarHash(buf)
	case KindEntityRef:
		buf := make([]byte, 13)
		buf[0] = 7
		binary.LittleEndian.PutUint64(buf[1:9], v.ent.Index)
		binary.LittleEndian.PutUint32(buf[9:], v.ent.Generation)
		return scalarHash(buf)
	case KindVec:
		return v.vec.Hash()
	case KindSet:
		return v.set.Hash()
	case KindMap:
		return v.mp.Hash()
	case KindFn:
		buf := make([]byte, 13)
		buf[0] = 10
		binary.LittleEndian.PutUint32(buf[1:5], uint32(v.fn.FnIndex))
		binary.LittleEndian.PutUint64(buf[5:], uint64(len(v.fn.Captures)))
		return scalarHash(buf)
	default:
		return 0
	}
}
