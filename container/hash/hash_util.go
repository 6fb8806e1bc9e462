// this code is adapted from the SamehadaDB project's container/hash/hash_util.go;
// HashValue's dispatch over the SQL Value type is dropped since the
// value/type-system package doesn't live here, but the murmur3-backed
// byte hashing it delegates to is kept and generalized.

package hash

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

const primeFactor uint32 = 10000019

func hashBytes(b []byte, length uint32) uint32 {
	// https://github.com/greenplum-db/gpos/blob/master/libgpos/src/utils.cpp
	hash := length
	for i := 0; i < int(length); i++ {
		hash = ((hash << 5) ^ (hash >> 27)) ^ uint32(b[i])
	}
	return hash
}

// CombineHashes folds two 32-bit hashes into one, used by callers composing
// a hash over multiple key columns.
func CombineHashes(l, r uint32) uint32 {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], l)
	binary.LittleEndian.PutUint32(buf[4:8], r)
	return hashBytes(buf, 8)
}

func SumHashes(l, r uint32) uint32 {
	return (l%primeFactor + r%primeFactor) % primeFactor
}

// GenHash64 returns a 64-bit murmur3 hash of key. The extendible hash
// index downcasts this to 32 bits itself: keeping the full width here lets
// non-index callers use the upper bits too.
func GenHash64(key []byte) uint64 {
	return murmur3.Sum64(key)
}

// GenHashMurMur is kept for callers that only need a 32-bit hash directly,
// taking the low 32 bits of the 64-bit murmur3 sum.
func GenHashMurMur(key []byte) uint32 {
	return uint32(GenHash64(key))
}

// Function64 is the shape the extendible hash index expects: a
// user-provided function producing a 64-bit hash for a key of type K,
// downcast to 32 bits uniformly by the caller. It is a value parameter,
// not a type parameter, so the index itself stays free of per-key-type
// runtime dispatch.
type Function64[K any] func(K) uint64

// ByBytes builds a Function64 for any key type from a byte encoder, backed
// by murmur3.
func ByBytes[K any](encode func(K) []byte) Function64[K] {
	return func(k K) uint64 {
		return GenHash64(encode(k))
	}
}
