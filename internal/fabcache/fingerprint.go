// Package fabcache implements the peer's fingerprinted result cache and
// bounded execution history (C9).
package fabcache

import (
	"crypto/sha256"
	"encoding/json"
)

// Fingerprint is a stable 256-bit digest over (program, entry, args),
// used as the cache key. Matches the teacher's own use of crypto/sha256
// for content checksums.
type Fingerprint [32]byte

// Compute derives the fingerprint of a submission. args is serialized via
// encoding/json to obtain a canonical byte representation independent of
// the caller's in-memory argument types.
func Compute(program []byte, entry string, args interface{}) (Fingerprint, error) {
	canonicalArgs, err := json.Marshal(args)
	if err != nil {
		return Fingerprint{}, err
	}
	h := sha256.New()
	h.Write(program)
	h.Write([]byte{0})
	h.Write([]byte(entry))
	h.Write([]byte{0})
	h.Write(canonicalArgs)
	var fp Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp, nil
}
