package export

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/crypto/argon2"
)

// HashType represents the different hashing algorithms available.
type HashType string

const (
	// HashTypeArgon2id uses the Argon2id algorithm for hashing.
	HashTypeArgon2id HashType = "argon2id"
	// HashTypeSHA256 uses iterated SHA256 for hashing.
	HashTypeSHA256 HashType = "sha256"
)

// HashID converts a user ID to a hex hash using the given algorithm and salt.
// Memory is in MiB and only applies to Argon2id.
func HashID(id uint64, salt string, hashType HashType, iterations, memory uint32) string {
	idBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(idBytes, id)

	var hash []byte

	switch hashType {
	case HashTypeArgon2id:
		hash = argon2.IDKey(idBytes, []byte(salt), iterations, memory*1024, 1, 32)
	case HashTypeSHA256:
		hash = []byte(salt)

		h := sha256.New()
		for range iterations {
			h.Reset()
			h.Write(idBytes)
			h.Write(hash)
			hash = h.Sum(nil)
		}
	}

	return hex.EncodeToString(hash)
}

// hashIDs hashes ids on up to concurrency goroutines, preserving order.
func hashIDs(ids []uint64, salt string, hashType HashType, concurrency int, iterations, memory uint32) []string {
	hashes := make([]string, len(ids))
	if len(ids) == 0 {
		return hashes
	}

	p := pool.New().WithMaxGoroutines(min(max(concurrency, 1), len(ids)))
	for i, id := range ids {
		p.Go(func() {
			hashes[i] = HashID(id, salt, hashType, iterations, memory)
		})
	}
	p.Wait()

	return hashes
}
