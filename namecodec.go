package memphis

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/spaolacci/murmur3"
)

// sanitize lowercases name and, if addSuffix is set, appends an underscore
// and an 8-character hex suffix so repeated calls with GenUniqueSuffix never
// collide within a process.
func sanitize(name string, addSuffix bool) (string, error) {
	name = strings.ToLower(name)
	if !addSuffix {
		return name, nil
	}
	suffix, err := randomHex(4)
	if err != nil {
		return "", err
	}
	return name + "_" + suffix, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// internalName replaces every "." with "#" since dots collide with NATS
// subject tokenization.
func internalName(name string) string {
	return strings.ReplaceAll(name, ".", "#")
}

// partitionOf hashes key with murmur3 (32-bit, seed 31) and reduces mod count.
// count must be > 0.
func partitionOf(key string, count int) int {
	h := murmur3.Sum32WithSeed([]byte(key), 31)
	return int(h) % count
}
