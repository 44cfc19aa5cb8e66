// Package code generates short human-typeable codes for class joining and
// attendance submission.
package code

import (
	"crypto/rand"
	"math/big"
)

// Ambiguous-looking characters (0/O, 1/I) are left out.
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Generate returns a random uppercase alphanumeric code of length n.
func Generate(n int) string {
	if n <= 0 {
		n = 6
	}
	b := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken.
			panic(err)
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b)
}
