package wire

import (
	"crypto/rand"
	"math/big"
)

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// TokenLength is the size of a shareable link token.
const TokenLength = 8

// NewLinkToken mints a fresh link token, uniform over the alphanumeric
// alphabet. Every publish action gets a new one; republishing silently
// invalidates any previously shared link, and old tokens are never reused.
func NewLinkToken() string {
	buf := make([]byte, TokenLength)
	maxIdx := big.NewInt(int64(len(tokenAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, maxIdx)
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken.
			panic(err)
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}
	return string(buf)
}
