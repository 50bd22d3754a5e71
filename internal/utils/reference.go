package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GeneratePaymentReference returns a 12 character gateway order code: four digits
// (minutes and seconds, UTC) followed by eight random alphanumerics. Card gateways of the
// Redsys family require the first four characters to be numeric.
func GeneratePaymentReference() string {
	now := time.Now().UTC()
	prefix := fmt.Sprintf("%02d%02d", now.Minute(), now.Second())

	suffix := make([]byte, 8)
	max := big.NewInt(int64(len(referenceAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// fallback: time-based entropy
			n = big.NewInt((now.UnixNano() >> (i * 5)) % int64(len(referenceAlphabet)))
		}
		suffix[i] = referenceAlphabet[n.Int64()]
	}

	return prefix + string(suffix)
}
