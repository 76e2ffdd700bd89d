package checkout

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Crockford-style alphabet: no I, L, O, or U so codes survive being read
// aloud over the phone.
const codeAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewOrderNumber builds the customer-facing order reference, e.g.
// VL-20260827-K4T9QX.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("VL-%s-%s", now.UTC().Format("20060102"), randomCode(6))
}

// NewTrackingCode builds the public tracking reference used for
// unauthenticated order lookups.
func NewTrackingCode() string {
	return "VLT-" + randomCode(10)
}

func randomCode(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out)
}
