package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const orderIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz_-"

// GenerateOrderID returns a merchant order id in the form TRX-xxxx-xxxxxxxx.
func GenerateOrderID() string {
	return "TRX-" + randomToken(4) + "-" + randomToken(8)
}

func randomToken(n int) string {
	var b strings.Builder
	b.Grow(n)
	max := big.NewInt(int64(len(orderIDAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand unavailable: " + err.Error())
		}
		b.WriteByte(orderIDAlphabet[idx.Int64()])
	}
	return b.String()
}
