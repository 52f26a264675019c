package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// RandomString generates a random hex string of the given length, used for
// password-reset and setup-password URL codes.
func RandomString(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)[:length]
}

// RandomNumericString generates a random string containing only digits, used
// for SMS verification codes.
func RandomNumericString(length int) string {
	const digits = "0123456789"
	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			panic(err)
		}
		b[i] = digits[num.Int64()]
	}
	return string(b)
}
