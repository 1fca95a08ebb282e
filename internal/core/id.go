package core

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const idLength = 10

// GenerateID generates a random alphanumeric ID of length 10.
func GenerateID() string {
	b := make([]byte, idLength)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(idCharset))))
		if err != nil {
			// crypto/rand failing is close to impossible; fall back to a
			// timestamp-derived ID rather than panicking.
			return fmt.Sprintf("id%d", time.Now().UnixNano())
		}
		b[i] = idCharset[num.Int64()]
	}
	return string(b)
}
