package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

const (
	alphanumeric  = "abcdefghijklmnopqrstuvwxyz0123456789"
	taskKeyLength = 24
)

// Hash generates a SHA-256 hash of the input string
func Hash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// NewTaskKey returns an unguessable key used to address a job from an external scheduler
func NewTaskKey() (string, error) {
	return RandomString(taskKeyLength)
}

// RandomString returns n characters drawn uniformly from [a-z0-9] using crypto/rand
func RandomString(n int) (string, error) {
	max := big.NewInt(int64(len(alphanumeric)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = alphanumeric[idx.Int64()]
	}
	return string(buf), nil
}
