// Package nanoid generates short random IDs for request correlation.
package nanoid

import "crypto/rand"

// alphabet has exactly 64 URL-safe characters, so one random byte
// masked to 6 bits maps to one character with no modulo bias.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ-_"

// idLen gives 126 bits of entropy, plenty for log correlation.
const idLen = 21

// New returns a 21-character random ID drawn from a URL-safe alphabet.
func New() string {
	var buf [idLen]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("nanoid: reading random bytes: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = alphabet[b&63]
	}
	return string(buf[:])
}
