// Package protected holds secrets in memory in obscured form. The plaintext
// is XORed with a per-value ChaCha20 keystream and only reconstructed on
// demand, so it never sits in a long-lived buffer in the clear.
package protected

import (
	"crypto/rand"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/chacha20"
)

// Value is an obscured byte string. The zero value is an empty secret.
type Value struct {
	masked []byte
	key    [chacha20.KeySize]byte
	nonce  [chacha20.NonceSize]byte
}

// FromString obscures s. An empty string yields an empty Value.
func FromString(s string) *Value {
	return FromBytes([]byte(s))
}

// FromBytes obscures a copy of b; the caller may wipe b afterwards.
func FromBytes(b []byte) *Value {
	v := &Value{}
	if len(b) == 0 {
		return v
	}

	if _, err := rand.Read(v.key[:]); err != nil {
		// crypto/rand.Read never returns an error on supported platforms.
		panic(fmt.Sprintf("protected: reading random key: %v", err))
	}

	if _, err := rand.Read(v.nonce[:]); err != nil {
		panic(fmt.Sprintf("protected: reading random nonce: %v", err))
	}

	v.masked = make([]byte, len(b))
	v.xor(v.masked, b)

	return v
}

func (v *Value) xor(dst, src []byte) {
	c, err := chacha20.NewUnauthenticatedCipher(v.key[:], v.nonce[:])
	if err != nil {
		// Key and nonce sizes are fixed by the array types.
		panic(fmt.Sprintf("protected: creating cipher: %v", err))
	}

	c.XORKeyStream(dst, src)
}

// Bytes returns a fresh plaintext copy. The caller should zero it after use.
func (v *Value) Bytes() []byte {
	if v == nil || len(v.masked) == 0 {
		return nil
	}

	out := make([]byte, len(v.masked))
	v.xor(out, v.masked)

	return out
}

// Text returns the plaintext as a string.
func (v *Value) Text() string {
	b := v.Bytes()
	s := string(b)
	clear(b)

	return s
}

// Len is the plaintext length in bytes.
func (v *Value) Len() int {
	if v == nil {
		return 0
	}

	return len(v.masked)
}

// IsEmpty reports whether the secret has no content.
func (v *Value) IsEmpty() bool {
	return v.Len() == 0
}

// Equal compares two values by plaintext.
func (v *Value) Equal(o *Value) bool {
	a, b := v.Bytes(), o.Bytes()
	defer clear(a)
	defer clear(b)

	if len(a) != len(b) {
		return false
	}

	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}

	return diff == 0
}

// Wipe zeroes the masked bytes and the key material.
func (v *Value) Wipe() {
	if v == nil {
		return
	}

	clear(v.masked)
	clear(v.key[:])
	clear(v.nonce[:])
	v.masked = nil
}

// LogValue implements slog.LogValuer; the secret is never logged.
func (v *Value) LogValue() slog.Value {
	return slog.GroupValue(slog.Int("len", v.Len()), slog.String("value", "[REDACTED]"))
}

// String keeps the secret out of fmt output.
func (v *Value) String() string {
	return "[REDACTED]"
}
