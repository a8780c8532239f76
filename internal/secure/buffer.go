// Package secure provides memory-safe storage for secret values while they
// are held for comparison. Values live inside a memguard enclave, encrypted
// at rest in memory and protected from swapping, and are only decrypted for
// the duration of a single constant-time comparison.
package secure

import (
	"crypto/subtle"

	"github.com/awnumar/memguard"
)

// Buffer holds one sensitive value inside an encrypted enclave.
type Buffer struct {
	enclave *memguard.Enclave
}

// NewBuffer copies data into a protected memory region. The caller keeps
// ownership of the input slice and should zero it if it is long-lived.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{enclave: memguard.NewEnclave(data)}
}

// NewBufferString is a convenience wrapper for string values.
func NewBufferString(s string) *Buffer {
	return NewBuffer([]byte(s))
}

// Equal decrypts the enclave and compares it against other in constant time.
// The decrypted copy is wiped before returning.
func (b *Buffer) Equal(other []byte) (bool, error) {
	locked, err := b.enclave.Open()
	if err != nil {
		return false, err
	}
	defer locked.Destroy()

	return subtle.ConstantTimeCompare(locked.Bytes(), other) == 1, nil
}

// EqualString compares the protected value against a string in constant time.
func (b *Buffer) EqualString(other string) (bool, error) {
	return b.Equal([]byte(other))
}
