// Package secretbox seals short secrets such as IBANs with envelope
// encryption.
//
// Every value gets a fresh 256-bit data key. The data key encrypts the value
// with AES-GCM and is itself wrapped by a master key derived from a
// configured secret with HKDF-SHA256. A sealed value is the base64 of
//
//	version(1) | nonceK(12) | wrappedDEK(48) | nonceD(12) | ciphertext
//
// The version byte selects the master key so secrets can be rotated.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	ErrEmptySecret  = errors.New("secretbox: empty secret")
	ErrMalformed    = errors.New("secretbox: malformed sealed value")
	ErrUnknownKey   = errors.New("secretbox: unknown key version")
	ErrDecryptFault = errors.New("secretbox: decryption failed")
)

const (
	hkdfInfo   = "marchelocal bank details"
	keySize    = 32
	nonceSize  = 12
	tagSize    = 16
	wrappedLen = keySize + tagSize
	headerLen  = 1 + nonceSize + wrappedLen + nonceSize
)

// Box seals and opens values. The zero value is not usable.
type Box struct {
	current byte
	masters map[byte]cipher.AEAD
}

// New derives the master key for version 1 from secret.
func New(secret string) (*Box, error) {
	return NewVersioned(map[byte]string{1: secret}, 1)
}

// NewVersioned derives one master key per version and seals with current.
func NewVersioned(secrets map[byte]string, current byte) (*Box, error) {
	if _, ok := secrets[current]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKey, current)
	}

	b := &Box{current: current, masters: make(map[byte]cipher.AEAD, len(secrets))}
	for version, secret := range secrets {
		if secret == "" {
			return nil, ErrEmptySecret
		}
		key := make([]byte, keySize)
		kdf := hkdf.New(sha256.New, []byte(secret), []byte{version}, []byte(hkdfInfo))
		if _, err := io.ReadFull(kdf, key); err != nil {
			return nil, fmt.Errorf("derive master key: %w", err)
		}
		aead, err := newGCM(key)
		if err != nil {
			return nil, err
		}
		b.masters[version] = aead
	}
	return b, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Version returns the master key version new values are sealed with.
func (b *Box) Version() int {
	return int(b.current)
}

// Seal encrypts plaintext under a fresh data key wrapped by the current master key.
func (b *Box) Seal(plaintext string) (string, error) {
	buf := make([]byte, headerLen, headerLen+len(plaintext)+tagSize)
	buf[0] = b.current
	nonceK := buf[1 : 1+nonceSize]
	nonceD := buf[headerLen-nonceSize : headerLen]

	dek := make([]byte, keySize)
	for _, p := range [][]byte{dek, nonceK, nonceD} {
		if _, err := rand.Read(p); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
	}

	// the version byte is authenticated with the wrapped key
	b.masters[b.current].Seal(buf[1+nonceSize:1+nonceSize], nonceK, dek, buf[:1])

	data, err := newGCM(dek)
	if err != nil {
		return "", err
	}
	out := data.Seal(buf, nonceD, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal with any known master key version.
func (b *Box) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < headerLen+tagSize {
		return "", ErrMalformed
	}

	master, ok := b.masters[raw[0]]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownKey, raw[0])
	}

	nonceK := raw[1 : 1+nonceSize]
	wrapped := raw[1+nonceSize : 1+nonceSize+wrappedLen]
	nonceD := raw[headerLen-nonceSize : headerLen]

	dek, err := master.Open(nil, nonceK, wrapped, raw[:1])
	if err != nil {
		return "", ErrDecryptFault
	}

	data, err := newGCM(dek)
	if err != nil {
		return "", err
	}
	plaintext, err := data.Open(nil, nonceD, raw[headerLen:], nil)
	if err != nil {
		return "", ErrDecryptFault
	}
	return string(plaintext), nil
}
