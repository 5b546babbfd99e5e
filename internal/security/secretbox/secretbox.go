// Package secretbox cifra blobs chicos con AEAD (XChaCha20-Poly1305).
// La clave es inmutable y se pasa explícitamente al construir el Box: nada de
// estado global mutable ni lazy-load desde env en caliente.
package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// KeyLength es el tamaño requerido de clave (32 bytes).
	KeyLength = chacha20poly1305.KeySize
	sep       = "|" // base64(nonce)|base64(ciphertext)

	// maxSealedLen acota cuánto input controlado por el atacante decodificamos.
	// Las cookies rondan los 4KB en browsers; 8KB es margen de sobra.
	maxSealedLen = 8192
)

var (
	ErrBadKey    = errors.New("secretbox: clave inválida (se requieren 32 bytes)")
	ErrBadFormat = errors.New("secretbox: formato inválido, esperado base64(nonce)|base64(ciphertext)")
	ErrOpen      = errors.New("secretbox: auth/decrypt falló")
)

// Box sella y abre blobs con una clave fija.
type Box struct {
	key []byte
}

// New crea un Box con una clave cruda de 32 bytes. La clave se copia.
func New(key []byte) (*Box, error) {
	if len(key) != KeyLength {
		return nil, ErrBadKey
	}
	k := make([]byte, KeyLength)
	copy(k, key)
	return &Box{key: k}, nil
}

// NewFromBase64 crea un Box desde una clave base64 (std o raw).
// Generar una con: openssl rand -base64 32
func NewFromBase64(keyB64 string) (*Box, error) {
	keyB64 = strings.TrimSpace(keyB64)
	k, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		if k, err = base64.RawStdEncoding.DecodeString(keyB64); err != nil {
			return nil, fmt.Errorf("secretbox: decode clave base64: %w", err)
		}
	}
	return New(k)
}

// Seal cifra plain y devuelve base64(nonce)|base64(ciphertext).
// aad liga el blob a su contexto (ej: nombre de cookie + path); el mismo aad
// debe pasarse a Open.
func (b *Box) Seal(plain, aad []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secretbox: nonce random: %w", err)
	}
	ct := aead.Seal(nil, nonce, plain, aad)
	return base64.RawURLEncoding.EncodeToString(nonce) + sep + base64.RawURLEncoding.EncodeToString(ct), nil
}

// Open descifra un blob sellado por Seal con el mismo aad.
// Cualquier corrupción (formato, nonce, tag) devuelve error; el caller decide
// si eso es fatal o "no había blob".
func (b *Box) Open(sealed string, aad []byte) ([]byte, error) {
	if sealed == "" || len(sealed) > maxSealedLen {
		return nil, ErrBadFormat
	}
	nonceB64, ctB64, ok := strings.Cut(sealed, sep)
	if !ok || nonceB64 == "" || ctB64 == "" {
		return nil, ErrBadFormat
	}
	nonce, err := base64.RawURLEncoding.DecodeString(nonceB64)
	if err != nil {
		return nil, ErrBadFormat
	}
	ct, err := base64.RawURLEncoding.DecodeString(ctB64)
	if err != nil {
		return nil, ErrBadFormat
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrBadFormat
	}
	pt, err := aead.Open(nil, nonce, ct, aad)
	if err != nil {
		return nil, ErrOpen
	}
	return pt, nil
}
