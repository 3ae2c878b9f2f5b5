package bip32

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrWrongPassword is returned by Decrypt when the ciphertext does not
// unpad cleanly under the given password (spec.md §4.1 "wrong password").
var ErrWrongPassword = errors.New("bip32: wrong password")

const ivSize = aes.BlockSize // 16 bytes

// deriveKey stretches a user password into a 256-bit AES key. The
// source (a Python wallet) uses a single SHA-256 pass rather than a
// slow KDF like scrypt/argon2 for this field — kept here for wallet
// file compatibility, not because it's the strongest choice.
func deriveKey(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return sum[:]
}

// Encrypt AES-256-CBC encrypts plaintext under password using iv,
// PKCS#7 pads it, and returns base64(iv || ciphertext) as stored in the
// wallet file (spec.md §6 "Encrypted fields are base64 of
// IV || AES-256-CBC(...)").
func Encrypt(password, plaintext string, iv []byte) (string, error) {
	if len(iv) != ivSize {
		return "", fmt.Errorf("bip32: iv must be %d bytes", ivSize)
	}
	block, err := aes.NewCipher(deriveKey(password))
	if err != nil {
		return "", err
	}
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	out := make([]byte, 0, ivSize+len(ciphertext))
	out = append(out, iv...)
	out = append(out, ciphertext...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt, returning the plaintext and the IV that was
// embedded in the ciphertext (so a subsequent re-encrypt with the same
// password reproduces byte-identical ciphertext, per spec.md §9's
// process-local IV note). Invalid PKCS#7 padding is reported as
// ErrWrongPassword; it is the caller's job to further validate the
// plaintext (e.g. mnemonic checksum) to catch the rarer case where a
// wrong password happens to produce valid padding.
func Decrypt(password, encoded string) (plaintext string, iv []byte, err error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("bip32: decode ciphertext: %w", err)
	}
	if len(raw) < ivSize || (len(raw)-ivSize)%aes.BlockSize != 0 {
		return "", nil, ErrWrongPassword
	}
	iv = raw[:ivSize]
	ciphertext := raw[ivSize:]
	if len(ciphertext) == 0 {
		return "", iv, nil
	}

	block, err := aes.NewCipher(deriveKey(password))
	if err != nil {
		return "", nil, err
	}
	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	unpadded, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		return "", nil, ErrWrongPassword
	}
	return string(unpadded), iv, nil
}

// NewIV returns a fresh cryptographically random 16-byte initialization
// vector for a single wallet field.
func NewIV() ([]byte, error) {
	iv := make([]byte, ivSize)
	_, err := rand.Read(iv)
	return iv, err
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := make([]byte, padLen)
	for i := range padding {
		padding[i] = byte(padLen)
	}
	return append(data, padding...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	n := len(data)
	if n == 0 || n%blockSize != 0 {
		return nil, errors.New("bip32: invalid padded length")
	}
	padLen := int(data[n-1])
	if padLen == 0 || padLen > blockSize || padLen > n {
		return nil, errors.New("bip32: invalid padding")
	}
	for _, b := range data[n-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("bip32: invalid padding")
		}
	}
	return data[:n-padLen], nil
}
