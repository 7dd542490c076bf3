// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package codec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// EncryptedExtension is appended to encrypted artifact names.
const EncryptedExtension = ".enc"

const (
	encMagic        = "CSTDNAE1"
	saltSize        = 32
	noncePrefixSize = 7
	headerSize      = len(encMagic) + saltSize + noncePrefixSize
	chunkSize       = 64 * 1024
	keySize         = 32
	hkdfInfo        = "custodian backup artifact v1"
)

var (
	// ErrInvalidKey is returned when the application key is too short.
	ErrInvalidKey = errors.New("encryption key must be at least 32 bytes")
	// ErrInvalidHeader means the stream is not a Custodian encrypted artifact.
	ErrInvalidHeader = errors.New("invalid encrypted artifact header")
	// ErrAuthenticationFailed means a chunk failed GCM authentication (wrong key or tampered data).
	ErrAuthenticationFailed = errors.New("encrypted artifact failed authentication")
	// ErrTruncated means the stream ended before its final chunk.
	ErrTruncated = errors.New("encrypted artifact is truncated")
)

// Encryptor seals and opens backup payloads with a key derived from the
// application-wide secret.
type Encryptor struct {
	master []byte
}

// NewEncryptor creates an Encryptor from the raw application key.
func NewEncryptor(master []byte) (*Encryptor, error) {
	if len(master) < keySize {
		return nil, ErrInvalidKey
	}
	return &Encryptor{master: append([]byte(nil), master...)}, nil
}

func (e *Encryptor) aead(salt []byte) (cipher.AEAD, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, e.master, salt, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}

func chunkNonce(prefix []byte, counter uint32, last bool) []byte {
	nonce := make([]byte, 12)
	copy(nonce, prefix)
	binary.BigEndian.PutUint32(nonce[noncePrefixSize:], counter)
	if last {
		nonce[11] = 1
	}
	return nonce
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// Encrypt reads plaintext from src until EOF and writes the encrypted
// artifact to dst.
func (e *Encryptor) Encrypt(dst io.Writer, src io.Reader) error {
	header := make([]byte, headerSize)
	copy(header, encMagic)
	if _, err := io.ReadFull(rand.Reader, header[len(encMagic):]); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	salt := header[len(encMagic) : len(encMagic)+saltSize]
	prefix := header[len(encMagic)+saltSize:]

	gcm, err := e.aead(salt)
	if err != nil {
		return err
	}
	if _, err := dst.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	cur := make([]byte, chunkSize)
	next := make([]byte, chunkSize)
	sealed := make([]byte, 0, chunkSize+gcm.Overhead())

	n, err := io.ReadFull(src, cur)
	eof := isEOF(err)
	if err != nil && !eof {
		return fmt.Errorf("read plaintext: %w", err)
	}

	for counter := uint32(0); ; counter++ {
		last := eof
		var m int
		if !eof {
			// A full chunk is only final if nothing follows it.
			m, err = io.ReadFull(src, next)
			eof = isEOF(err)
			if err != nil && !eof {
				return fmt.Errorf("read plaintext: %w", err)
			}
			last = eof && m == 0
		}

		sealed = gcm.Seal(sealed[:0], chunkNonce(prefix, counter, last), cur[:n], nil)
		if _, err := dst.Write(sealed); err != nil {
			return fmt.Errorf("write chunk %d: %w", counter, err)
		}
		if last {
			return nil
		}
		if counter == ^uint32(0) {
			return errors.New("artifact exceeds maximum encrypted size")
		}
		cur, next = next, cur
		n = m
	}
}

// Decrypt authenticates and decrypts an artifact from src into dst.
// Plaintext of earlier chunks may already be written when a later chunk
// fails, so callers must discard dst on error.
func (e *Encryptor) Decrypt(dst io.Writer, src io.Reader) error {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(src, header); err != nil {
		if isEOF(err) {
			return ErrInvalidHeader
		}
		return fmt.Errorf("read header: %w", err)
	}
	if string(header[:len(encMagic)]) != encMagic {
		return ErrInvalidHeader
	}
	salt := header[len(encMagic) : len(encMagic)+saltSize]
	prefix := header[len(encMagic)+saltSize:]

	gcm, err := e.aead(salt)
	if err != nil {
		return err
	}

	buf := make([]byte, chunkSize+gcm.Overhead())
	plain := make([]byte, 0, chunkSize)

	for counter := uint32(0); ; counter++ {
		n, err := io.ReadFull(src, buf)
		switch {
		case errors.Is(err, io.EOF):
			return ErrTruncated
		case errors.Is(err, io.ErrUnexpectedEOF):
			// A short chunk can only be the final one.
			plain, err = gcm.Open(plain[:0], chunkNonce(prefix, counter, true), buf[:n], nil)
			if err != nil {
				return ErrAuthenticationFailed
			}
			if _, err := dst.Write(plain); err != nil {
				return fmt.Errorf("write plaintext: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("read chunk %d: %w", counter, err)
		}

		last := false
		plain, err = gcm.Open(plain[:0], chunkNonce(prefix, counter, false), buf, nil)
		if err != nil {
			plain, err = gcm.Open(plain[:0], chunkNonce(prefix, counter, true), buf, nil)
			if err != nil {
				return ErrAuthenticationFailed
			}
			last = true
		}
		if _, err := dst.Write(plain); err != nil {
			return fmt.Errorf("write plaintext: %w", err)
		}
		if last {
			var extra [1]byte
			if m, _ := io.ReadFull(src, extra[:]); m > 0 {
				return ErrAuthenticationFailed
			}
			return nil
		}
	}
}

// EncryptBytes encrypts an in-memory payload.
func (e *Encryptor) EncryptBytes(plain []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := e.Encrypt(&out, bytes.NewReader(plain)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// DecryptBytes decrypts an in-memory artifact.
func (e *Encryptor) DecryptBytes(sealed []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := e.Decrypt(&out, bytes.NewReader(sealed)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// EncryptFile writes the encrypted form of srcPath to dstPath.
func (e *Encryptor) EncryptFile(srcPath, dstPath string) error {
	return transformFile(srcPath, dstPath, e.Encrypt)
}

// DecryptFile writes the decrypted form of srcPath to dstPath.
func (e *Encryptor) DecryptFile(srcPath, dstPath string) error {
	return transformFile(srcPath, dstPath, e.Decrypt)
}
