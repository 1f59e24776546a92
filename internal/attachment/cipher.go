package attachment

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
)

// KeySize is the length of an attachment key: an AES-256 key followed by an
// HMAC-SHA256 key.
const KeySize = 64

const (
	ivSize  = aes.BlockSize
	macSize = sha256.Size
)

var (
	ErrBadDigest = errors.New("attachment digest mismatch")
	ErrBadMAC    = errors.New("attachment mac mismatch")
)

// CiphertextLength returns the encrypted size of n plaintext bytes:
// IV, PKCS#7 padded AES-CBC ciphertext and MAC.
func CiphertextLength(n int64) int64 {
	return ivSize + (n/aes.BlockSize+1)*aes.BlockSize + macSize
}

// CipherReader encrypts a plaintext stream as IV || AES-256-CBC(plaintext)
// || HMAC-SHA256(IV || ciphertext). Digest is the SHA-256 of everything read
// and is available once the reader returned io.EOF.
type CipherReader struct {
	src     io.Reader
	mode    cipher.BlockMode
	mac     hash.Hash
	digest  hash.Hash
	out     bytes.Buffer
	pending []byte
	buf     []byte
	done    bool
}

// NewCipherReader wraps plaintext with the given 64-byte key and 16-byte IV.
func NewCipherReader(plaintext io.Reader, key, iv []byte) (*CipherReader, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("attachment key is %d bytes, want %d", len(key), KeySize)
	}
	if len(iv) != ivSize {
		return nil, fmt.Errorf("attachment iv is %d bytes, want %d", len(iv), ivSize)
	}
	block, err := aes.NewCipher(key[:32])
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	c := &CipherReader{
		src:    plaintext,
		mode:   cipher.NewCBCEncrypter(block, iv),
		mac:    hmac.New(sha256.New, key[32:]),
		digest: sha256.New(),
		buf:    make([]byte, 32*1024),
	}
	c.emit(iv)
	return c, nil
}

func (c *CipherReader) Read(p []byte) (int, error) {
	for c.out.Len() == 0 && !c.done {
		if err := c.fill(); err != nil {
			return 0, err
		}
	}
	if c.out.Len() == 0 {
		return 0, io.EOF
	}
	return c.out.Read(p)
}

// Digest returns the SHA-256 of the full output, or nil before io.EOF.
func (c *CipherReader) Digest() []byte {
	if !c.done || c.out.Len() > 0 {
		return nil
	}
	return c.digest.Sum(nil)
}

func (c *CipherReader) fill() error {
	n, err := c.src.Read(c.buf)
	c.pending = append(c.pending, c.buf[:n]...)

	switch {
	case err == io.EOF:
		final := pkcs7Pad(c.pending)
		c.pending = nil
		c.encrypt(final)
		mac := c.mac.Sum(nil)
		c.out.Write(mac)
		c.digest.Write(mac)
		c.done = true
		return nil
	case err != nil:
		return fmt.Errorf("read attachment: %w", err)
	}

	full := len(c.pending) / aes.BlockSize * aes.BlockSize
	if full > 0 {
		c.encrypt(c.pending[:full])
		c.pending = append(c.pending[:0], c.pending[full:]...)
	}
	return nil
}

func (c *CipherReader) encrypt(plain []byte) {
	ct := make([]byte, len(plain))
	c.mode.CryptBlocks(ct, plain)
	c.mac.Write(ct)
	c.emit(ct)
}

func (c *CipherReader) emit(b []byte) {
	c.out.Write(b)
	c.digest.Write(b)
}

func pkcs7Pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

// Decrypt verifies digest and MAC of an encrypted attachment and returns the
// plaintext, including any length padding that was applied before upload.
func Decrypt(data, key, digest []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("attachment key is %d bytes, want %d", len(key), KeySize)
	}
	if len(data) < ivSize+aes.BlockSize+macSize {
		return nil, errors.New("attachment too short")
	}
	if digest != nil {
		sum := sha256.Sum256(data)
		if !hmac.Equal(sum[:], digest) {
			return nil, ErrBadDigest
		}
	}

	body, tag := data[:len(data)-macSize], data[len(data)-macSize:]
	mac := hmac.New(sha256.New, key[32:])
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), tag) {
		return nil, ErrBadMAC
	}

	iv, ct := body[:ivSize], body[ivSize:]
	if len(ct)%aes.BlockSize != 0 {
		return nil, errors.New("attachment ciphertext is not block aligned")
	}
	block, err := aes.NewCipher(key[:32])
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	n := int(plain[len(plain)-1])
	if n == 0 || n > aes.BlockSize || n > len(plain) {
		return nil, errors.New("invalid attachment padding")
	}
	for _, b := range plain[len(plain)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid attachment padding")
		}
	}
	return plain[:len(plain)-n], nil
}
