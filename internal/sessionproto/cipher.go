package sessionproto

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/diogocavaiar/session-android/internal/delivery"
	"golang.org/x/crypto/nacl/box"
)

const nonceSize = 24

var ErrBadSignature = errors.New("session protocol signature mismatch")

// Cipher encrypts for recipients with the local identity.
type Cipher struct {
	id   *Identity
	rand io.Reader
}

// NewCipher returns a cipher for id.
func NewCipher(id *Identity) *Cipher {
	return &Cipher{id: id, rand: rand.Reader}
}

// Encrypt signs plaintext and seals it anonymously to the recipient:
// seal(plaintext || edPub || sig(plaintext || edPub || recipientX25519)).
func (c *Cipher) Encrypt(_ context.Context, plaintext []byte, recipientPublicKey string) ([]byte, error) {
	recipient, err := ParsePublicKey(recipientPublicKey)
	if err != nil {
		return nil, &delivery.UnregisteredUserError{PublicKey: recipientPublicKey}
	}

	edPub := c.id.Ed25519.Public().(ed25519.PublicKey)
	signed := make([]byte, 0, len(plaintext)+len(edPub)+len(recipient))
	signed = append(signed, plaintext...)
	signed = append(signed, edPub...)
	signed = append(signed, recipient[:]...)
	sig := ed25519.Sign(c.id.Ed25519, signed)

	payload := make([]byte, 0, len(plaintext)+len(edPub)+len(sig))
	payload = append(payload, plaintext...)
	payload = append(payload, edPub...)
	payload = append(payload, sig...)

	sealed, err := box.SealAnonymous(nil, payload, &recipient, c.rand)
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	return sealed, nil
}

// EncryptFallback encrypts with a plain authenticated box from the local
// X25519 key, for recipients without a session: nonce || box.
func (c *Cipher) EncryptFallback(_ context.Context, plaintext []byte, recipientPublicKey string) ([]byte, error) {
	recipient, err := ParsePublicKey(recipientPublicKey)
	if err != nil {
		return nil, &delivery.UnregisteredUserError{PublicKey: recipientPublicKey}
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(c.rand, nonce[:]); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return box.Seal(nonce[:], plaintext, &nonce, &recipient, &c.id.X25519Private), nil
}

// Decrypt opens a message produced by Encrypt for the local identity and
// returns the plaintext with the sender's ed25519 key.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, ed25519.PublicKey, error) {
	payload, ok := box.OpenAnonymous(nil, ciphertext, &c.id.X25519Public, &c.id.X25519Private)
	if !ok {
		return nil, nil, errors.New("open sealed box")
	}
	if len(payload) < ed25519.PublicKeySize+ed25519.SignatureSize {
		return nil, nil, errors.New("session protocol payload too short")
	}

	sigStart := len(payload) - ed25519.SignatureSize
	keyStart := sigStart - ed25519.PublicKeySize
	plaintext := payload[:keyStart]
	sender := ed25519.PublicKey(bytes.Clone(payload[keyStart:sigStart]))

	signed := make([]byte, 0, sigStart+32)
	signed = append(signed, payload[:sigStart]...)
	signed = append(signed, c.id.X25519Public[:]...)
	if !ed25519.Verify(sender, signed, payload[sigStart:]) {
		return nil, nil, ErrBadSignature
	}
	return plaintext, sender, nil
}

// DecryptFallback opens a message produced by EncryptFallback.
func (c *Cipher) DecryptFallback(ciphertext []byte, senderPublicKey string) ([]byte, error) {
	sender, err := ParsePublicKey(senderPublicKey)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < nonceSize+box.Overhead {
		return nil, errors.New("fallback ciphertext too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])
	plaintext, ok := box.Open(nil, ciphertext[nonceSize:], &nonce, &sender, &c.id.X25519Private)
	if !ok {
		return nil, errors.New("open fallback box")
	}
	return plaintext, nil
}
