// Package sessionproto implements the session-protocol cipher: payloads are
// signed with the sender's ed25519 key and sealed to the recipient's X25519
// key so that storage nodes never learn the sender.
package sessionproto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// KeyPrefix marks an X25519 public key in a session id.
const KeyPrefix = "05"

// Identity is the local account key material.
type Identity struct {
	X25519Public  [32]byte
	X25519Private [32]byte
	Ed25519       ed25519.PrivateKey
}

// GenerateIdentity creates a fresh identity from r.
func GenerateIdentity(r io.Reader) (*Identity, error) {
	pub, priv, err := box.GenerateKey(r)
	if err != nil {
		return nil, fmt.Errorf("generate x25519 key: %w", err)
	}
	_, edPriv, err := ed25519.GenerateKey(r)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return &Identity{X25519Public: *pub, X25519Private: *priv, Ed25519: edPriv}, nil
}

// PublicKey returns the session id of the identity.
func (id *Identity) PublicKey() string {
	return KeyPrefix + hex.EncodeToString(id.X25519Public[:])
}

// LoadOrCreateIdentity reads the identity at path, generating and saving a
// new one when the file does not exist.
func LoadOrCreateIdentity(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		return parseIdentity(strings.TrimSpace(string(data)))
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read identity: %w", err)
	}

	id, err := GenerateIdentity(rand.Reader)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create identity dir: %w", err)
	}
	encoded := hex.EncodeToString(id.X25519Private[:]) + hex.EncodeToString(id.Ed25519.Seed())
	if err := os.WriteFile(path, []byte(encoded+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("write identity: %w", err)
	}
	return id, nil
}

func parseIdentity(encoded string) (*Identity, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("identity is %d bytes, want 64", len(raw))
	}

	id := &Identity{Ed25519: ed25519.NewKeyFromSeed(raw[32:])}
	copy(id.X25519Private[:], raw[:32])
	pub, err := curve25519.X25519(id.X25519Private[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("derive x25519 public key: %w", err)
	}
	copy(id.X25519Public[:], pub)
	return id, nil
}

// ParsePublicKey decodes a session id into its X25519 key.
func ParsePublicKey(sessionID string) ([32]byte, error) {
	var key [32]byte
	hexKey, ok := strings.CutPrefix(sessionID, KeyPrefix)
	if !ok || len(hexKey) != 64 {
		return key, fmt.Errorf("malformed session id %q", sessionID)
	}
	if _, err := hex.Decode(key[:], []byte(hexKey)); err != nil {
		return key, fmt.Errorf("malformed session id %q: %w", sessionID, err)
	}
	return key, nil
}
