package authflow

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDraftSeal is returned when a sealed draft field cannot be opened, for
// example after the draft key changed or the draft was copied to another
// client.
var ErrDraftSeal = errors.New("signup draft seal invalid")

const draftSealContext = "authflow-signup-draft\x00"

// draftSealer encrypts the one secret a signup draft carries. The client id
// is bound as additional data, so a sealed value only opens for the client
// that saved it.
type draftSealer struct {
	aead cipher.AEAD
}

// newDraftSealer builds a sealer from a base64 encoded 32-byte key. An
// empty key generates a process-local one; drafts then only resume on the
// instance that saved them.
func newDraftSealer(encodedKey string) (*draftSealer, error) {
	var key []byte
	if encodedKey == "" {
		key = make([]byte, chacha20poly1305.KeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate draft key: %w", err)
		}
	} else {
		var err error
		key, err = decodeDraftKey(encodedKey)
		if err != nil {
			return nil, err
		}
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("draft cipher: %w", err)
	}
	return &draftSealer{aead: aead}, nil
}

func decodeDraftKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.New("Signup DraftKey must be base64")
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("Signup DraftKey must decode to %d bytes", chacha20poly1305.KeySize)
	}
	return key, nil
}

func (s *draftSealer) seal(clientID, plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("draft nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), []byte(draftSealContext+clientID))
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (s *draftSealer) open(clientID, sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < s.aead.NonceSize() {
		return "", ErrDraftSeal
	}
	nonce, ct := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	pt, err := s.aead.Open(nil, nonce, ct, []byte(draftSealContext+clientID))
	if err != nil {
		return "", ErrDraftSeal
	}
	return string(pt), nil
}
