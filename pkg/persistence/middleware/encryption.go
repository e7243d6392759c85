package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/ports"
)

// ErrNotSealed is returned when an encrypted store finds a plain session.
var ErrNotSealed = errors.New("session state is not sealed")

// EncryptionConfig holds the AES-256 keys of an encrypted store.
type EncryptionConfig struct {
	// ActiveKey seals every save. It must be 32 bytes.
	ActiveKey []byte

	// FallbackKeys can still open sessions sealed before a key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next ports.SessionStore
	keys [][]byte
}

// NewEncryptionMiddleware seals the whole session state with AES-GCM.
// The backend only sees the session id, the update time and the sealed blob.
// It panics if the active key is not 32 bytes.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	keys := append([][]byte{config.ActiveKey}, config.FallbackKeys...)
	return func(next ports.SessionStore) ports.SessionStore {
		return &encryptionMiddleware{next: next, keys: keys}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, sessionID string, state *domain.SessionState) error {
	plain, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	sealed, err := seal(m.keys[0], plain)
	if err != nil {
		return fmt.Errorf("failed to encrypt state: %w", err)
	}

	envelope := domain.NewSessionState(state.SessionID)
	envelope.UpdatedAt = state.UpdatedAt
	envelope.Sealed = base64.StdEncoding.EncodeToString(sealed)
	return m.next.Save(ctx, sessionID, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	envelope, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	// A plain state written straight to the backend must not be trusted.
	if envelope.Sealed == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotSealed, sessionID)
	}

	sealed, err := base64.StdEncoding.DecodeString(envelope.Sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sealed state: %w", err)
	}
	plain, err := m.open(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt state: %w", err)
	}

	var state domain.SessionState
	if err := json.Unmarshal(plain, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted state: %w", err)
	}
	return &state, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// open tries the active key, then each fallback in order.
func (m *encryptionMiddleware) open(sealed []byte) ([]byte, error) {
	for _, key := range m.keys {
		if plain, err := unseal(key, sealed); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("no key opens the sealed state")
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal returns nonce || ciphertext.
func seal(key, plain []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func unseal(key, sealed []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	n := gcm.NonceSize()
	if len(sealed) < n {
		return nil, errors.New("sealed state too short")
	}
	return gcm.Open(nil, sealed[:n], sealed[n:], nil)
}
