// Package vault stores skill and channel credentials encrypted at rest under
// a key held in the OS keychain. The cipher is a simple XOR stream: it keeps
// plaintext out of the database and config files, not out of reach of a
// determined attacker with local code execution, which is the stated
// deployment model (single-user, local-first agent).
package vault

import (
	"encoding/base64"
	"errors"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "paw-skill-vault"
	keyringUser    = "encryption-key"
	keyLength      = 32
)

// ErrNoKey is returned when the vault key cannot be loaded or generated.
var ErrNoKey = errors.New("vault: unable to establish encryption key")

// Vault encrypts and decrypts credential values with a key memoized from the
// OS keychain. Safe for concurrent use.
type Vault struct {
	mu  sync.Mutex
	key []byte
}

// New returns a Vault. The key is not loaded until first use.
func New() *Vault {
	return &Vault{}
}

// Encrypt XOR-streams plaintext against the vault key and returns a
// base64-encoded ciphertext suitable for storage as a string column.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	key, err := v.loadKey()
	if err != nil {
		return "", err
	}
	data := []byte(plaintext)
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. XOR is self-inverse so this is the same
// transform applied to the decoded ciphertext.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	key, err := v.loadKey()
	if err != nil {
		return "", err
	}
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return string(out), nil
}

// loadKey returns the memoized key, fetching (and lazily generating) it from
// the OS keychain on first call.
func (v *Vault) loadKey() ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.key != nil {
		return v.key, nil
	}

	encoded, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			return nil, errors.Join(ErrNoKey, err)
		}
		key, genErr := generateKey()
		if genErr != nil {
			return nil, errors.Join(ErrNoKey, genErr)
		}
		encoded = base64.StdEncoding.EncodeToString(key)
		if setErr := keyring.Set(keyringService, keyringUser, encoded); setErr != nil {
			return nil, errors.Join(ErrNoKey, setErr)
		}
		v.key = key
		return v.key, nil
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(key) != keyLength {
		return nil, ErrNoKey
	}
	v.key = key
	return v.key, nil
}
