package vault

import "crypto/rand"

// generateKey produces a fresh random 32-byte key.
func generateKey() ([]byte, error) {
	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}
