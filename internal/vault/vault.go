// Package vault stores API keys and credentials encrypted at rest.
// Lookups are environment-first: an exported variable always wins over the
// vault file, so deployments can avoid writing secrets to disk entirely.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound indicates the requested secret is in neither the environment
// nor the vault file.
var ErrNotFound = errors.New("secret not found")

// Vault is an AES-GCM encrypted JSON secret store backed by a single file.
// The encryption key lives next to the vault with 0600 permissions.
type Vault struct {
	mu      sync.Mutex
	path    string
	gcm     cipher.AEAD
	secrets map[string]string
}

// Open loads the vault at path, creating the key file on first use.
func Open(path string) (*Vault, error) {
	key, err := loadOrCreateKey(filepath.Join(filepath.Dir(path), ".vault_key"))
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}

	v := &Vault{path: path, gcm: gcm, secrets: make(map[string]string)}
	if err := v.load(); err != nil {
		return nil, err
	}
	return v, nil
}

func loadOrCreateKey(keyPath string) ([]byte, error) {
	if key, err := os.ReadFile(keyPath); err == nil {
		if len(key) != 32 {
			return nil, fmt.Errorf("vault key at %s has wrong length %d", keyPath, len(key))
		}
		return key, nil
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate vault key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(keyPath), 0755); err != nil {
		return nil, fmt.Errorf("create vault directory: %w", err)
	}
	if err := os.WriteFile(keyPath, key, 0600); err != nil {
		return nil, fmt.Errorf("write vault key: %w", err)
	}
	return key, nil
}

func (v *Vault) load() error {
	sealed, err := os.ReadFile(v.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read vault: %w", err)
	}

	nonceSize := v.gcm.NonceSize()
	if len(sealed) < nonceSize {
		return fmt.Errorf("vault file %s is corrupt", v.path)
	}
	plain, err := v.gcm.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return fmt.Errorf("decrypt vault: %w", err)
	}
	if err := json.Unmarshal(plain, &v.secrets); err != nil {
		return fmt.Errorf("parse vault: %w", err)
	}
	return nil
}

func (v *Vault) save() error {
	plain, err := json.Marshal(v.secrets)
	if err != nil {
		return fmt.Errorf("encode vault: %w", err)
	}

	nonce := make([]byte, v.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	sealed := v.gcm.Seal(nonce, nonce, plain, nil)

	if err := os.MkdirAll(filepath.Dir(v.path), 0755); err != nil {
		return fmt.Errorf("create vault directory: %w", err)
	}
	if err := os.WriteFile(v.path, sealed, 0600); err != nil {
		return fmt.Errorf("write vault: %w", err)
	}
	return nil
}

// Set stores a secret and persists the vault.
func (v *Vault) Set(key, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.secrets[key] = value
	return v.save()
}

// Get retrieves a secret. The environment variable named after the upper-cased
// key (dots replaced with underscores) takes precedence over the vault file.
func (v *Vault) Get(key string) (string, error) {
	envName := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	if value := os.Getenv(envName); value != "" {
		return value, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if value, ok := v.secrets[key]; ok {
		return value, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Delete removes a secret and persists the vault.
func (v *Vault) Delete(key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.secrets[key]; !ok {
		return nil
	}
	delete(v.secrets, key)
	return v.save()
}

// Keys lists the stored secret names, never their values.
func (v *Vault) Keys() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	var keys []string
	for k := range v.secrets {
		keys = append(keys, k)
	}
	return keys
}

// Secrets is the lookup interface consumed by tools needing credentials.
type Secrets interface {
	Get(key string) (string, error)
}

var _ Secrets = (*Vault)(nil)
