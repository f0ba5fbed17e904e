package iam

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
)

const masterKeySize = 32 // AES-256

// GenerateMasterKey returns 32 cryptographically random bytes suitable
// for use as an AES-256-GCM key.
func GenerateMasterKey() ([]byte, error) {
	key := make([]byte, masterKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate master key: %w", err)
	}
	return key, nil
}

// LoadMasterKey reads a master key from disk and validates it is exactly 32 bytes.
func LoadMasterKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read master key: %w", err)
	}
	if len(key) != masterKeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", masterKeySize, len(key))
	}
	return key, nil
}

// SaveMasterKey writes a master key to disk with 0600 permissions.
func SaveMasterKey(path string, key []byte) error {
	if len(key) != masterKeySize {
		return fmt.Errorf("master key must be %d bytes, got %d", masterKeySize, len(key))
	}
	if err := os.WriteFile(path, key, 0600); err != nil {
		return fmt.Errorf("write master key: %w", err)
	}
	return nil
}

// SecretCipher seals and opens access-key secrets with AES-256-GCM under
// the deployment master key. Secrets are stored as base64(nonce + ciphertext + tag).
type SecretCipher struct {
	gcm cipher.AEAD
}

func NewSecretCipher(masterKey []byte) (*SecretCipher, error) {
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &SecretCipher{gcm: gcm}, nil
}

func (c *SecretCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	// Seal appends ciphertext+tag to nonce
	sealed := c.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *SecretCipher) Decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}
	nonceSize := c.gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

// SaveBootstrapData writes bootstrap data as JSON to disk with 0600 permissions.
func SaveBootstrapData(path string, data *BootstrapData) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal bootstrap data: %w", err)
	}
	if err := os.WriteFile(path, b, 0600); err != nil {
		return fmt.Errorf("write bootstrap data: %w", err)
	}
	return nil
}

// LoadBootstrapData reads and parses a bootstrap JSON file from disk.
func LoadBootstrapData(path string) (*BootstrapData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bd BootstrapData
	if err := json.Unmarshal(data, &bd); err != nil {
		return nil, fmt.Errorf("parse bootstrap data: %w", err)
	}
	return &bd, nil
}
