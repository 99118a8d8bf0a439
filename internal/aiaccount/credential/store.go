package credential

import (
	"errors"
	"strings"

	"github.com/railzwaylabs/modelrail/internal/aiaccount/domain"
	"github.com/railzwaylabs/modelrail/internal/security/vault"
)

var ErrEmptyCredential = errors.New("empty_credential")

type Store struct {
	vault vault.Provider
}

func NewStore(v vault.Provider) domain.CredentialStore {
	return &Store{vault: v}
}

func (s *Store) Seal(plaintext string) ([]byte, error) {
	plaintext = strings.TrimSpace(plaintext)
	if plaintext == "" {
		return nil, ErrEmptyCredential
	}
	return s.vault.Encrypt([]byte(plaintext))
}

// Decrypt opens a sealed credential. Failures are not retried by callers.
func (s *Store) Decrypt(blob []byte) (string, error) {
	if len(blob) == 0 {
		return "", ErrEmptyCredential
	}
	plaintext, err := s.vault.Decrypt(blob)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
