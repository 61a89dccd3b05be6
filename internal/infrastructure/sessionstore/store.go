// Package sessionstore persists pairing credentials in an encrypted
// file. The store is a pure data holder: no network access, durable
// across process restarts.
package sessionstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jbctechsolutions/daybook/internal/application/ports"
	domainErrors "github.com/jbctechsolutions/daybook/internal/domain/errors"
	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/crypto"
)

// Compile-time check that FileStore implements SessionStorePort.
var _ ports.SessionStorePort = (*FileStore)(nil)

// FileStore stores the sync session as AES-GCM encrypted JSON.
type FileStore struct {
	path string
	enc  *crypto.Encryptor
	mu   sync.Mutex
}

// New creates a session store writing to the given path.
func New(path string, enc *crypto.Encryptor) *FileStore {
	return &FileStore{path: path, enc: enc}
}

// Load returns the stored session, or nil when no session exists.
func (s *FileStore) Load() (*dsync.SyncSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeStorage, "failed to read session file", err)
	}

	plaintext, err := s.enc.Decrypt(data)
	if err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeStorage, "failed to decrypt session", err)
	}

	var sess dsync.SyncSession
	if err := json.Unmarshal(plaintext, &sess); err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeStorage, "failed to parse session", err)
	}

	return &sess, nil
}

// Save durably persists the session. Paired sessions must carry a
// token and expiry.
func (s *FileStore) Save(sess *dsync.SyncSession) error {
	if sess == nil {
		return domainErrors.NewError(domainErrors.CodeValidation, "session is required", nil)
	}
	if sess.Paired && !sess.Valid() {
		return domainErrors.NewError(domainErrors.CodeValidation,
			"paired session requires a token and expiry", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	plaintext, err := json.Marshal(sess)
	if err != nil {
		return domainErrors.NewError(domainErrors.CodeStorage, "failed to marshal session", err)
	}

	ciphertext, err := s.enc.Encrypt(plaintext)
	if err != nil {
		return domainErrors.NewError(domainErrors.CodeStorage, "failed to encrypt session", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return domainErrors.NewError(domainErrors.CodeStorage, "failed to create session directory", err)
	}

	// Write-then-rename so a crash mid-write cannot corrupt the
	// stored credentials.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, ciphertext, 0600); err != nil {
		return domainErrors.NewError(domainErrors.CodeStorage, "failed to write session file", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return domainErrors.NewError(domainErrors.CodeStorage, "failed to replace session file", err)
	}

	return nil
}

// Clear removes the stored session. Clearing a store that holds no
// session is not an error.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return domainErrors.NewError(domainErrors.CodeStorage,
			fmt.Sprintf("failed to remove session file %s", s.path), err)
	}
	return nil
}
