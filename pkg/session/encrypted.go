package session

import (
	"github.com/sofrapos/sofra/pkg/crypt"
)

// EncryptedStore wraps another Store and encrypts the principal snapshot and
// token at rest with AES-GCM. Terminal disks hold staff emails and branch
// assignments, so the file store is usually wrapped in one of these.
type EncryptedStore struct {
	inner Store
}

// NewEncryptedStore wraps inner. Keys derive from the APP_KEY config value.
func NewEncryptedStore(inner Store) *EncryptedStore {
	return &EncryptedStore{inner: inner}
}

func (s *EncryptedStore) LoadPrincipal() ([]byte, bool) {
	enc, ok := s.inner.LoadPrincipal()
	if !ok {
		return nil, false
	}
	plain, err := crypt.Decrypt(string(enc))
	if err != nil {
		// Undecryptable snapshots behave like missing ones.
		return nil, false
	}
	return []byte(plain), true
}

func (s *EncryptedStore) SavePrincipal(raw []byte) error {
	enc, err := crypt.Encrypt(string(raw))
	if err != nil {
		return err
	}
	return s.inner.SavePrincipal([]byte(enc))
}

func (s *EncryptedStore) Clear() error {
	return s.inner.Clear()
}

func (s *EncryptedStore) Token() (string, bool) {
	enc, ok := s.inner.Token()
	if !ok {
		return "", false
	}
	plain, err := crypt.Decrypt(enc)
	if err != nil {
		return "", false
	}
	return plain, true
}

func (s *EncryptedStore) SetToken(tok string) error {
	enc, err := crypt.Encrypt(tok)
	if err != nil {
		return err
	}
	return s.inner.SetToken(enc)
}

// Muted passes through: the mute flag is not sensitive.
func (s *EncryptedStore) Muted() bool { return s.inner.Muted() }

func (s *EncryptedStore) SetMuted(m bool) error { return s.inner.SetMuted(m) }
