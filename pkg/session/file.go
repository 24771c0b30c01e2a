package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists session state as a single JSON file on the terminal's
// disk. Writes go through a temp-file rename so a crash mid-write never
// leaves a truncated file behind.
type FileStore struct {
	mu   sync.Mutex
	path string
}

type fileState struct {
	Principal json.RawMessage `json:"user,omitempty"`
	Token     string          `json:"token,omitempty"`
	Muted     bool            `json:"notificationsMuted,omitempty"`
}

// NewFileStore returns a store backed by the JSON file at path. The file is
// created on first write; a missing or unreadable file behaves like an empty
// store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) LoadPrincipal() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.read()
	if len(st.Principal) == 0 {
		return nil, false
	}
	return append([]byte(nil), st.Principal...), true
}

func (s *FileStore) SavePrincipal(raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.read()
	st.Principal = append([]byte(nil), raw...)
	return s.write(st)
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.read()
	st.Principal = nil
	st.Token = ""
	return s.write(st)
}

func (s *FileStore) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.read()
	return st.Token, st.Token != ""
}

func (s *FileStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.read()
	st.Token = token
	return s.write(st)
}

func (s *FileStore) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().Muted
}

func (s *FileStore) SetMuted(muted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.read()
	st.Muted = muted
	return s.write(st)
}

// read never fails: missing or corrupt files yield an empty state, matching
// the resolver's "discard malformed cache silently" contract.
func (s *FileStore) read() fileState {
	var st fileState

	data, err := os.ReadFile(s.path)
	if err != nil {
		return st
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return fileState{}
	}
	return st
}

func (s *FileStore) write(st fileState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("session: marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("session: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("session: temp file: %w", err)
	}
	name := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("session: write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("session: close temp: %w", err)
	}

	if err := os.Rename(name, s.path); err != nil {
		os.Remove(name)
		return fmt.Errorf("session: rename: %w", err)
	}
	return nil
}
