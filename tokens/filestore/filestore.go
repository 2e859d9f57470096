// Package filestore persists the session tokens in a single JSON file so a
// session survives process restarts. With a passphrase the file is sealed with
// scrypt + NaCl secretbox.
package filestore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-session-client/tokens"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	saltLength  = 16
	nonceLength = 24
	keyLength   = 32

	// scrypt parameters recommended for interactive logins
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var (
	ErrDecrypt = errors.New("failed to decrypt token file")
)

// sealedFile is the on-disk envelope when a passphrase is configured.
type sealedFile struct {
	Salt  []byte `json:"salt"`
	Nonce []byte `json:"nonce"`
	Box   []byte `json:"box"`
}

type Option func(*Store)

// WithPassphrase seals the file contents. An empty passphrase stores plain JSON.
func WithPassphrase(passphrase string) Option {
	return func(s *Store) {
		s.passphrase = []byte(passphrase)
	}
}

// Store is a tokens.Store backed by a file. The file is re-read on every call
// so other processes sharing the file are observed.
type Store struct {
	path       string
	passphrase []byte

	mu   sync.Mutex
	salt []byte
	key  *[keyLength]byte
}

var _ tokens.Store = (*Store)(nil)

func New(path string, opts ...Option) *Store {
	s := &Store{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Access(ctx context.Context) (string, error) {
	pair, err := s.read()
	if err != nil {
		return "", err
	}
	return pair.Access, nil
}

func (s *Store) Refresh(ctx context.Context) (string, error) {
	pair, err := s.read()
	if err != nil {
		return "", err
	}
	return pair.Refresh, nil
}

func (s *Store) Set(ctx context.Context, pair tokens.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("[filestore Set] failed to encode tokens: %w", err)
	}

	if len(s.passphrase) > 0 {
		if data, err = s.seal(data); err != nil {
			return fmt.Errorf("[filestore Set] failed to seal tokens: %w", err)
		}
	}

	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("[filestore Set] %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("[filestore Clear] failed to remove %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) read() (tokens.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return tokens.Pair{}, nil
	}
	if err != nil {
		return tokens.Pair{}, fmt.Errorf("[filestore read] failed to read %s: %w", s.path, err)
	}

	if len(s.passphrase) > 0 {
		if data, err = s.open(data); err != nil {
			return tokens.Pair{}, fmt.Errorf("%w: %w", tokens.ErrUnreadable, err)
		}
	}

	var pair tokens.Pair
	if err := json.Unmarshal(data, &pair); err != nil {
		return tokens.Pair{}, fmt.Errorf("[filestore read] %w: failed to decode %s: %w", tokens.ErrUnreadable, s.path, err)
	}
	return pair, nil
}

func (s *Store) seal(plain []byte) ([]byte, error) {
	if s.key == nil {
		salt := make([]byte, saltLength)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
		if err := s.deriveKey(salt); err != nil {
			return nil, err
		}
	}

	var nonce [nonceLength]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return json.Marshal(sealedFile{
		Salt:  s.salt,
		Nonce: nonce[:],
		Box:   secretbox.Seal(nil, plain, &nonce, s.key),
	})
}

func (s *Store) open(data []byte) ([]byte, error) {
	var envelope sealedFile
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("[filestore open] %w: %v", ErrDecrypt, err)
	}
	if len(envelope.Salt) != saltLength || len(envelope.Nonce) != nonceLength {
		return nil, fmt.Errorf("[filestore open] %w: bad envelope", ErrDecrypt)
	}

	if s.key == nil || string(s.salt) != string(envelope.Salt) {
		if err := s.deriveKey(envelope.Salt); err != nil {
			return nil, err
		}
	}

	var nonce [nonceLength]byte
	copy(nonce[:], envelope.Nonce)
	plain, ok := secretbox.Open(nil, envelope.Box, &nonce, s.key)
	if !ok {
		return nil, fmt.Errorf("[filestore open] %w", ErrDecrypt)
	}
	return plain, nil
}

func (s *Store) deriveKey(salt []byte) error {
	derived, err := scrypt.Key(s.passphrase, salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return fmt.Errorf("failed to derive key: %w", err)
	}
	var key [keyLength]byte
	copy(key[:], derived)
	s.key = &key
	s.salt = append([]byte(nil), salt...)
	return nil
}

// writeAtomic replaces path via a temp file + rename so readers never see a partial pair.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
