// Package filekv stores credentials in a single JSON file. When a secret is
// configured every value is sealed with XChaCha20-Poly1305 under a key
// derived from the secret, with the storage key as additional data.
package filekv

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const keyInfo = "session-client/filekv/v1"

// ErrCorrupt is returned by Get when the file exists but is not a JSON object.
var ErrCorrupt = errors.New("filekv: corrupt credentials file")

var _ credentials.KV = (*KV)(nil)

type KV struct {
	path   string
	aead   cipher.AEAD
	logger zerolog.Logger
	mu     sync.Mutex
}

type Option func(*KV)

func WithLogger(l zerolog.Logger) Option {
	return func(kv *KV) {
		kv.logger = l
	}
}

// New returns a file KV at path. An empty secret stores values in clear text.
func New(path, secret string, options ...Option) (*KV, error) {
	kv := &KV{path: path, logger: log.Logger}
	for _, opt := range options {
		opt(kv)
	}
	if secret == "" {
		return kv, nil
	}

	key, err := deriveKey([]byte(secret))
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("filekv.New chacha20poly1305: %w", err)
	}
	kv.aead = aead
	return kv, nil
}

func deriveKey(secret []byte) ([]byte, error) {
	h := hkdf.New(sha256.New, secret, nil, []byte(keyInfo))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("filekv deriveKey: %w", err)
	}
	return key, nil
}

func (kv *KV) Get(_ context.Context, key string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	values, err := kv.load()
	if err != nil {
		return "", false, err
	}
	raw, ok := values[key]
	if !ok {
		return "", false, nil
	}
	v, err := kv.open(key, raw)
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (kv *KV) Set(_ context.Context, key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	values, _, err := kv.loadForWrite()
	if err != nil {
		return err
	}
	sealed, err := kv.seal(key, value)
	if err != nil {
		return err
	}
	values[key] = sealed
	return kv.save(values)
}

func (kv *KV) Remove(_ context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	values, recovered, err := kv.loadForWrite()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok && !recovered {
		return nil
	}
	delete(values, key)
	return kv.save(values)
}

func (kv *KV) load() (map[string]string, error) {
	data, err := os.ReadFile(kv.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("filekv read %s: %w", kv.path, err)
	}

	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, kv.path, err)
	}
	return values, nil
}

// loadForWrite is load for Set and Remove. A corrupt file yields an empty
// map and recovered=true so the caller overwrites it instead of failing.
func (kv *KV) loadForWrite() (values map[string]string, recovered bool, err error) {
	values, err = kv.load()
	if errors.Is(err, ErrCorrupt) {
		kv.logger.Warn().Err(err).Msg("discarding corrupt credentials file")
		return make(map[string]string), true, nil
	}
	return values, false, err
}

// save writes through a temp file and rename so readers never see a torn file.
func (kv *KV) save(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("filekv encode: %w", err)
	}

	dir := filepath.Dir(kv.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("filekv mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("filekv temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("filekv write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("filekv chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filekv close: %w", err)
	}
	if err := os.Rename(tmp.Name(), kv.path); err != nil {
		return fmt.Errorf("filekv rename: %w", err)
	}
	return nil
}

func (kv *KV) seal(key, value string) (string, error) {
	if kv.aead == nil {
		return value, nil
	}
	nonce := make([]byte, kv.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("filekv nonce: %w", err)
	}
	out := kv.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return base64.RawStdEncoding.EncodeToString(out), nil
}

func (kv *KV) open(key, raw string) (string, error) {
	if kv.aead == nil {
		return raw, nil
	}
	data, err := base64.RawStdEncoding.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("filekv decode %s: %w", key, err)
	}
	n := kv.aead.NonceSize()
	if len(data) < n {
		return "", fmt.Errorf("filekv open %s: ciphertext too short", key)
	}
	plain, err := kv.aead.Open(nil, data[:n], data[n:], []byte(key))
	if err != nil {
		return "", fmt.Errorf("filekv open %s: %w", key, err)
	}
	return string(plain), nil
}
