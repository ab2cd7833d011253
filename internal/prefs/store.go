package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"pkt.systems/pslog"
)

const fileName = "prefs.json"

// Well-known preference keys.
const (
	KeyConsentManagement = "consent_management_preference"
	KeyDeviceID          = "device_id"
	KeyAccessToken       = "access_token"
	KeyUser              = "user"
)

type snapshot struct {
	Bools   map[string]bool   `json:"bools,omitempty"`
	Strings map[string]string `json:"strings,omitempty"`
}

// Store is a small key-value preference store. A Store created without a
// directory keeps everything in memory.
type Store struct {
	mu   sync.Mutex
	path string
	data snapshot
	log  pslog.Logger
}

// NewMemory returns a Store that never touches disk.
func NewMemory() *Store {
	return &Store{
		data: snapshot{Bools: map[string]bool{}, Strings: map[string]string{}},
		log:  pslog.Ctx(context.Background()),
	}
}

// Open loads (or creates) the preference file under dir. An empty dir yields
// an in-memory store.
func Open(dir string, logger pslog.Logger) (*Store, error) {
	s := NewMemory()
	if logger != nil {
		s.log = logger
	}
	if strings.TrimSpace(dir) == "" {
		return s, nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	s.path = filepath.Join(dir, fileName)
	s.log = s.log.With("prefs", s.path)
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Debug("prefs load miss")
			return s, nil
		}
		s.log.Warn("prefs load failed", "err", err)
		return nil, err
	}
	var loaded snapshot
	if err := json.Unmarshal(raw, &loaded); err != nil {
		s.log.Warn("prefs load failed", "err", err)
		return nil, err
	}
	for k, v := range loaded.Bools {
		s.data.Bools[k] = v
	}
	for k, v := range loaded.Strings {
		s.data.Strings[k] = v
	}
	s.log.Debug("prefs load ok", "keys", len(loaded.Bools)+len(loaded.Strings))
	return s, nil
}

// GetBool returns the stored value for key or def.
func (s *Store) GetBool(key string, def bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data.Bools[key]; ok {
		return v
	}
	return def
}

// SetBool stores value under key.
func (s *Store) SetBool(key string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Bools[key] = value
	return s.saveLocked()
}

// GetString returns the stored value for key or def.
func (s *Store) GetString(key, def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data.Strings[key]; ok {
		return v
	}
	return def
}

// SetString stores value under key. An empty value removes the key.
func (s *Store) SetString(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == "" {
		delete(s.data.Strings, key)
	} else {
		s.data.Strings[key] = value
	}
	return s.saveLocked()
}

// Keys lists every stored key in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data.Bools)+len(s.data.Strings))
	for k := range s.data.Bools {
		keys = append(keys, k)
	}
	for k := range s.data.Strings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DeviceID returns the install identifier, generating and storing one on first use.
func (s *Store) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id := s.data.Strings[KeyDeviceID]; id != "" {
		return id
	}
	id := uuid.NewString()
	s.data.Strings[KeyDeviceID] = id
	if err := s.saveLocked(); err != nil {
		s.log.Warn("prefs device id not persisted", "err", err)
	}
	return id
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		s.log.Warn("prefs save failed", "err", err)
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "prefs-*.json")
	if err != nil {
		s.log.Warn("prefs save failed", "err", err)
		return err
	}
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		s.log.Warn("prefs save failed", "err", err)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		s.log.Warn("prefs save failed", "err", err)
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		s.log.Warn("prefs save failed", "err", err)
		return err
	}
	s.log.Trace("prefs save ok")
	return nil
}

type storeKey struct{}

// WithContext stores prefs in the context.
func WithContext(ctx context.Context, store *Store) context.Context {
	if ctx == nil || store == nil {
		return ctx
	}
	return context.WithValue(ctx, storeKey{}, store)
}

// FromContext returns the prefs stored in the context, if any.
func FromContext(ctx context.Context) *Store {
	if ctx == nil {
		return nil
	}
	if store, ok := ctx.Value(storeKey{}).(*Store); ok {
		return store
	}
	return nil
}
