package mappings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"coursebridge/internal/logger"
)

var (
	ErrEmptyKey   = errors.New("mappings: key must not be empty")
	ErrEmptyValue = errors.New("mappings: value must not be empty")
	ErrPersist  = errors.New("mappings: failed to persist store")
)

// Entry is one key/value pair of a store, as returned by List.
type Entry[V any] struct {
	Key   string `json:"key"`
	Value V      `json:"value"`
}

// Store is a named key/value association persisted as a whole image through
// a Backend. Reads reload the image so writes from other processes are seen.
//
// Writers inside one process are serialized; writers in different processes
// are not, and the last full-image write wins.
//
// Changes whose save failed stay pending and are replayed over every image
// loaded from the backend until a later save succeeds.
type Store[V any] struct {
	name    string
	backend Backend
	logger  *logger.Logger

	writeMu sync.Mutex

	mu      sync.RWMutex
	image   *Image
	pending []change
}

// change is one set (raw != nil) or remove (raw == nil) of a key.
type change struct {
	key string
	raw json.RawMessage
}

func (c change) apply(img *Image) bool {
	if c.raw == nil {
		return img.Delete(c.key)
	}
	img.Set(c.key, c.raw)
	return true
}

func NewStore[V any](name string, backend Backend, logger *logger.Logger) *Store[V] {
	return &Store[V]{
		name:    name,
		backend: backend,
		logger:  logger,
		image:   NewImage(),
	}
}

func (s *Store[V]) Name() string {
	return s.name
}

// Reload replaces the held image with the backend's current one, with any
// unsaved changes applied on top.
func (s *Store[V]) Reload(ctx context.Context) error {
	img, err := s.backend.Load(ctx, s.name)
	if err != nil {
		return fmt.Errorf("reload %s: %w", s.name, err)
	}

	s.mu.Lock()
	for _, c := range s.pending {
		c.apply(img)
	}
	s.image = img
	s.mu.Unlock()
	return nil
}

func (s *Store[V]) held() *Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.image
}

// fresh reloads and returns the image. On a backend failure the held image is
// returned together with the error.
func (s *Store[V]) fresh(ctx context.Context) (*Image, error) {
	if err := s.Reload(ctx); err != nil {
		return s.held(), err
	}
	return s.held(), nil
}

// Get returns the value for key. Absence and backend trouble both come back
// as a miss; the latter is logged.
func (s *Store[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V

	img, err := s.fresh(ctx)
	if err != nil {
		s.logger.Error("Mapping store %s: serving held image: %v", s.name, err)
	}

	raw, ok := img.Get(key)
	if !ok {
		return zero, false
	}

	var value V
	if err := json.Unmarshal(raw, &value); err != nil {
		s.logger.Error("Mapping store %s: undecodable value for %q: %v", s.name, key, err)
		return zero, false
	}
	return value, true
}

// List returns every entry in insertion order. On a backend failure the held
// entries are returned with the error so callers can decide whether stale
// data is acceptable.
func (s *Store[V]) List(ctx context.Context) ([]Entry[V], error) {
	img, loadErr := s.fresh(ctx)

	entries := make([]Entry[V], 0, img.Len())
	for _, key := range img.Keys() {
		raw, _ := img.Get(key)
		var value V
		if err := json.Unmarshal(raw, &value); err != nil {
			s.logger.Error("Mapping store %s: skipping undecodable value for %q: %v", s.name, key, err)
			continue
		}
		entries = append(entries, Entry[V]{Key: key, Value: value})
	}
	return entries, loadErr
}

// Snapshot returns the freshly loaded image, which marshals as an ordered
// JSON object.
func (s *Store[V]) Snapshot(ctx context.Context) (*Image, error) {
	return s.fresh(ctx)
}

// Set writes value under key and persists the full image. If persisting
// fails the mutation still applies in this process, is written with the next
// successful save, and ErrPersist is returned.
func (s *Store[V]) Set(ctx context.Context, key string, value V) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	if isEmptyValue(value) {
		return ErrEmptyValue
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s value for %q: %w", s.name, key, err)
	}

	return s.mutate(ctx, change{key: key, raw: raw})
}

// isEmptyValue reports blank strings and lists that hold nothing but blanks.
func isEmptyValue(value interface{}) bool {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		for _, item := range v {
			if strings.TrimSpace(item) != "" {
				return false
			}
		}
		return true
	}
	return false
}

// Remove deletes key. Removing a missing key is a successful no-op.
func (s *Store[V]) Remove(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}

	return s.mutate(ctx, change{key: key})
}

// mutate runs a read-modify-write cycle on a private copy of the image.
// Changes that leave the image as it was are not written.
func (s *Store[V]) mutate(ctx context.Context, c change) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	base, err := s.fresh(ctx)
	if err != nil {
		s.logger.Error("Mapping store %s: writing over held image: %v", s.name, err)
	}

	next := base.Clone()
	if !c.apply(next) {
		return nil
	}

	s.mu.Lock()
	s.pending = append(s.pending, c)
	s.image = next
	s.mu.Unlock()

	if err := s.backend.Save(ctx, s.name, next); err != nil {
		s.logger.Error("Mapping store %s: persist failed, change kept in memory until the next save: %v", s.name, err)
		return fmt.Errorf("%w %s: %v", ErrPersist, s.name, err)
	}

	// next already carries every pending change.
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
	return nil
}
