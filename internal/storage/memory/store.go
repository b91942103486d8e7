package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/qaforge/backend/internal/storage"
)

const defaultPageSize = 1000

// Store is an in-process object store. It backs local development runs and
// tests; keys list in lexicographic order like a real bucket.
type Store struct {
	mu       sync.RWMutex
	objects  map[string][]byte
	pageSize int
}

func NewStore() *Store {
	return &Store{
		objects:  make(map[string][]byte),
		pageSize: defaultPageSize,
	}
}

// SetPageSize lowers the listing page size so pagination paths are reachable
// in tests.
func (s *Store) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.pageSize = n
	}
}

func (s *Store) Put(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal object %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

// PutRaw stores bytes verbatim, bypassing JSON encoding. Tests use it to
// seed undecodable objects.
func (s *Store) PutRaw(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
}

func (s *Store) Get(_ context.Context, key string, out interface{}) error {
	s.mu.RLock()
	data, ok := s.objects[key]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", storage.ErrDecode, key, err)
	}

	return nil
}

func (s *Store) ListPage(_ context.Context, prefix, continuationToken string) ([]string, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	offset := 0
	if continuationToken != "" {
		parsed, err := strconv.Atoi(continuationToken)
		if err != nil || parsed < 0 {
			return nil, "", fmt.Errorf("invalid continuation token %q", continuationToken)
		}
		offset = parsed
	}

	if offset >= len(keys) {
		return nil, "", nil
	}

	end := offset + s.pageSize
	nextToken := ""
	if end < len(keys) {
		nextToken = strconv.Itoa(end)
	} else {
		end = len(keys)
	}

	return keys[offset:end], nextToken, nil
}

// Len reports the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
