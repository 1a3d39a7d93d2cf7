// Package memstore is an in-memory entity store implementing the
// engine's load-by-identifier contract. It exists so lifted actions
// are executable without an external persistence layer; anything
// beyond identifier lookup belongs to a real store.
package memstore

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Store keeps one bucket of entities per Go type, keyed by string
// identifier. Entities are stored as pointers so instance methods with
// pointer receivers observe the stored value. Thread-safe.
type Store struct {
	mu      sync.RWMutex
	buckets map[reflect.Type]map[string]any
	loads   atomic.Int64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		buckets: make(map[reflect.Type]map[string]any),
	}
}

// Insert stores the entity under a fresh uuid identifier and returns
// it.
func (s *Store) Insert(entity any) string {
	id := uuid.NewString()
	s.Put(id, entity)
	return id
}

// Put stores the entity under the given identifier, replacing any
// previous value.
func (s *Store) Put(id string, entity any) {
	t := bucketType(entity)
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.buckets[t]
	if !ok {
		bucket = make(map[string]any)
		s.buckets[t] = bucket
	}
	bucket[id] = entity
}

// Delete removes the entity under the given identifier, if present.
func (s *Store) Delete(entity any, id string) {
	t := bucketType(entity)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets[t], id)
}

// Len reports the number of stored entities of the given type.
func (s *Store) Len(entity any) int {
	t := bucketType(entity)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets[t])
}

// LoadByIdentifier implements dualbind.Loader. A missing identifier
// yields (nil, nil); the lifter translates that into its not-found
// condition.
func (s *Store) LoadByIdentifier(ctx context.Context, class reflect.Type, id string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.loads.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	entity, ok := s.buckets[class][id]
	if !ok {
		return nil, nil
	}
	return entity, nil
}

// Loads reports how many load operations have been performed. Useful
// for asserting that denied invocations never reach the store.
func (s *Store) Loads() int64 {
	return s.loads.Load()
}

// bucketType normalizes an entity or entity pointer to its struct
// type.
func bucketType(entity any) reflect.Type {
	t := reflect.TypeOf(entity)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
