/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package identity provides the session-scoped identity map for materialized entities.
package identity

import (
	"github.com/suparena/entitysync/entity"
)

// Store maps identity keys to the single entity instance registered for them.
// It holds strong references for its whole lifetime and is not safe for
// concurrent mutation; one Store belongs to one session.
type Store struct {
	entities map[entity.IdentityKey]*entity.Entity
}

// NewStore creates an empty identity store
func NewStore() *Store {
	return &Store{
		entities: make(map[entity.IdentityKey]*entity.Entity),
	}
}

// Materialize turns a raw payload into an entity. When the payload's identity key is
// already registered, the registered instance is updated in place from the scalar
// fields and returned with created=false. Payloads without a valid key produce a
// transient entity that is never registered.
func (s *Store) Materialize(def *entity.Definition, source entity.Source, raw map[string]any) (*entity.Entity, bool, error) {
	// the key is read after coercion so that "1" and 1 name the same record
	e := entity.New(def, source)
	if err := e.Apply(raw); err != nil {
		return nil, false, err
	}

	k, ok := e.IdentityKey()
	if !ok {
		return e, true, nil
	}

	if existing, found := s.entities[k]; found {
		if err := existing.Apply(raw); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	s.entities[k] = e
	return e, true, nil
}

// Register adds an entity built outside Materialize. An entity already registered
// under the same key wins and is returned instead.
func (s *Store) Register(e *entity.Entity) *entity.Entity {
	k, ok := e.IdentityKey()
	if !ok {
		return e
	}
	if existing, ok := s.entities[k]; ok {
		return existing
	}
	s.entities[k] = e
	return e
}

// Lookup returns the entity registered under key
func (s *Store) Lookup(key entity.IdentityKey) (*entity.Entity, bool) {
	e, ok := s.entities[key]
	return e, ok
}

// Evict removes the entry for key and reports whether one existed
func (s *Store) Evict(key entity.IdentityKey) bool {
	if _, ok := s.entities[key]; !ok {
		return false
	}
	delete(s.entities, key)
	return true
}

// Len returns the number of registered entities
func (s *Store) Len() int {
	return len(s.entities)
}
