/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/entitysync/entity"
)

type source string

func (s source) Name() string      { return "test" }
func (s source) BackendID() string { return string(s) }

var userDef = &entity.Definition{
	Type: "User",
	Fields: []entity.Field{
		{Name: "id", Format: entity.FormatInt},
		{Name: "name"},
	},
	Relationships: []entity.Relationship{
		{Name: "posts", Target: "Post", Cardinality: entity.OneToMany},
	},
}

func TestMaterializeReusesInstance(t *testing.T) {
	s := NewStore()
	src := source("http://a")

	first, created, err := s.Materialize(userDef, src, map[string]any{"id": float64(1), "name": "Ada"})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := s.Materialize(userDef, src, map[string]any{"id": "1", "name": "Ada Lovelace"})
	require.NoError(t, err)
	assert.False(t, created)

	assert.Same(t, first, second)
	name, _ := first.Get("name")
	assert.Equal(t, "Ada Lovelace", name)
	assert.Equal(t, 1, s.Len())
}

func TestMaterializeKeepsRelationshipsOnUpdate(t *testing.T) {
	s := NewStore()
	src := source("http://a")

	user, _, err := s.Materialize(userDef, src, map[string]any{"id": float64(1)})
	require.NoError(t, err)
	require.NoError(t, user.SetMany("posts", []*entity.Entity{}))

	again, _, err := s.Materialize(userDef, src, map[string]any{"id": float64(1), "posts": []any{}})
	require.NoError(t, err)
	assert.Same(t, user, again)
	assert.Equal(t, entity.Resolved, again.State("posts"))
}

func TestMaterializeSeparatesBackends(t *testing.T) {
	s := NewStore()

	a, _, err := s.Materialize(userDef, source("http://a"), map[string]any{"id": float64(1)})
	require.NoError(t, err)
	b, _, err := s.Materialize(userDef, source("http://b"), map[string]any{"id": float64(1)})
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, s.Len())
}

func TestMaterializeTransient(t *testing.T) {
	s := NewStore()

	a, created, err := s.Materialize(userDef, source("http://a"), map[string]any{"name": "anon"})
	require.NoError(t, err)
	assert.True(t, created)
	b, _, err := s.Materialize(userDef, source("http://a"), map[string]any{"name": "anon"})
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 0, s.Len())
}

func TestEvictAndLookup(t *testing.T) {
	s := NewStore()
	src := source("http://a")

	user, _, err := s.Materialize(userDef, src, map[string]any{"id": float64(4)})
	require.NoError(t, err)

	key, _ := user.IdentityKey()
	found, ok := s.Lookup(key)
	require.True(t, ok)
	assert.Same(t, user, found)

	assert.True(t, s.Evict(key))
	assert.False(t, s.Evict(key))

	_, ok = s.Lookup(key)
	assert.False(t, ok)

	fresh, created, err := s.Materialize(userDef, src, map[string]any{"id": float64(4)})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotSame(t, user, fresh)
}

func TestRegister(t *testing.T) {
	s := NewStore()
	src := source("http://a")

	e := entity.New(userDef, src)
	require.NoError(t, e.Set("id", 8))
	assert.Same(t, e, s.Register(e))

	other := entity.New(userDef, src)
	require.NoError(t, other.Set("id", 8))
	assert.Same(t, e, s.Register(other))
}
