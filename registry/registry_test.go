/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/entitysync/datastore/testmodels"
	"github.com/suparena/entitysync/entity"
)

func TestRegistry(t *testing.T) {
	r := New()
	for _, def := range testmodels.Definitions() {
		require.NoError(t, r.Register(def))
	}

	assert.Equal(t, []string{"Comment", "Post", "User"}, r.Types())
	assert.Error(t, r.Register(testmodels.UserDefinition))
	assert.Error(t, r.Register(&entity.Definition{}))
	assert.NoError(t, r.CheckRelationships())

	def, err := r.Definition("Post")
	require.NoError(t, err)
	assert.Same(t, testmodels.PostDefinition, def)

	_, err = r.Definition("Tag")
	assert.Error(t, err)

	orphan := New()
	require.NoError(t, orphan.Register(testmodels.PostDefinition))
	assert.ErrorContains(t, orphan.CheckRelationships(), "Post.author")
}

func TestIndexMaps(t *testing.T) {
	r := New()
	idx := map[string]string{"PK": "USER#{id}", "SK": "USER#{id}"}
	r.RegisterIndexMap("User", idx)
	idx["PK"] = "changed"

	got, ok := r.IndexMap("User")
	require.True(t, ok)
	assert.Equal(t, "USER#{id}", got["PK"])

	_, ok = r.IndexMap("Post")
	assert.False(t, ok)
}

func TestDefaultRegistry(t *testing.T) {
	def := &entity.Definition{Type: "RegistryTestOnly"}
	RegisterDefinition(def)
	assert.Panics(t, func() { RegisterDefinition(def) })

	got, err := GetDefinition("RegistryTestOnly")
	require.NoError(t, err)
	assert.Same(t, def, got)

	RegisterIndexMap("RegistryTestOnly", map[string]string{"PK": "X#{id}"})
	m, ok := GetIndexMap("RegistryTestOnly")
	assert.True(t, ok)
	assert.Equal(t, "X#{id}", m["PK"])
}
