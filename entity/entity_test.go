/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entity

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/entitysync/errors"
)

type testSource struct{}

func (testSource) Name() string      { return "blog" }
func (testSource) BackendID() string { return "http://blog.example" }

func userDefinition() *Definition {
	return &Definition{
		Type: "User",
		Fields: []Field{
			{Name: "id", Format: FormatInt},
			{Name: "name", Format: FormatString},
			{Name: "createdAt", Format: FormatDateTime},
		},
		Relationships: []Relationship{
			{Name: "posts", Target: "Post", Cardinality: OneToMany, FilterField: "userId"},
			{Name: "manager", Target: "User"},
		},
	}
}

func TestApplyOrdersFieldsAndSkipsRelationships(t *testing.T) {
	e := New(userDefinition(), testSource{})

	err := e.Apply(map[string]any{
		"zeta":      true,
		"name":      "Ada",
		"id":        float64(1),
		"createdAt": "2024-03-01T10:00:00Z",
		"posts":     []any{map[string]any{"id": float64(3)}},
		"alpha":     "x",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "createdAt", "alpha", "zeta"}, e.Fields())
	assert.Equal(t, IntKey(1), e.ID())

	created, _ := e.Get("createdAt")
	want := strfmt.DateTime(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, want.String(), created.(strfmt.DateTime).String())

	_, hasPosts := e.Get("posts")
	assert.False(t, hasPosts)

	key, ok := e.IdentityKey()
	require.True(t, ok)
	assert.Equal(t, IdentityKey{Backend: "http://blog.example", Type: "User", ID: IntKey(1)}, key)
}

func TestApplyRejectsBadFormat(t *testing.T) {
	e := New(userDefinition(), nil)

	err := e.Apply(map[string]any{"id": 1.5})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestEntityWithoutKeyHasNoIdentity(t *testing.T) {
	e := New(userDefinition(), nil)
	require.NoError(t, e.Apply(map[string]any{"name": "anon"}))

	_, ok := e.IdentityKey()
	assert.False(t, ok)
}

func TestKeyWithoutFormatComparesByValue(t *testing.T) {
	def := &Definition{Type: "Tag", Fields: []Field{{Name: "label", Format: FormatString}}}

	fromPayload := New(def, testSource{})
	require.NoError(t, fromPayload.Apply(map[string]any{"id": float64(7), "label": "go"}))
	fromCaller := New(def, testSource{})
	require.NoError(t, fromCaller.Set("id", "7"))

	a, _ := fromPayload.IdentityKey()
	b, _ := fromCaller.IdentityKey()
	assert.Equal(t, a, b)

	slug := &Definition{Type: "Page", Fields: []Field{{Name: "id", Format: FormatString}}}
	page := New(slug, nil)
	require.NoError(t, page.Set("id", "7"))
	assert.Equal(t, StringKey("7"), page.ID())
}

func TestDeferredRelationshipResolvesOnce(t *testing.T) {
	ctx := context.Background()
	user := New(userDefinition(), nil)
	post := New(&Definition{Type: "Post"}, nil)

	calls := 0
	err := user.Defer("posts", NewDeferredRelationship("Post", func(context.Context) ([]*Entity, error) {
		calls++
		return []*Entity{post}, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, Pending, user.State("posts"))

	first, err := user.Many(ctx, "posts")
	require.NoError(t, err)
	second, err := user.Many(ctx, "posts")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Same(t, post, first[0])
	assert.Same(t, first[0], second[0])
	assert.Equal(t, Resolved, user.State("posts"))

	_, _, d, _ := user.Peek("posts")
	assert.Nil(t, d)
}

func TestDeferredFailureIsRetriedOnNextAccess(t *testing.T) {
	ctx := context.Background()
	user := New(userDefinition(), nil)
	manager := New(userDefinition(), nil)

	fail := true
	require.NoError(t, user.Defer("manager", NewDeferredEntity("User", IntKey(9), func(context.Context) ([]*Entity, error) {
		if fail {
			return nil, errors.NewNotFoundError("READ", "User", "9")
		}
		return []*Entity{manager}, nil
	})))

	_, err := user.One(ctx, "manager")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, Pending, user.State("manager"))

	fail = false
	got, err := user.One(ctx, "manager")
	require.NoError(t, err)
	assert.Same(t, manager, got)
}

func TestCardinalityMismatch(t *testing.T) {
	ctx := context.Background()
	user := New(userDefinition(), nil)

	_, err := user.One(ctx, "posts")
	assert.True(t, errors.IsValidationError(err))

	err = user.Defer("manager", NewDeferredRelationship("User", nil))
	assert.True(t, errors.IsValidationError(err))

	err = user.Set("posts", 1)
	assert.True(t, errors.IsValidationError(err))

	_, err = user.Many(ctx, "comments")
	assert.True(t, errors.IsValidationError(err))
}

func TestUnsetRelationshipReturnsNil(t *testing.T) {
	user := New(userDefinition(), nil)

	posts, err := user.Many(context.Background(), "posts")
	require.NoError(t, err)
	assert.Nil(t, posts)

	require.NoError(t, user.SetMany("posts", nil))
	posts, err = user.Many(context.Background(), "posts")
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.NotNil(t, posts)
}

func TestReentrantResolutionFails(t *testing.T) {
	ctx := context.Background()
	user := New(userDefinition(), nil)

	require.NoError(t, user.Defer("manager", NewDeferredEntity("User", IntKey(2), func(ctx context.Context) ([]*Entity, error) {
		_, err := user.One(ctx, "manager")
		return nil, err
	})))

	_, err := user.One(ctx, "manager")
	require.Error(t, err)
	assert.False(t, stderrors.Is(err, errors.ErrNotFound))
}
