/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitysync

import (
	"context"

	"github.com/suparena/entitysync/entity"
	"github.com/suparena/entitysync/errors"
)

// Typed exposes the operations of one entity type as application type T.
// wrap turns a materialized entity into a T, typically a struct embedding it.
type Typed[T any] struct {
	provider   *Provider
	entityType string
	wrap       func(*entity.Entity) T
}

// NewTyped creates a Typed facade for entityType on p
func NewTyped[T any](p *Provider, entityType string, wrap func(*entity.Entity) T) (*Typed[T], error) {
	if _, ok := p.binding(entityType); !ok {
		return nil, errors.NewValidationError("entityType", entityType+" is not bound to provider "+p.Name())
	}
	return &Typed[T]{provider: p, entityType: entityType, wrap: wrap}, nil
}

// TypedFor looks up the provider of entityType in ps and wraps it
func TypedFor[T any](ps *Providers, entityType string, wrap func(*entity.Entity) T) (*Typed[T], error) {
	p, err := ps.For(entityType)
	if err != nil {
		return nil, err
	}
	return NewTyped(p, entityType, wrap)
}

// Provider returns the underlying provider
func (t *Typed[T]) Provider() *Provider {
	return t.provider
}

// Get reads one entity by key
func (t *Typed[T]) Get(ctx context.Context, sc *Context, key any) (T, error) {
	e, err := t.provider.Get(ctx, sc, t.entityType, key)
	if err != nil {
		var zero T
		return zero, err
	}
	return t.wrap(e), nil
}

// List reads every entity matching the context's filters
func (t *Typed[T]) List(ctx context.Context, sc *Context) ([]T, error) {
	result, err := t.provider.List(ctx, sc, t.entityType)
	if err != nil {
		return nil, err
	}
	return WrapAll(result, t.wrap), nil
}

// Each calls fn for every entity matching the context's filters
func (t *Typed[T]) Each(ctx context.Context, sc *Context, fn func(T) error) error {
	return t.provider.Each(ctx, sc, t.entityType, func(e *entity.Entity) error {
		return fn(t.wrap(e))
	})
}

// Create stores a new entity
func (t *Typed[T]) Create(ctx context.Context, sc *Context, data map[string]any) (T, error) {
	e, err := t.provider.Create(ctx, sc, t.entityType, data)
	if err != nil || e == nil {
		var zero T
		return zero, err
	}
	return t.wrap(e), nil
}

// Update changes the fields in data of the entity with key
func (t *Typed[T]) Update(ctx context.Context, sc *Context, key any, data map[string]any) (T, error) {
	e, err := t.provider.Update(ctx, sc, t.entityType, key, data)
	if err != nil || e == nil {
		var zero T
		return zero, err
	}
	return t.wrap(e), nil
}

// Delete removes the entity with key
func (t *Typed[T]) Delete(ctx context.Context, sc *Context, key any) error {
	return t.provider.Delete(ctx, sc, t.entityType, key)
}

// WrapAll converts a slice of entities with wrap
func WrapAll[T any](entities []*entity.Entity, wrap func(*entity.Entity) T) []T {
	out := make([]T, 0, len(entities))
	for _, e := range entities {
		out = append(out, wrap(e))
	}
	return out
}
