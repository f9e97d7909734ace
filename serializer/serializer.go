/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package serializer flattens entity graphs into ordered plain data.
//
// The walk is depth-first. An entity met again on the path from the root (a
// cycle) is written as a reference stub {type, id, reason} instead of being
// descended into, so any graph serializes in finite time. Entities reached twice
// through different branches are written in full both times.
package serializer

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/stoewer/go-strcase"
	"github.com/suparena/entitysync/entity"
)

// CircularReference is the reason written into reference stubs
const CircularReference = "circular reference"

// TypeKey holds the entity type when Rules.IncludeType is set
const TypeKey = "_type"

// Case selects how output keys are spelled
type Case uint8

const (
	Preserve Case = iota
	Snake
	Camel
	Kebab
)

// ParseCase parses preserve, snake, camel or kebab
func ParseCase(s string) (Case, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "preserve":
		return Preserve, nil
	case "snake":
		return Snake, nil
	case "camel":
		return Camel, nil
	case "kebab":
		return Kebab, nil
	}
	return Preserve, fmt.Errorf("unknown case %q", s)
}

// DeferredMode selects what happens to relationships that are not loaded yet
type DeferredMode uint8

const (
	// DeferredNull writes unloaded relationships as null.
	DeferredNull DeferredMode = iota
	// DeferredResolve loads them during the walk.
	DeferredResolve
)

// Rules control the output
type Rules struct {
	// Include keeps only the named fields and relationships. A name is either
	// "field" or "Type.field".
	Include []string
	// Exclude drops the named fields and relationships.
	Exclude     []string
	Case        Case
	Sort        bool
	Deferred    DeferredMode
	IncludeType bool
}

type walker struct {
	rules   Rules
	visited map[any]bool
}

// Serialize writes e and everything reachable from it
func Serialize(ctx context.Context, e *entity.Entity, rules Rules) (*Map, error) {
	w := &walker{rules: rules, visited: make(map[any]bool)}
	return w.entity(ctx, e)
}

// SerializeAll serializes each entity in its own walk
func SerializeAll(ctx context.Context, entities []*entity.Entity, rules Rules) ([]*Map, error) {
	out := make([]*Map, 0, len(entities))
	for _, e := range entities {
		m, err := Serialize(ctx, e, rules)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func visitKey(e *entity.Entity) any {
	if k, ok := e.IdentityKey(); ok {
		return k
	}
	return e
}

func stub(e *entity.Entity) *Map {
	m := NewMap()
	m.Set("type", e.Type())
	m.Set("id", e.ID().Value())
	m.Set("reason", CircularReference)
	return m
}

func (w *walker) entity(ctx context.Context, e *entity.Entity) (*Map, error) {
	if e == nil {
		return nil, nil
	}

	key := visitKey(e)
	if w.visited[key] {
		return stub(e), nil
	}
	w.visited[key] = true
	defer delete(w.visited, key)

	m := NewMap()
	if w.rules.IncludeType {
		m.Set(TypeKey, e.Type())
	}

	for _, name := range e.Fields() {
		if !w.keep(e.Type(), name) {
			continue
		}
		v, _ := e.Get(name)
		m.Set(w.key(name), v)
	}

	for _, rel := range e.Definition().Relationships {
		if !w.keep(e.Type(), rel.Name) {
			continue
		}
		v, err := w.relationship(ctx, e, rel)
		if err != nil {
			return nil, err
		}
		m.Set(w.key(rel.Name), v)
	}

	if w.rules.Sort {
		m.SortKeys()
	}
	return m, nil
}

func (w *walker) relationship(ctx context.Context, e *entity.Entity, rel entity.Relationship) (any, error) {
	one, many, _, state := e.Peek(rel.Name)

	switch state {
	case entity.Unset:
		return nil, nil
	case entity.Pending:
		if w.rules.Deferred != DeferredResolve {
			return nil, nil
		}
		var err error
		if rel.Cardinality == entity.OneToMany {
			many, err = e.Many(ctx, rel.Name)
		} else {
			one, err = e.One(ctx, rel.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("serializing %s.%s: %w", e.Type(), rel.Name, err)
		}
	}

	if rel.Cardinality == entity.OneToOne {
		if one == nil {
			return nil, nil
		}
		return w.entity(ctx, one)
	}

	items := make([]any, 0, len(many))
	for _, related := range many {
		m, err := w.entity(ctx, related)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, nil
}

func (w *walker) keep(entityType, name string) bool {
	qualified := entityType + "." + name
	if len(w.rules.Include) > 0 && !slices.Contains(w.rules.Include, name) && !slices.Contains(w.rules.Include, qualified) {
		return false
	}
	return !slices.Contains(w.rules.Exclude, name) && !slices.Contains(w.rules.Exclude, qualified)
}

func (w *walker) key(name string) string {
	switch w.rules.Case {
	case Snake:
		return strcase.SnakeCase(name)
	case Camel:
		return strcase.LowerCamelCase(name)
	case Kebab:
		return strcase.KebabCase(name)
	}
	return name
}
