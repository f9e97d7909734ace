/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entity

import (
	"context"
	"fmt"
	"sort"

	"github.com/suparena/entitysync/errors"
)

// Source is the provider that materialized an entity
type Source interface {
	Name() string
	BackendID() string
}

// State of a relationship slot
type State uint8

const (
	Unset State = iota
	Resolved
	Pending
)

func (s State) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Pending:
		return "deferred"
	}
	return "unset"
}

type slot struct {
	state    State
	one      *Entity
	many     []*Entity
	deferred *Deferred
}

// Entity is one materialized record. Scalar fields keep insertion order.
type Entity struct {
	def     *Definition
	id      Key
	source  Source
	backend string
	fields  map[string]any
	order   []string
	slots   map[string]*slot
}

// New creates an empty entity of the given definition
func New(def *Definition, source Source) *Entity {
	e := &Entity{
		def:    def,
		source: source,
		fields: make(map[string]any, len(def.Fields)),
		slots:  make(map[string]*slot, len(def.Relationships)),
	}
	if source != nil {
		e.backend = source.BackendID()
	}
	for _, r := range def.Relationships {
		e.slots[r.Name] = &slot{}
	}
	return e
}

// Type returns the entity type name
func (e *Entity) Type() string {
	return e.def.Type
}

// ID returns the primary key, which may be NoKey
func (e *Entity) ID() Key {
	return e.id
}

// Definition returns the static shape of the entity
func (e *Entity) Definition() *Definition {
	return e.def
}

// Source returns the provider that materialized the entity
func (e *Entity) Source() Source {
	return e.source
}

// IdentityKey returns the identity key and whether the entity has a valid primary key
func (e *Entity) IdentityKey() (IdentityKey, bool) {
	if !e.id.Valid() {
		return IdentityKey{}, false
	}
	return IdentityKey{Backend: e.backend, Type: e.def.Type, ID: e.id}, true
}

// Get returns a scalar field value
func (e *Entity) Get(name string) (any, bool) {
	v, ok := e.fields[name]
	return v, ok
}

// Set assigns a scalar field. Setting the key field changes the entity's ID.
func (e *Entity) Set(name string, value any) error {
	if _, ok := e.slots[name]; ok {
		return errors.NewValidationError(name, fmt.Sprintf("%s: %s is a relationship", e.def.Type, name))
	}

	if f, ok := e.def.Field(name); ok {
		v, err := coerce(f, value)
		if err != nil {
			return err
		}
		value = v
	}

	if _, exists := e.fields[name]; !exists {
		e.order = append(e.order, name)
	}
	e.fields[name] = value

	// keys of fields without a format compare by value: "1" and 1 are one record
	if name == e.def.Key() {
		e.id = KeyOf(value)
		if f, declared := e.def.Field(name); !declared || f.Format == FormatAny {
			e.id = e.id.Canonical()
		}
	}
	return nil
}

// Fields returns scalar field names in insertion order
func (e *Entity) Fields() []string {
	names := make([]string, len(e.order))
	copy(names, e.order)
	return names
}

// Values returns a copy of all scalar fields
func (e *Entity) Values() map[string]any {
	values := make(map[string]any, len(e.fields))
	for k, v := range e.fields {
		values[k] = v
	}
	return values
}

// Apply updates scalar fields from a decoded payload. Declared fields are applied in
// declaration order, undeclared ones after them in name order. Relationship fields
// are skipped; they belong to the hydration engine.
func (e *Entity) Apply(raw map[string]any) error {
	done := make(map[string]bool, len(raw))

	for _, f := range e.def.Fields {
		v, ok := raw[f.Name]
		if !ok {
			continue
		}
		if err := e.Set(f.Name, v); err != nil {
			return fmt.Errorf("%s: %w", e.def.Type, err)
		}
		done[f.Name] = true
	}

	rest := make([]string, 0, len(raw))
	for name := range raw {
		if done[name] {
			continue
		}
		if _, isRel := e.slots[name]; isRel {
			continue
		}
		rest = append(rest, name)
	}
	sort.Strings(rest)

	for _, name := range rest {
		if err := e.Set(name, raw[name]); err != nil {
			return fmt.Errorf("%s: %w", e.def.Type, err)
		}
	}
	return nil
}

func (e *Entity) slot(name string) (*slot, Relationship, error) {
	r, ok := e.def.Relationship(name)
	if !ok {
		return nil, r, errors.NewValidationError(name, fmt.Sprintf("%s has no relationship %q", e.def.Type, name))
	}
	return e.slots[name], r, nil
}

// State reports the state of a relationship slot
func (e *Entity) State(name string) State {
	if s, ok := e.slots[name]; ok {
		return s.state
	}
	return Unset
}

// Peek returns the current contents of a relationship slot without resolving it
func (e *Entity) Peek(name string) (one *Entity, many []*Entity, deferred *Deferred, state State) {
	s, ok := e.slots[name]
	if !ok {
		return nil, nil, nil, Unset
	}
	return s.one, s.many, s.deferred, s.state
}

// SetOne resolves a one-to-one relationship
func (e *Entity) SetOne(name string, related *Entity) error {
	s, r, err := e.slot(name)
	if err != nil {
		return err
	}
	if r.Cardinality != OneToOne {
		return errors.NewValidationError(name, fmt.Sprintf("%s.%s is %s", e.def.Type, name, r.Cardinality))
	}
	*s = slot{state: Resolved, one: related}
	return nil
}

// SetMany resolves a one-to-many relationship
func (e *Entity) SetMany(name string, related []*Entity) error {
	s, r, err := e.slot(name)
	if err != nil {
		return err
	}
	if r.Cardinality != OneToMany {
		return errors.NewValidationError(name, fmt.Sprintf("%s.%s is %s", e.def.Type, name, r.Cardinality))
	}
	if related == nil {
		related = []*Entity{}
	}
	*s = slot{state: Resolved, many: related}
	return nil
}

// Defer installs a placeholder in a relationship slot
func (e *Entity) Defer(name string, d *Deferred) error {
	s, r, err := e.slot(name)
	if err != nil {
		return err
	}
	if d.IsList() != (r.Cardinality == OneToMany) {
		return errors.NewValidationError(name, fmt.Sprintf("%s.%s is %s", e.def.Type, name, r.Cardinality))
	}
	*s = slot{state: Pending, deferred: d}
	return nil
}

// Unset clears a relationship slot
func (e *Entity) Unset(name string) {
	if s, ok := e.slots[name]; ok {
		*s = slot{}
	}
}

// One returns a one-to-one relationship, resolving it first if it is deferred.
// An unset relationship returns nil.
func (e *Entity) One(ctx context.Context, name string) (*Entity, error) {
	s, r, err := e.slot(name)
	if err != nil {
		return nil, err
	}
	if r.Cardinality != OneToOne {
		return nil, errors.NewValidationError(name, fmt.Sprintf("%s.%s is %s", e.def.Type, name, r.Cardinality))
	}
	if err := e.resolve(ctx, s, r); err != nil {
		return nil, err
	}
	return s.one, nil
}

// Many returns a one-to-many relationship, resolving it first if it is deferred.
// An unset relationship returns nil.
func (e *Entity) Many(ctx context.Context, name string) ([]*Entity, error) {
	s, r, err := e.slot(name)
	if err != nil {
		return nil, err
	}
	if r.Cardinality != OneToMany {
		return nil, errors.NewValidationError(name, fmt.Sprintf("%s.%s is %s", e.def.Type, name, r.Cardinality))
	}
	if err := e.resolve(ctx, s, r); err != nil {
		return nil, err
	}
	return s.many, nil
}

// resolve replaces a pending slot with the resolver's result. On failure the
// placeholder stays in place so a later access can try again.
func (e *Entity) resolve(ctx context.Context, s *slot, r Relationship) error {
	if s.state != Pending {
		return nil
	}

	d := s.deferred
	if d.busy {
		return fmt.Errorf("%s.%s: relationship is already being resolved", e.def.Type, r.Name)
	}

	d.busy = true
	related, err := d.resolve(ctx)
	d.busy = false
	if err != nil {
		return fmt.Errorf("resolving %s.%s: %w", e.def.Type, r.Name, err)
	}

	if d.many {
		if related == nil {
			related = []*Entity{}
		}
		*s = slot{state: Resolved, many: related}
		return nil
	}

	var one *Entity
	if len(related) > 0 {
		one = related[0]
	}
	*s = slot{state: Resolved, one: one}
	return nil
}
