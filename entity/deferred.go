/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entity

import "context"

// Resolver loads the value of a deferred relationship
type Resolver func(ctx context.Context) ([]*Entity, error)

// Deferred stands in for a relationship value that has not been loaded yet.
// A deferred entity knows the key of its single target; a deferred relationship
// only knows how to list its targets.
type Deferred struct {
	Target  string
	ID      Key
	many    bool
	resolve Resolver
	busy    bool
}

// NewDeferredEntity returns a placeholder for a single related entity
func NewDeferredEntity(target string, id Key, resolve Resolver) *Deferred {
	return &Deferred{Target: target, ID: id, resolve: resolve}
}

// NewDeferredRelationship returns a placeholder for a collection of related entities
func NewDeferredRelationship(target string, resolve Resolver) *Deferred {
	return &Deferred{Target: target, many: true, resolve: resolve}
}

// IsList reports whether the placeholder resolves to a collection
func (d *Deferred) IsList() bool {
	return d.many
}
