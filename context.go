/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitysync

import (
	"maps"

	"github.com/google/uuid"
	"github.com/suparena/entitysync/identity"
)

// Context is one data-access session. It carries the identity store shared by
// every operation of the session, the hydration policy, the filter criteria of
// the next list operation and the relationship depth operations run at.
//
// A Context is not safe for concurrent use. Derived contexts share the identity
// store of their parent.
type Context struct {
	session string
	store   *identity.Store
	policy  Policy
	filter  map[string]any
	depth   int
}

// ContextOption configures a new Context
type ContextOption func(*Context)

// WithPolicy sets the hydration policy
func WithPolicy(p Policy) ContextOption {
	return func(c *Context) {
		c.policy = p
	}
}

// WithFilter sets the filter criteria for list operations
func WithFilter(filter map[string]any) ContextOption {
	return func(c *Context) {
		c.filter = maps.Clone(filter)
	}
}

// WithStore joins an existing identity store
func WithStore(store *identity.Store) ContextOption {
	return func(c *Context) {
		c.store = store
	}
}

// WithSession sets the session id instead of generating one
func WithSession(id string) ContextOption {
	return func(c *Context) {
		c.session = id
	}
}

// NewContext starts a session with a fresh identity store and the default policy
func NewContext(opts ...ContextOption) *Context {
	c := &Context{policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = identity.NewStore()
	}
	if c.session == "" {
		c.session = uuid.NewString()
	}
	return c
}

// Session returns the session id
func (c *Context) Session() string {
	return c.session
}

// Store returns the session identity store
func (c *Context) Store() *identity.Store {
	return c.store
}

// Policy returns the hydration policy
func (c *Context) Policy() Policy {
	return c.policy
}

// Filter returns a copy of the filter criteria
func (c *Context) Filter() map[string]any {
	return maps.Clone(c.filter)
}

// Depth returns the relationship depth operations on this context run at
func (c *Context) Depth() int {
	return c.depth
}

// WithPolicy derives a context with another hydration policy
func (c *Context) WithPolicy(p Policy) *Context {
	d := *c
	d.policy = p
	return &d
}

// WithFilter derives a context with other filter criteria
func (c *Context) WithFilter(filter map[string]any) *Context {
	d := *c
	d.filter = maps.Clone(filter)
	return &d
}

// at derives the context relationship fetches run on
func (c *Context) at(depth int) *Context {
	d := *c
	d.filter = nil
	d.depth = depth
	return &d
}
