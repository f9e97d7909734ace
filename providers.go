/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitysync

import (
	"fmt"
	"sort"
	"sync"
)

// Providers is a thread-safe set of providers looked up by name
type Providers struct {
	mu        sync.RWMutex
	providers map[string]*Provider
}

// NewProviders creates an empty Providers set
func NewProviders() *Providers {
	return &Providers{
		providers: make(map[string]*Provider),
	}
}

// Register adds a provider under its name
func (ps *Providers) Register(p *Provider) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, exists := ps.providers[p.Name()]; exists {
		return fmt.Errorf("provider %q already registered", p.Name())
	}
	ps.providers[p.Name()] = p
	return nil
}

// Get retrieves the provider registered under name
func (ps *Providers) Get(name string) (*Provider, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	p, exists := ps.providers[name]
	if !exists {
		return nil, fmt.Errorf("provider %q not found", name)
	}
	return p, nil
}

// Remove deletes the provider registered under name
func (ps *Providers) Remove(name string) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, exists := ps.providers[name]; !exists {
		return fmt.Errorf("provider %q not found", name)
	}
	delete(ps.providers, name)
	return nil
}

// Names returns the registered provider names, sorted
func (ps *Providers) Names() []string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	names := make([]string, 0, len(ps.providers))
	for name := range ps.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// For returns the provider bound to entityType. When several providers bind the
// type, the first by name wins.
func (ps *Providers) For(entityType string) (*Provider, error) {
	for _, name := range ps.Names() {
		p, err := ps.Get(name)
		if err != nil {
			continue
		}
		if _, ok := p.binding(entityType); ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no provider binds entity type %q", entityType)
}
