/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/suparena/entitysync/entity"
)

// Registry maps entity type names to definitions and index maps
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]*entity.Definition
	indexMaps   map[string]map[string]string
}

// New creates an empty Registry
func New() *Registry {
	return &Registry{
		definitions: make(map[string]*entity.Definition),
		indexMaps:   make(map[string]map[string]string),
	}
}

// Default is the registry used by the package-level functions
var Default = New()

// Register adds a validated definition. A type can be registered once.
func (r *Registry) Register(def *entity.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[def.Type]; exists {
		return fmt.Errorf("type registry: type %q already registered", def.Type)
	}
	r.definitions[def.Type] = def
	return nil
}

// Definition returns the definition registered for entityType
func (r *Registry) Definition(entityType string) (*entity.Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.definitions[entityType]
	if !ok {
		return nil, fmt.Errorf("type registry: no type registered as %q", entityType)
	}
	return def, nil
}

// Types returns the registered type names, sorted
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.definitions))
	for t := range r.definitions {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// CheckRelationships reports relationships whose target type is not registered
func (r *Registry) CheckRelationships() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, def := range r.definitions {
		for _, rel := range def.Relationships {
			if _, ok := r.definitions[rel.Target]; !ok {
				return fmt.Errorf("type registry: %s.%s targets unregistered type %q", def.Type, rel.Name, rel.Target)
			}
		}
	}
	return nil
}

// RegisterDefinition registers def with Default.
// It panics when def is invalid or its type is already registered.
func RegisterDefinition(def *entity.Definition) {
	if err := Default.Register(def); err != nil {
		panic(err.Error())
	}
}

// GetDefinition returns the definition of entityType from Default
func GetDefinition(entityType string) (*entity.Definition, error) {
	return Default.Definition(entityType)
}
