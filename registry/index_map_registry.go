/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import "maps"

// RegisterIndexMap associates entityType with a DynamoDB index map (PK, SK, GSI keys)
func (r *Registry) RegisterIndexMap(entityType string, idxMap map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexMaps[entityType] = maps.Clone(idxMap)
}

// IndexMap retrieves the index map of entityType, if any
func (r *Registry) IndexMap(entityType string) (map[string]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.indexMaps[entityType]
	return maps.Clone(m), ok
}

// RegisterIndexMap registers an index map with Default
func RegisterIndexMap(entityType string, idxMap map[string]string) {
	Default.RegisterIndexMap(entityType, idxMap)
}

// GetIndexMap retrieves an index map from Default
func GetIndexMap(entityType string) (map[string]string, bool) {
	return Default.IndexMap(entityType)
}
