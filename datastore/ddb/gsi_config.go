/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"regexp"
)

// GSIConfig holds the configuration for GSI key mappings
type GSIConfig struct {
	// IndexName is the actual GSI name in DynamoDB (e.g., "GSI1")
	IndexName string
	// PartitionKeyName is the actual partition key attribute name in the GSI (e.g., "PK1")
	PartitionKeyName string
	// SortKeyName is the actual sort key attribute name in the GSI (e.g., "SK1")
	SortKeyName string
}

// DefaultGSIConfigs holds the default GSI configurations
var DefaultGSIConfigs = map[string]GSIConfig{
	"GSI1": {IndexName: "GSI1", PartitionKeyName: "PK1", SortKeyName: "SK1"},
	"GSI2": {IndexName: "GSI2", PartitionKeyName: "PK2", SortKeyName: "SK2"},
	"GSI3": {IndexName: "GSI3", PartitionKeyName: "PK3", SortKeyName: "SK3"},
}

// ListIndex is the GSI list operations query
const ListIndex = "GSI1"

// GetGSIConfig returns the GSI configuration for a given index name
func GetGSIConfig(indexName string) (GSIConfig, bool) {
	config, ok := DefaultGSIConfigs[indexName]
	return config, ok
}

var gsiKeyPattern = regexp.MustCompile(`^(GSI\d+)(PK|SK)$`)

// attributeName maps an index map key to the item attribute holding it:
// "GSI1PK" is stored as the GSI1 partition key attribute, PK and SK as themselves.
func attributeName(indexKey string) string {
	m := gsiKeyPattern.FindStringSubmatch(indexKey)
	if m == nil {
		return indexKey
	}
	cfg, ok := GetGSIConfig(m[1])
	if !ok {
		return indexKey
	}
	if m[2] == "PK" {
		return cfg.PartitionKeyName
	}
	return cfg.SortKeyName
}

// keyAttributes lists attributes that hold index keys rather than entity fields
func keyAttributes(indexMap map[string]string) map[string]bool {
	attrs := map[string]bool{"PK": true, "SK": true, EntityTypeAttribute: true}
	for k := range indexMap {
		attrs[attributeName(k)] = true
	}
	return attrs
}
