/*
Package ddb provides a DynamoDB backend for entitysync providers.

The Backend supports:
  - Single-table design patterns
  - Macro-based key expansion (e.g., "USER#{id}")
  - Listing through the GSI1 index, with its partition key expanded from filters
  - Cursor paging over LastEvaluatedKey
  - Retries of throttled calls
  - Automatic EntityType injection for polymorphic storage

Macro Expansion:
Keys are built from the index map registered for the entity type:

	registry.RegisterIndexMap("Post", map[string]string{
	    "PK":     "POST#{id}",          // Becomes "POST#101"
	    "SK":     "POST",               // Static value
	    "GSI1PK": "AUTHOR#{authorId}",  // Stored as PK1; authorId becomes a server-side filter
	    "GSI1SK": "POST#{id}",          // Stored as SK1
	})

Reads, updates and deletes expand every macro in PK and SK with the entity key.
Creates expand macros from the submitted fields and generate a key when none is given.

Paging:

	binding := entitysync.Binding{
	    Definition: postDefinition,
	    Pager:      ddb.NewPager(pager.WithMaxPageSize(25)),
	}
*/
package ddb
