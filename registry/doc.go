/*
Package registry holds entity definitions and DynamoDB index maps by entity type.

Definition Registry:
Maps entity type names to their static shape:

	registry.RegisterDefinition(&entity.Definition{
	    Type:   "User",
	    Fields: []entity.Field{{Name: "id", Format: entity.FormatInt}, {Name: "email"}},
	})

Index Map Registry:
Associates entity types with DynamoDB key patterns. Placeholders name payload
fields:

	registry.RegisterIndexMap("User", map[string]string{
	    "PK":     "USER#{id}",
	    "SK":     "USER#{id}",
	    "GSI1PK": "EMAIL#{email}",
	    "GSI1SK": "USER",
	})

The package-level functions use Default. A Registry is thread-safe and is
normally populated during initialization, from init() functions or from a
configuration file.
*/
package registry
