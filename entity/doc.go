/*
Package entity defines sync entities: typed records with declared relationships.

A Definition describes the shape of one entity type. It is static metadata, usually
registered once through the registry package or loaded from configuration:

	def := &entity.Definition{
	    Type:     "User",
	    KeyField: "id",
	    Fields: []entity.Field{
	        {Name: "id", Format: entity.FormatInt},
	        {Name: "name"},
	        {Name: "createdAt", Format: entity.FormatDateTime},
	    },
	    Relationships: []entity.Relationship{
	        {Name: "posts", Target: "Post", Cardinality: entity.OneToMany, FilterField: "userId"},
	    },
	}

Relationship values are held in slots that are either unset, resolved, or deferred.
Application code reads them through One and Many, which resolve a deferred slot on first
access and replace it with the concrete value:

	posts, err := user.Many(ctx, "posts")

A deferred relationship may therefore fail long after the entity itself was returned
successfully; the error surfaces from One or Many.
*/
package entity
