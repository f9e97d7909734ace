/*
Package entitysync reads and writes structured business entities against backend
services and presents them as object graphs with identity and lazily loaded
relationships.

A Provider maps the operations CREATE, READ, UPDATE, DELETE and READ_LIST for its
bound entity types onto one datastore.Backend. Multi-page responses are walked with
a pager.Pager. Every entity passes through the identity store of the session
Context, so one backend record is one *entity.Entity per session.

Relationships are populated according to the Context's hydration Policy:
  - Eager fetches them before the operation returns, depth-first
  - Lazy installs a placeholder that fetches them on first access
  - Suppress leaves them unset

Top-level results are at depth 0; relationships of an entity at depth d resolve at
depth d+1. A lazily loaded relationship can fail when it is first accessed, long
after the operation that returned its owner succeeded.

Basic Usage:

	backend, _ := rest.New("https://api.example.com",
		rest.WithRoute("User", rest.Route{Path: "/users"}),
		rest.WithRoute("Post", rest.Route{Path: "/posts", Filters: []string{"userId"}}),
	)
	provider, _ := entitysync.NewProvider("blog", backend,
		entitysync.Binding{Definition: testmodels.UserDefinition, Pager: pager.NewOffset()},
		entitysync.Binding{Definition: testmodels.PostDefinition, Pager: pager.NewOffset()},
	)

	sc := provider.Context(entitysync.WithPolicy(entitysync.EagerTo(1)))
	user, err := provider.Get(ctx, sc, "User", 1)
	posts, err := user.Many(ctx, "posts")

	out, err := serializer.Serialize(ctx, user, serializer.Rules{Case: serializer.Snake})
*/
package entitysync
