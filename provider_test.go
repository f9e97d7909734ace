/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitysync

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/entitysync/datastore"
	"github.com/suparena/entitysync/datastore/mock"
	"github.com/suparena/entitysync/datastore/testmodels"
	"github.com/suparena/entitysync/entity"
	"github.com/suparena/entitysync/errors"
)

func newBlog(t *testing.T, pageSize int, policies ...FilterPolicy) (*mock.Backend, *Provider) {
	t.Helper()

	backend := mock.New("blog").
		WithPageSize(pageSize).
		WithFilters("Post", "authorId").
		WithFilters("Comment", "postId").
		Seed(testmodels.UserDefinition,
			map[string]any{"id": 1, "name": "Ada", "email": "ada@example.com", "createdAt": "2024-01-02T03:04:05Z"},
			map[string]any{"id": 2, "name": "Bob", "email": "bob@example.com"},
		).
		Seed(testmodels.PostDefinition,
			map[string]any{"id": 101, "title": "First", "authorId": 1, "publishedOn": "2024-02-01"},
			map[string]any{"id": 102, "title": "Second", "authorId": 1},
			map[string]any{"id": 103, "title": "Third", "authorId": 2},
		).
		Seed(testmodels.CommentDefinition,
			map[string]any{"id": 1001, "postId": 101, "body": "nice"},
			map[string]any{"id": 1002, "postId": 101, "body": "agreed"},
		)

	policy := FilterIgnore
	if len(policies) > 0 {
		policy = policies[0]
	}

	var bindings []Binding
	for _, def := range testmodels.Definitions() {
		bindings = append(bindings, Binding{Definition: def, Pager: mock.NewPager(), FilterPolicy: policy})
	}

	p, err := NewProvider("blog", backend, bindings...)
	require.NoError(t, err)
	return backend, p
}

func ids(entities []*entity.Entity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.ID().String())
	}
	return out
}

func TestNewProviderValidation(t *testing.T) {
	backend := mock.New("m")

	_, err := NewProvider("", backend)
	assert.True(t, errors.IsValidationError(err))

	_, err = NewProvider("p", backend, Binding{Definition: testmodels.UserDefinition})
	assert.True(t, errors.IsValidationError(err))

	p, err := NewProvider("p", backend, Binding{Definition: testmodels.UserDefinition, Pager: mock.NewPager()})
	require.NoError(t, err)
	assert.Error(t, p.Bind(Binding{Definition: testmodels.UserDefinition, Pager: mock.NewPager()}))
	assert.Equal(t, []string{"User"}, p.Types())
	assert.Equal(t, "m", p.BackendID())
}

func TestIdentityUniqueness(t *testing.T) {
	_, p := newBlog(t, 0)
	ctx := context.Background()
	sc := p.Context()

	first, err := p.Get(ctx, sc, "User", 1)
	require.NoError(t, err)
	second, err := p.Get(ctx, sc, "User", "1")
	require.NoError(t, err)
	assert.Same(t, first, second)

	users, err := p.List(ctx, sc, "User")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Same(t, first, users[0])

	other, err := p.Get(ctx, p.Context(), "User", 1)
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestScalarFieldsAreCoerced(t *testing.T) {
	_, p := newBlog(t, 0)
	ctx := context.Background()

	e, err := p.Get(ctx, p.Context(), "User", 1)
	require.NoError(t, err)

	u := testmodels.NewUser(e)
	assert.Equal(t, "Ada", u.Name())
	assert.Equal(t, "2024-01-02T03:04:05.000Z", u.CreatedAt().String())
	assert.Equal(t, entity.IntKey(1), e.ID())
}

func TestLazyPlaceholderResolvesOnce(t *testing.T) {
	backend, p := newBlog(t, 0)
	ctx := context.Background()
	sc := p.Context()

	user, err := p.Get(ctx, sc, "User", 1)
	require.NoError(t, err)
	assert.Equal(t, entity.Pending, user.State("posts"))
	assert.Equal(t, 0, backend.CallCount(datastore.ReadList, "Post"))

	posts, err := user.Many(ctx, "posts")
	require.NoError(t, err)
	assert.Equal(t, []string{"101", "102"}, ids(posts))

	again, err := user.Many(ctx, "posts")
	require.NoError(t, err)
	assert.Equal(t, posts, again)
	assert.Equal(t, 1, backend.CallCount(datastore.ReadList, "Post"))
	assert.Equal(t, entity.Resolved, user.State("posts"))
}

func TestLazyOneToOneUsesIdentityStore(t *testing.T) {
	backend, p := newBlog(t, 0)
	ctx := context.Background()
	sc := p.Context()

	user, err := p.Get(ctx, sc, "User", 1)
	require.NoError(t, err)
	post, err := p.Get(ctx, sc, "Post", 101)
	require.NoError(t, err)

	_, _, deferred, state := post.Peek("author")
	require.Equal(t, entity.Pending, state)
	assert.Equal(t, "User", deferred.Target)
	assert.Equal(t, entity.IntKey(1), deferred.ID)

	author, err := post.One(ctx, "author")
	require.NoError(t, err)
	assert.Same(t, user, author)
	assert.Equal(t, 1, backend.CallCount(datastore.Read, "User"))
}

func TestDepthBoundedEagerHydrationTerminates(t *testing.T) {
	backend, p := newBlog(t, 0)
	ctx := context.Background()
	sc := p.Context(WithPolicy(EagerTo(1)))

	post, err := p.Get(ctx, sc, "Post", 101)
	require.NoError(t, err)

	author, _, _, state := post.Peek("author")
	require.Equal(t, entity.Resolved, state)
	assert.Equal(t, "Ada", testmodels.NewUser(author).Name())

	_, comments, _, state := post.Peek("comments")
	require.Equal(t, entity.Resolved, state)
	assert.Equal(t, []string{"1001", "1002"}, ids(comments))

	// depth 2 falls back to lazy
	assert.Equal(t, entity.Pending, author.State("posts"))
	assert.Equal(t, entity.Pending, comments[0].State("post"))
	assert.Equal(t, 0, backend.CallCount(datastore.ReadList, "Post"))
	assert.Equal(t, 1, backend.CallCount(datastore.Read, "User"))

	back, err := comments[0].One(ctx, "post")
	require.NoError(t, err)
	assert.Same(t, post, back)
	assert.Equal(t, 1, backend.CallCount(datastore.Read, "Post"))
}

func TestUnboundedEagerHydrationOnCycle(t *testing.T) {
	backend, p := newBlog(t, 0)
	ctx := context.Background()
	sc := p.Context(WithPolicy(Policy{Default: Eager}))

	user, err := p.Get(ctx, sc, "User", 1)
	require.NoError(t, err)

	_, posts, _, state := user.Peek("posts")
	require.Equal(t, entity.Resolved, state)
	require.Equal(t, []string{"101", "102"}, ids(posts))

	for _, post := range posts {
		author, _, _, state := post.Peek("author")
		require.Equal(t, entity.Resolved, state)
		assert.Same(t, user, author)
	}

	_, comments, _, _ := posts[0].Peek("comments")
	require.Len(t, comments, 2)
	back, _, _, _ := comments[1].Peek("post")
	assert.Same(t, posts[0], back)

	assert.Equal(t, 1, backend.CallCount(datastore.Read, "User"))
	assert.Equal(t, 0, backend.CallCount(datastore.Read, "Post"))
}

func TestSuppressLeavesRelationshipUnset(t *testing.T) {
	backend, p := newBlog(t, 0)
	ctx := context.Background()
	sc := p.Context(WithPolicy(Policy{Default: Eager, Overrides: []Override{{Type: "Post", Mode: Suppress}}}))

	user, err := p.Get(ctx, sc, "User", 1)
	require.NoError(t, err)
	assert.Equal(t, entity.Unset, user.State("posts"))

	posts, err := user.Many(ctx, "posts")
	require.NoError(t, err)
	assert.Nil(t, posts)
	assert.Equal(t, 0, backend.CallCount(datastore.ReadList, "Post"))
}

func TestEmbeddedRelationshipIsMaterialized(t *testing.T) {
	backend, p := newBlog(t, 0)
	backend.Seed(testmodels.UserDefinition, map[string]any{
		"id":   3,
		"name": "Cy",
		"posts": []any{
			map[string]any{"id": 201, "title": "Embedded", "authorId": 3},
		},
	})
	ctx := context.Background()
	sc := p.Context()

	user, err := p.Get(ctx, sc, "User", 3)
	require.NoError(t, err)

	_, posts, _, state := user.Peek("posts")
	require.Equal(t, entity.Resolved, state)
	require.Equal(t, []string{"201"}, ids(posts))
	_, hasRaw := user.Get("posts")
	assert.False(t, hasRaw)

	post, ok := sc.Store().Lookup(entity.IdentityKey{Backend: "blog", Type: "Post", ID: entity.IntKey(201)})
	require.True(t, ok)
	assert.Same(t, posts[0], post)
	assert.Equal(t, entity.Pending, post.State("author"))
	assert.Equal(t, 0, backend.CallCount(datastore.ReadList, "Post"))
}

func TestPaginationWalksEveryPage(t *testing.T) {
	backend, p := newBlog(t, 2)
	ctx := context.Background()

	for i := 104; i <= 105; i++ {
		backend.Seed(testmodels.PostDefinition, map[string]any{"id": i, "title": fmt.Sprintf("P%d", i), "authorId": 2})
	}

	posts, err := p.List(ctx, p.Context(), "Post")
	require.NoError(t, err)
	assert.Equal(t, []string{"101", "102", "103", "104", "105"}, ids(posts))
	assert.Equal(t, 3, backend.CallCount(datastore.ReadList, "Post"))

	var seen []string
	err = p.Each(ctx, p.Context(), "Post", func(e *entity.Entity) error {
		seen = append(seen, e.ID().String())
		if len(seen) == 3 {
			return fmt.Errorf("enough")
		}
		return nil
	})
	assert.EqualError(t, err, "READ_LIST Post: enough")
	assert.Equal(t, []string{"101", "102", "103"}, seen)
}

func TestServerSideFilter(t *testing.T) {
	backend, p := newBlog(t, 0)
	ctx := context.Background()

	posts, err := p.Perform(ctx, p.Context(), datastore.ReadList, "Post", map[string]any{"authorId": 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"103"}, ids(posts))

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"authorId": 2}, calls[0].Filter)
}

func TestFilterPolicies(t *testing.T) {
	ctx := context.Background()
	filter := map[string]any{"title": "Second"}

	t.Run("Ignore", func(t *testing.T) {
		backend, p := newBlog(t, 0, FilterIgnore)
		posts, err := p.List(ctx, p.Context(WithFilter(filter)), "Post")
		require.NoError(t, err)
		assert.Len(t, posts, 3)
		assert.Empty(t, backend.Calls()[0].Filter)
	})

	t.Run("Fail", func(t *testing.T) {
		backend, p := newBlog(t, 0, FilterFail)
		_, err := p.List(ctx, p.Context(WithFilter(filter)), "Post")
		require.Error(t, err)
		assert.True(t, errors.IsFilterPolicyViolation(err))

		var fpv *errors.FilterPolicyViolationError
		require.True(t, errors.As(err, &fpv))
		assert.Equal(t, []string{"title"}, fpv.Filters)
		assert.Equal(t, "READ_LIST", fpv.Operation)
		assert.Equal(t, "Post", fpv.Type)
		assert.Empty(t, backend.Calls())
	})

	t.Run("Local", func(t *testing.T) {
		_, p := newBlog(t, 0, FilterLocal)
		posts, err := p.List(ctx, p.Context(WithFilter(filter)), "Post")
		require.NoError(t, err)
		assert.Equal(t, []string{"102"}, ids(posts))
	})

	t.Run("ReturnEmpty", func(t *testing.T) {
		backend, p := newBlog(t, 0, FilterReturnEmpty)
		posts, err := p.List(ctx, p.Context(WithFilter(filter)), "Post")
		require.NoError(t, err)
		assert.Empty(t, posts)
		assert.Empty(t, backend.Calls())
	})

	t.Run("RelationshipKeyIsAlwaysHonoured", func(t *testing.T) {
		backend, p := newBlog(t, 0, FilterIgnore)
		backend.WithFilters("Post")
		user, err := p.Get(ctx, p.Context(), "User", 2)
		require.NoError(t, err)
		posts, err := user.Many(ctx, "posts")
		require.NoError(t, err)
		assert.Equal(t, []string{"103"}, ids(posts))
	})
}

func TestNotFound(t *testing.T) {
	_, p := newBlog(t, 0)

	_, err := p.Get(context.Background(), p.Context(), "User", 99)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	var nfe *errors.EntityNotFoundError
	require.True(t, errors.As(err, &nfe))
	assert.Equal(t, "User", nfe.Type)
	assert.Equal(t, "99", nfe.Key)
	assert.Equal(t, "READ", nfe.Operation)
}

func TestMissingRelatedRecordIsNotNotFound(t *testing.T) {
	backend, p := newBlog(t, 0)
	backend.Seed(testmodels.PostDefinition, map[string]any{"id": 104, "title": "Orphan", "authorId": 99})
	ctx := context.Background()

	_, err := p.Get(ctx, p.Context().WithPolicy(EagerTo(1)), "Post", 104)
	require.Error(t, err)
	assert.False(t, errors.IsNotFound(err))
	assert.True(t, errors.IsRelationship(err))

	var relErr *errors.RelationshipError
	require.True(t, errors.As(err, &relErr))
	assert.Equal(t, "Post", relErr.Type)
	assert.Equal(t, "104", relErr.Key)
	assert.Equal(t, "author", relErr.Relationship)
	assert.True(t, errors.IsNotFound(relErr.Err))
}

func TestDeleteEvictsKeyWithoutFormat(t *testing.T) {
	tag := &entity.Definition{
		Type:   "Tag",
		Fields: []entity.Field{{Name: "label", Format: entity.FormatString}},
	}
	backend := mock.New("tags").Seed(tag, map[string]any{"id": float64(1), "label": "go"})
	p, err := NewProvider("tags", backend, Binding{Definition: tag, Pager: mock.NewPager()})
	require.NoError(t, err)

	ctx := context.Background()
	sc := p.Context()
	ik := entity.IdentityKey{Backend: "tags", Type: "Tag", ID: entity.IntKey(1)}

	got, err := p.Get(ctx, sc, "Tag", "1")
	require.NoError(t, err)
	assert.Equal(t, entity.IntKey(1), got.ID())
	_, cached := sc.Store().Lookup(ik)
	require.True(t, cached)

	require.NoError(t, p.Delete(ctx, sc, "Tag", "1"))
	_, cached = sc.Store().Lookup(ik)
	assert.False(t, cached)
	assert.Equal(t, 0, sc.Store().Len())
}

func TestUnsupportedOperation(t *testing.T) {
	backend, p := newBlog(t, 0)
	backend.WithUnsupported("Comment", datastore.Delete)
	ctx := context.Background()

	_, err := p.Get(ctx, p.Context(), "Tag", 1)
	assert.True(t, errors.IsUnsupportedOperation(err))

	err = p.Delete(ctx, p.Context(), "Comment", 1001)
	assert.True(t, errors.IsUnsupportedOperation(err))
	assert.Contains(t, err.Error(), "DELETE Comment")

	_, err = p.Perform(ctx, p.Context(), datastore.Operation(42), "User")
	assert.True(t, errors.IsUnsupportedOperation(err))

	assert.Empty(t, backend.Calls())
}

func TestInvalidArguments(t *testing.T) {
	backend, p := newBlog(t, 0)
	ctx := context.Background()

	_, err := p.Perform(ctx, p.Context(), datastore.Read, "User")
	assert.True(t, errors.IsValidationError(err))
	assert.Contains(t, err.Error(), "READ User")

	_, err = p.Perform(ctx, p.Context(), datastore.Create, "User", "not a map")
	assert.True(t, errors.IsValidationError(err))

	_, err = p.Get(ctx, p.Context(), "User", "abc")
	assert.True(t, errors.IsValidationError(err))

	assert.Empty(t, backend.Calls())
}

func TestTransportFailureNamesOperation(t *testing.T) {
	backend, p := newBlog(t, 0)
	backend.WithError(datastore.ReadList, errors.NewTransportError("GET", "mock://blog", 503, nil))

	_, err := p.List(context.Background(), p.Context(), "User")
	require.Error(t, err)
	assert.True(t, errors.IsTransport(err))
	assert.Contains(t, err.Error(), "READ_LIST User")
}

func TestFailedDeferredResolutionIsRetryable(t *testing.T) {
	backend, p := newBlog(t, 0)
	ctx := context.Background()

	user, err := p.Get(ctx, p.Context(), "User", 1)
	require.NoError(t, err)

	backend.WithError(datastore.ReadList, errors.NewTransportError("GET", "mock://blog", 500, nil))
	_, err = user.Many(ctx, "posts")
	require.Error(t, err)
	assert.True(t, errors.IsTransport(err))
	assert.Equal(t, entity.Pending, user.State("posts"))

	backend.WithError(datastore.ReadList, nil)
	posts, err := user.Many(ctx, "posts")
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestCreateUpdateDelete(t *testing.T) {
	backend, p := newBlog(t, 0)
	ctx := context.Background()
	sc := p.Context()

	created, err := p.Create(ctx, sc, "Post", map[string]any{"title": "New", "authorId": 2})
	require.NoError(t, err)
	assert.Equal(t, entity.IntKey(104), created.ID())
	assert.Equal(t, 1, backend.CallCount(datastore.Create, "Post"))

	found, err := p.Get(ctx, sc, "Post", 104)
	require.NoError(t, err)
	assert.Same(t, created, found)

	updated, err := p.Update(ctx, sc, "Post", 104, map[string]any{"title": "Renamed"})
	require.NoError(t, err)
	assert.Same(t, created, updated)
	title, _ := created.Get("title")
	assert.Equal(t, "Renamed", title)

	before := sc.Store().Len()
	require.NoError(t, p.Delete(ctx, sc, "Post", 104))
	assert.Equal(t, before-1, sc.Store().Len())
	_, ok := sc.Store().Lookup(entity.IdentityKey{Backend: "blog", Type: "Post", ID: entity.IntKey(104)})
	assert.False(t, ok)
	assert.Equal(t, 2, backend.Count("User"))
	assert.Equal(t, 3, backend.Count("Post"))
}

func TestProvidersAndTyped(t *testing.T) {
	_, p := newBlog(t, 0)
	ps := NewProviders()
	require.NoError(t, ps.Register(p))
	assert.Error(t, ps.Register(p))
	assert.Equal(t, []string{"blog"}, ps.Names())

	users, err := TypedFor(ps, "User", testmodels.NewUser)
	require.NoError(t, err)

	ctx := context.Background()
	sc := p.Context()

	ada, err := users.Get(ctx, sc, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ada", ada.Name())

	posts, err := ada.Posts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "First", posts[0].Title())
	assert.Equal(t, "2024-02-01", posts[0].PublishedOn().String())

	author, err := posts[1].Author(ctx)
	require.NoError(t, err)
	assert.Same(t, ada.Entity, author.Entity)

	all, err := users.List(ctx, sc)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = TypedFor(ps, "Tag", testmodels.NewUser)
	assert.Error(t, err)

	require.NoError(t, ps.Remove("blog"))
	_, err = ps.Get("blog")
	assert.Error(t, err)
}
