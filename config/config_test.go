/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/entitysync"
	"github.com/suparena/entitysync/errors"
	"github.com/suparena/entitysync/pager"
)

const blogConfig = `
definitions:
  - type: User
    fields:
      - {name: id, format: int}
      - {name: name, format: string}
    relationships:
      - {name: posts, target: Post, cardinality: one-to-many, filterField: authorId}
    indexMap:
      PK: "USER#{id}"
      SK: PROFILE
      GSI1PK: USERS
  - type: Post
    fields:
      - {name: id, format: int}
      - {name: authorId, format: int}
    relationships:
      - {name: author, target: User}
providers:
  - name: api
    backend:
      kind: rest
      url: ${BLOG_URL}
      headers:
        X-Api-Key: secret
    bindings:
      - type: User
        path: /users
        operations: [READ, READ_LIST]
        pager: {kind: offset, maxPageSize: 10}
      - type: Post
        filters: [authorId]
        filterPolicy: local
  - name: table
    backend:
      kind: dynamodb
      table: blog
    bindings:
      - type: User
policy:
  default: lazy
  overrides:
    - {type: User, mode: eager, depth: 1}
`

type stubTable struct {
	sdk.Client
	items map[string]map[string]types.AttributeValue
}

func (s *stubTable) GetItem(_ context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	pk := in.Key["PK"].(*types.AttributeValueMemberS).Value
	return &sdk.GetItemOutput{Item: s.items[pk]}, nil
}

func load(t *testing.T, url string) *Config {
	t.Helper()
	t.Setenv("BLOG_URL", url)

	cfg, err := LoadConfiguration(strings.NewReader(blogConfig))
	require.NoError(t, err)
	return cfg
}

func TestLoadConfigurationExpandsEnvironment(t *testing.T) {
	cfg := load(t, "http://example.com/api")

	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "http://example.com/api", cfg.Providers[0].Backend.URL)
	assert.Equal(t, "USER#{id}", cfg.Definitions[0].IndexMap["PK"])
	assert.Equal(t, "one-to-many", cfg.Definitions[0].Relationships[0].Cardinality)
}

func TestLoadConfigurationRejectsUnknownFields(t *testing.T) {
	_, err := LoadConfiguration(strings.NewReader("providers:\n  - nme: typo\n"))
	assert.Error(t, err)
}

func TestLoadFileReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SYNC_TABLE_NAME=from-dotenv\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sync.yaml"), []byte(
		"providers:\n  - name: t\n    backend:\n      kind: dynamodb\n      table: ${SYNC_TABLE_NAME}\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SYNC_TABLE_NAME") })

	cfg, err := LoadFile(filepath.Join(dir, "sync.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Providers[0].Backend.Table)
}

func TestBuild(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 1, "name": "Ada"})
	})
	server := httptest.NewServer(r)
	defer server.Close()

	table := &stubTable{items: map[string]map[string]types.AttributeValue{
		"USER#7": {
			"PK":   &types.AttributeValueMemberS{Value: "USER#7"},
			"SK":   &types.AttributeValueMemberS{Value: "PROFILE"},
			"id":   &types.AttributeValueMemberN{Value: "7"},
			"name": &types.AttributeValueMemberS{Value: "Grace"},
		},
	}}

	rt, err := load(t, server.URL+"/api").Build(context.Background(), WithDynamoDBClient(table))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"User", "Post"}, rt.Registry.Types())
	assert.Equal(t, entitysync.Eager, rt.Policy.Mode("User", 1))
	assert.Equal(t, entitysync.Lazy, rt.Policy.Mode("User", 2))
	assert.Equal(t, entitysync.Lazy, rt.Policy.Mode("Post", 1))

	api, err := rt.Providers.Get("api")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"User", "Post"}, api.Types())

	p, sc, err := rt.Context("api")
	require.NoError(t, err)
	assert.Same(t, api, p)

	user, err := p.Get(context.Background(), sc, "User", 1)
	require.NoError(t, err)
	name, _ := user.Get("name")
	assert.Equal(t, "Ada", name)

	_, err = p.Create(context.Background(), sc, "User", map[string]any{"name": "x"})
	assert.True(t, errors.IsUnsupportedOperation(err))

	p, sc, err = rt.Context("table")
	require.NoError(t, err)
	user, err = p.Get(context.Background(), sc, "User", 7)
	require.NoError(t, err)
	name, _ = user.Get("name")
	assert.Equal(t, "Grace", name)
}

func TestBuildErrors(t *testing.T) {
	ctx := context.Background()

	cases := map[string]string{
		"unknown target":   "definitions:\n  - type: A\n    relationships:\n      - {name: b, target: B}\n",
		"bad cardinality":  "definitions:\n  - type: A\n    relationships:\n      - {name: b, target: A, cardinality: several}\n",
		"bad mode":         "policy:\n  default: sometimes\n",
		"unknown binding":  "providers:\n  - name: p\n    backend: {kind: rest, url: 'http://x'}\n    bindings:\n      - type: Ghost\n",
		"bad backend kind": "providers:\n  - name: p\n    backend: {kind: ftp}\n",
		"no table":         "providers:\n  - name: p\n    backend: {kind: dynamodb}\n",
		"bad operation":    "definitions:\n  - type: A\nproviders:\n  - name: p\n    backend: {kind: rest, url: 'http://x'}\n    bindings:\n      - {type: A, operations: [FETCH]}\n",
		"bad pager":        "definitions:\n  - type: A\nproviders:\n  - name: p\n    backend: {kind: rest, url: 'http://x'}\n    bindings:\n      - {type: A, pager: {kind: cursor}}\n",
		"bad policy":       "definitions:\n  - type: A\nproviders:\n  - name: p\n    backend: {kind: rest, url: 'http://x'}\n    bindings:\n      - {type: A, filterPolicy: sometimes}\n",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := LoadConfiguration(strings.NewReader(doc))
			require.NoError(t, err)
			_, err = cfg.Build(ctx, WithDynamoDBClient(&stubTable{}))
			assert.Error(t, err)
		})
	}
}

func TestPagerDefaults(t *testing.T) {
	pg, err := PagerConfig{}.pager("rest")
	require.NoError(t, err)
	assert.IsType(t, &pager.OData{}, pg)

	pg, err = PagerConfig{}.pager("dynamodb")
	require.NoError(t, err)
	assert.NotNil(t, pg)
	_, isOData := pg.(*pager.OData)
	assert.False(t, isOData)
}
