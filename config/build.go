/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/suparena/entitysync"
	"github.com/suparena/entitysync/datastore"
	"github.com/suparena/entitysync/datastore/ddb"
	"github.com/suparena/entitysync/datastore/rest"
	"github.com/suparena/entitysync/entity"
	"github.com/suparena/entitysync/errors"
	"github.com/suparena/entitysync/pager"
	"github.com/suparena/entitysync/registry"
	"github.com/suparena/entitysync/transport"
)

// Runtime is everything built from a Config
type Runtime struct {
	Registry  *registry.Registry
	Providers *entitysync.Providers
	Policy    entitysync.Policy
}

// Context creates a session context on the named provider using the configured policy
func (r *Runtime) Context(provider string) (*entitysync.Provider, *entitysync.Context, error) {
	p, err := r.Providers.Get(provider)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Context(entitysync.WithPolicy(r.Policy)), nil
}

type buildOptions struct {
	dynamo    ddb.API
	transport transport.Transport
}

// BuildOption changes how backends are constructed
type BuildOption func(*buildOptions)

// WithDynamoDBClient uses api for every dynamodb backend instead of connecting to AWS
func WithDynamoDBClient(api ddb.API) BuildOption {
	return func(o *buildOptions) {
		o.dynamo = api
	}
}

// WithTransport uses t for every rest backend
func WithTransport(t transport.Transport) BuildOption {
	return func(o *buildOptions) {
		o.transport = t
	}
}

// Build creates the registry, providers and policy described by cfg
func (cfg *Config) Build(ctx context.Context, opts ...BuildOption) (*Runtime, error) {
	o := &buildOptions{}
	for _, opt := range opts {
		opt(o)
	}

	reg := registry.New()
	for _, dc := range cfg.Definitions {
		def, err := dc.definition()
		if err != nil {
			return nil, err
		}
		if err := reg.Register(def); err != nil {
			return nil, err
		}
		if len(dc.IndexMap) > 0 {
			reg.RegisterIndexMap(def.Type, dc.IndexMap)
		}
	}
	if err := reg.CheckRelationships(); err != nil {
		return nil, err
	}

	policy, err := cfg.Policy.policy()
	if err != nil {
		return nil, err
	}

	providers := entitysync.NewProviders()
	for _, pc := range cfg.Providers {
		p, err := pc.build(ctx, reg, o)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", pc.Name, err)
		}
		if err := providers.Register(p); err != nil {
			return nil, err
		}
		zerolog.Ctx(ctx).Debug().Str("provider", p.Name()).Str("backend", p.BackendID()).Strs("types", p.Types()).Msg("provider configured")
	}

	return &Runtime{Registry: reg, Providers: providers, Policy: policy}, nil
}

func (dc DefinitionConfig) definition() (*entity.Definition, error) {
	def := &entity.Definition{Type: dc.Type, KeyField: dc.Key}
	for _, f := range dc.Fields {
		def.Fields = append(def.Fields, entity.Field{Name: f.Name, Format: f.Format})
	}
	for _, rc := range dc.Relationships {
		card, err := parseCardinality(rc.Cardinality)
		if err != nil {
			return nil, errors.NewValidationError(rc.Name, fmt.Sprintf("%s: %s", dc.Type, err))
		}
		def.Relationships = append(def.Relationships, entity.Relationship{
			Name:        rc.Name,
			Target:      rc.Target,
			Cardinality: card,
			KeyField:    rc.KeyField,
			FilterField: rc.FilterField,
		})
	}
	return def, def.Validate()
}

func parseCardinality(s string) (entity.Cardinality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "one-to-one", "one":
		return entity.OneToOne, nil
	case "one-to-many", "many":
		return entity.OneToMany, nil
	}
	return entity.OneToOne, fmt.Errorf("unknown cardinality %q", s)
}

func (pc PolicyConfig) policy() (entitysync.Policy, error) {
	policy := entitysync.DefaultPolicy()
	if pc.Default != "" {
		mode, err := entitysync.ParseMode(pc.Default)
		if err != nil {
			return policy, err
		}
		policy.Default = mode
	}
	policy.DefaultDepth = pc.Depth

	for _, oc := range pc.Overrides {
		mode, err := entitysync.ParseMode(oc.Mode)
		if err != nil {
			return policy, fmt.Errorf("override for %s: %w", oc.Type, err)
		}
		policy = policy.With(entitysync.Override{Type: oc.Type, Mode: mode, Depth: oc.Depth})
	}
	return policy, nil
}

func (pc ProviderConfig) build(ctx context.Context, reg *registry.Registry, o *buildOptions) (*entitysync.Provider, error) {
	backend, err := pc.backend(ctx, reg, o)
	if err != nil {
		return nil, err
	}

	var bindings []entitysync.Binding
	for _, bc := range pc.Bindings {
		def, err := reg.Definition(bc.Type)
		if err != nil {
			return nil, err
		}
		policy := entitysync.FilterIgnore
		if bc.FilterPolicy != "" {
			if policy, err = entitysync.ParseFilterPolicy(bc.FilterPolicy); err != nil {
				return nil, err
			}
		}
		pg, err := bc.Pager.pager(pc.Backend.Kind)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, entitysync.Binding{
			Definition:   def,
			Pager:        pg,
			FilterPolicy: policy,
			Filters:      bc.Filters,
		})
	}

	return entitysync.NewProvider(pc.Name, backend, bindings...)
}

func (pc ProviderConfig) backend(ctx context.Context, reg *registry.Registry, o *buildOptions) (datastore.Backend, error) {
	bc := pc.Backend
	switch strings.ToLower(bc.Kind) {
	case "rest", "":
		t := o.transport
		if t == nil {
			topts := []transport.Option{transport.Debug(bc.Debug)}
			for k, v := range bc.Headers {
				topts = append(topts, transport.WithHeader(k, v))
			}
			t = transport.New(topts...)
		}

		opts := []rest.Option{rest.WithTransport(t)}
		for _, b := range pc.Bindings {
			route := rest.Route{Path: b.Path, Filters: b.Filters, UpdateMethod: b.UpdateMethod}
			if route.Path == "" {
				route.Path = strings.ToLower(b.Type) + "s"
			}
			for _, s := range b.Operations {
				op, ok := datastore.ParseOperation(strings.ToUpper(s))
				if !ok {
					return nil, errors.NewValidationError("operations", fmt.Sprintf("%s: unknown operation %q", b.Type, s))
				}
				route.Operations = append(route.Operations, op)
			}
			opts = append(opts, rest.WithRoute(b.Type, route))
		}
		return rest.New(bc.URL, opts...)

	case "dynamodb", "ddb":
		if bc.Table == "" {
			return nil, errors.NewValidationError("table", "dynamodb backend requires a table")
		}
		api := o.dynamo
		if api == nil {
			client, err := ddb.NewDynamoDBClient(ctx, ddb.ClientConfig{
				AccessKey: bc.AccessKey,
				SecretKey: bc.SecretKey,
				Region:    bc.Region,
				Endpoint:  bc.Endpoint,
			})
			if err != nil {
				return nil, err
			}
			api = client
		}
		return ddb.New(api, bc.Table, ddb.WithRegistry(reg)), nil
	}

	return nil, errors.NewValidationError("kind", fmt.Sprintf("unknown backend kind %q", bc.Kind))
}

func (pc PagerConfig) pager(backendKind string) (pager.Pager, error) {
	opts := []pager.Option{pager.WithMaxPageSize(pc.MaxPageSize)}
	if pc.Prefix != "" {
		opts = append(opts, pager.WithPrefix(pc.Prefix))
	}

	kind := strings.ToLower(pc.Kind)
	if kind == "" {
		kind = "odata"
		if b := strings.ToLower(backendKind); b == "dynamodb" || b == "ddb" {
			kind = "dynamodb"
		}
	}

	switch kind {
	case "odata":
		return pager.NewOData(opts...), nil
	case "offset":
		return pager.NewOffset(opts...), nil
	case "dynamodb", "ddb":
		return ddb.NewPager(opts...), nil
	}
	return nil, errors.NewValidationError("pager", fmt.Sprintf("unknown pager kind %q", pc.Kind))
}
