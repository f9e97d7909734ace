/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitysync

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stoewer/go-strcase"
	"github.com/suparena/entitysync/datastore"
	"github.com/suparena/entitysync/entity"
	"github.com/suparena/entitysync/errors"
)

// hydrate populates the relationships of a newly materialized entity according
// to the context's policy. Relationships are handled in declaration order and
// eager fetches recurse depth-first before the next relationship is looked at.
func (p *Provider) hydrate(ctx context.Context, sc *Context, e *entity.Entity, payload map[string]any) error {
	depth := sc.depth + 1
	sub := sc.at(depth)

	for _, rel := range e.Definition().Relationships {
		mode := sc.policy.Mode(rel.Target, depth)

		zerolog.Ctx(ctx).Debug().
			Str("type", e.Type()).
			Str("relationship", rel.Name).
			Int("depth", depth).
			Stringer("mode", mode).
			Msg("hydrating relationship")

		if mode == Suppress {
			e.Unset(rel.Name)
			continue
		}

		if v, ok := payload[rel.Name]; ok && v != nil {
			embedded, err := p.embed(ctx, sub, e, rel, v)
			if err != nil {
				return errors.NewRelationshipError(e.Type(), e.ID().String(), rel.Name, err)
			}
			if embedded {
				continue
			}
		}

		var err error
		if mode == Eager {
			var related []*entity.Entity
			if related, err = p.related(ctx, sub, e, rel); err == nil {
				err = assign(e, rel, related)
			}
		} else {
			err = p.deferRelationship(sub, e, rel)
		}
		if err != nil {
			return errors.NewRelationshipError(e.Type(), e.ID().String(), rel.Name, err)
		}
	}
	return nil
}

// embed materializes related entities that arrived inside the owner's payload.
// It reports false when v does not have the shape of the relationship.
func (p *Provider) embed(ctx context.Context, sc *Context, owner *entity.Entity, rel entity.Relationship, v any) (bool, error) {
	target, ok := p.binding(rel.Target)
	if !ok {
		return false, nil
	}

	var payloads []map[string]any
	switch tv := v.(type) {
	case map[string]any:
		if rel.Cardinality != entity.OneToOne {
			return false, nil
		}
		payloads = []map[string]any{tv}
	case []any:
		if rel.Cardinality != entity.OneToMany {
			return false, nil
		}
		for _, item := range tv {
			m, ok := item.(map[string]any)
			if !ok {
				return false, nil
			}
			payloads = append(payloads, m)
		}
	default:
		return false, nil
	}

	related := make([]*entity.Entity, 0, len(payloads))
	for _, payload := range payloads {
		e, created, err := sc.store.Materialize(target.Definition, p, payload)
		if err != nil {
			return false, err
		}
		if created {
			if err := p.hydrate(ctx, sc, e, payload); err != nil {
				return false, err
			}
		}
		related = append(related, e)
	}
	return true, assign(owner, rel, related)
}

// related fetches the targets of rel through this provider on sc. A one-to-one
// target already in the identity store is returned without a backend call.
func (p *Provider) related(ctx context.Context, sc *Context, owner *entity.Entity, rel entity.Relationship) ([]*entity.Entity, error) {
	target, ok := p.binding(rel.Target)
	if !ok {
		return nil, errors.NewUnsupportedOperationError(datastore.Read.String(), rel.Target, "relationship target is not bound to provider "+p.name)
	}

	var related []*entity.Entity
	collect := func(e *entity.Entity) error {
		related = append(related, e)
		return nil
	}

	if rel.Cardinality == entity.OneToOne {
		key, ok := relatedKey(owner, rel, target.Definition)
		if !ok {
			return nil, nil
		}
		if e, found := sc.store.Lookup(entity.IdentityKey{Backend: p.backend.ID(), Type: rel.Target, ID: key}); found {
			return []*entity.Entity{e}, nil
		}

		o := &operation{
			binding: target,
			call:    &datastore.Call{Operation: datastore.Read, Definition: target.Definition, ID: key},
		}
		n, err := p.execute(ctx, sc, o, collect)
		if err != nil {
			return nil, operationError(datastore.Read, rel.Target, err)
		}
		if n == 0 {
			return nil, errors.NewNotFoundError(datastore.Read.String(), rel.Target, key.String())
		}
		return related, nil
	}

	if !owner.ID().Valid() {
		return []*entity.Entity{}, nil
	}

	// the relationship key is always honoured: keys the backend cannot apply are
	// matched locally whatever the binding's filter policy says
	filter := map[string]any{filterField(owner, rel): owner.ID().Value()}
	server, unsupported := p.splitFilter(target, filter)
	o := &operation{
		binding: target,
		call:    &datastore.Call{Operation: datastore.ReadList, Definition: target.Definition, Filter: server},
	}
	if len(unsupported) > 0 {
		o.local = filter
	}

	if _, err := p.execute(ctx, sc, o, collect); err != nil {
		return nil, operationError(datastore.ReadList, rel.Target, err)
	}
	if related == nil {
		related = []*entity.Entity{}
	}
	return related, nil
}

// deferRelationship installs a placeholder that fetches rel on first access
func (p *Provider) deferRelationship(sc *Context, owner *entity.Entity, rel entity.Relationship) error {
	resolve := func(ctx context.Context) ([]*entity.Entity, error) {
		return p.related(ctx, sc, owner, rel)
	}

	if rel.Cardinality == entity.OneToMany {
		return owner.Defer(rel.Name, entity.NewDeferredRelationship(rel.Target, resolve))
	}

	var key entity.Key
	if target, ok := p.binding(rel.Target); ok {
		if key, ok = relatedKey(owner, rel, target.Definition); !ok {
			return owner.SetOne(rel.Name, nil)
		}
	}
	return owner.Defer(rel.Name, entity.NewDeferredEntity(rel.Target, key, resolve))
}

func assign(owner *entity.Entity, rel entity.Relationship, related []*entity.Entity) error {
	if rel.Cardinality == entity.OneToMany {
		return owner.SetMany(rel.Name, related)
	}
	var one *entity.Entity
	if len(related) > 0 {
		one = related[0]
	}
	return owner.SetOne(rel.Name, one)
}

// relatedKey reads the key of a one-to-one target from the owner's fields
func relatedKey(owner *entity.Entity, rel entity.Relationship, target *entity.Definition) (entity.Key, bool) {
	v, ok := owner.Get(rel.IDField())
	if !ok || v == nil {
		return entity.NoKey, false
	}
	key, err := keyFor(target, v)
	if err != nil {
		return entity.NoKey, false
	}
	return key, true
}

// filterField is the target field holding the owner's key, "<ownerType>Id" by default
func filterField(owner *entity.Entity, rel entity.Relationship) string {
	if rel.FilterField != "" {
		return rel.FilterField
	}
	return strcase.LowerCamelCase(owner.Type()) + "Id"
}
