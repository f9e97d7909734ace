/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitysync

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/suparena/entitysync/datastore"
	"github.com/suparena/entitysync/entity"
	"github.com/suparena/entitysync/errors"
	"github.com/suparena/entitysync/internal/tracing"
	"github.com/suparena/entitysync/pager"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	TraceAttributeOperation  string = "entity-operation"
	TraceAttributeEntityType string = "entity-type"
	TraceAttributeProvider   string = "entity-provider"
	TraceAttributeCount      string = "entity-count"
)

var tracer = tracing.Tracer("provider")

// FilterPolicy decides what happens to filter keys a backend cannot apply server-side
type FilterPolicy uint8

const (
	// FilterIgnore drops unsupported keys and lists unfiltered.
	FilterIgnore FilterPolicy = iota
	// FilterFail rejects the operation before any backend call.
	FilterFail
	// FilterLocal applies unsupported keys to the fetched entities by equality.
	FilterLocal
	// FilterReturnEmpty returns no entities without calling the backend.
	FilterReturnEmpty
)

func (f FilterPolicy) String() string {
	switch f {
	case FilterIgnore:
		return "IGNORE"
	case FilterFail:
		return "FAIL"
	case FilterLocal:
		return "LOCAL"
	case FilterReturnEmpty:
		return "RETURN_EMPTY"
	}
	return fmt.Sprintf("FilterPolicy(%d)", uint8(f))
}

// ParseFilterPolicy parses the String form of a FilterPolicy, ignoring case
func ParseFilterPolicy(s string) (FilterPolicy, error) {
	for _, f := range []FilterPolicy{FilterIgnore, FilterFail, FilterLocal, FilterReturnEmpty} {
		if strings.EqualFold(f.String(), strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return FilterIgnore, fmt.Errorf("unknown filter policy %q", s)
}

// Binding attaches an entity type to a provider
type Binding struct {
	Definition   *entity.Definition
	Pager        pager.Pager
	FilterPolicy FilterPolicy
	// Filters lists filter keys applied server-side in addition to those the
	// backend reports through datastore.FilterSupport.
	Filters []string
}

// Provider maps the abstract operations on its bound entity types onto one backend
type Provider struct {
	mu       sync.RWMutex
	name     string
	backend  datastore.Backend
	bindings map[string]*Binding
}

// NewProvider creates a provider over backend
func NewProvider(name string, backend datastore.Backend, bindings ...Binding) (*Provider, error) {
	if name == "" {
		return nil, errors.NewValidationError("name", "provider name is required")
	}
	if backend == nil {
		return nil, errors.NewValidationError("backend", "provider "+name+" has no backend")
	}

	p := &Provider{
		name:     name,
		backend:  backend,
		bindings: make(map[string]*Binding),
	}
	for _, b := range bindings {
		if err := p.Bind(b); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Bind adds an entity type
func (p *Provider) Bind(b Binding) error {
	if b.Definition == nil {
		return errors.NewValidationError("definition", "binding has no definition")
	}
	if err := b.Definition.Validate(); err != nil {
		return err
	}
	if b.Pager == nil {
		return errors.NewValidationError("pager", b.Definition.Type+" binding has no pager")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.bindings[b.Definition.Type]; exists {
		return fmt.Errorf("entity type %q already bound to provider %q", b.Definition.Type, p.name)
	}
	p.bindings[b.Definition.Type] = &b
	return nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return p.name
}

// BackendID returns the identity of the backend instance
func (p *Provider) BackendID() string {
	return p.backend.ID()
}

// Types returns the bound entity types, sorted
func (p *Provider) Types() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	types := slices.Collect(maps.Keys(p.bindings))
	sort.Strings(types)
	return types
}

// Definition returns the definition of a bound entity type
func (p *Provider) Definition(entityType string) (*entity.Definition, bool) {
	b, ok := p.binding(entityType)
	if !ok {
		return nil, false
	}
	return b.Definition, true
}

func (p *Provider) binding(entityType string) (*Binding, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	b, ok := p.bindings[entityType]
	return b, ok
}

// Context starts a new session on this provider
func (p *Provider) Context(opts ...ContextOption) *Context {
	return NewContext(opts...)
}

// operation is one prepared Perform call
type operation struct {
	binding *Binding
	call    *datastore.Call
	local   map[string]any
	empty   bool
}

// Perform runs op on entityType and returns the materialized entities in
// backend order.
//
// Arguments by operation: READ and DELETE take the key; UPDATE takes the key and a
// map[string]any of fields; CREATE takes a map[string]any; READ_LIST takes an
// optional map[string]any of filters merged over the context's filters.
//
// Relationships of the returned entities follow the context's hydration policy.
// A lazily hydrated relationship loads on first access and can fail there. An
// eager fetch that fails returns a *errors.RelationshipError; when the related
// record is missing the error does not satisfy errors.IsNotFound, since the
// requested entity itself exists.
func (p *Provider) Perform(ctx context.Context, sc *Context, op datastore.Operation, entityType string, args ...any) ([]*entity.Entity, error) {
	var result []*entity.Entity
	err := p.perform(ctx, sc, op, entityType, args, func(e *entity.Entity) error {
		result = append(result, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = []*entity.Entity{}
	}
	return result, nil
}

func (p *Provider) perform(ctx context.Context, sc *Context, op datastore.Operation, entityType string, args []any, yield func(*entity.Entity) error) (err error) {
	ctx, span := tracer.Start(ctx, "perform",
		trace.WithAttributes(
			attribute.String(TraceAttributeOperation, op.String()),
			attribute.String(TraceAttributeEntityType, entityType),
			attribute.String(TraceAttributeProvider, p.name),
		),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if sc == nil {
		sc = NewContext()
	}

	o, err := p.prepare(ctx, sc, op, entityType, args)
	if err != nil {
		return operationError(op, entityType, err)
	}
	if o.empty {
		return nil
	}

	count, err := p.execute(ctx, sc, o, yield)
	span.SetAttributes(attribute.Int(TraceAttributeCount, count))
	if err != nil {
		return operationError(op, entityType, err)
	}

	if op == datastore.Read && count == 0 {
		return errors.NewNotFoundError(op.String(), entityType, o.call.ID.String())
	}
	return nil
}

// prepare validates the call and applies the filter policy. Nothing here talks
// to the backend.
func (p *Provider) prepare(ctx context.Context, sc *Context, op datastore.Operation, entityType string, args []any) (*operation, error) {
	b, ok := p.binding(entityType)
	if !ok {
		return nil, errors.NewUnsupportedOperationError(op.String(), entityType, "type is not bound to provider "+p.name)
	}

	call := &datastore.Call{Operation: op, Definition: b.Definition}
	o := &operation{binding: b, call: call}

	arg := func(i int) any {
		if i < len(args) {
			return args[i]
		}
		return nil
	}
	data := func(i int) (map[string]any, error) {
		m, ok := arg(i).(map[string]any)
		if !ok && arg(i) != nil {
			return nil, errors.NewValidationError("data", fmt.Sprintf("expected map[string]any, got %T", arg(i)))
		}
		return m, nil
	}

	var err error
	switch op {
	case datastore.Read, datastore.Delete:
		call.ID, err = keyFor(b.Definition, arg(0))
	case datastore.Update:
		if call.ID, err = keyFor(b.Definition, arg(0)); err == nil {
			call.Data, err = data(1)
		}
	case datastore.Create:
		call.Data, err = data(0)
	case datastore.ReadList:
		var extra map[string]any
		if extra, err = data(0); err == nil {
			filter := sc.Filter()
			if filter == nil {
				filter = make(map[string]any, len(extra))
			}
			maps.Copy(filter, extra)
			err = p.applyFilterPolicy(ctx, o, filter)
		}
	default:
		return nil, errors.NewUnsupportedOperationError(op.String(), entityType, "unknown operation")
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// supportedFilters returns the filter keys the backend applies for b
func (p *Provider) supportedFilters(b *Binding) map[string]bool {
	supported := make(map[string]bool, len(b.Filters))
	for _, k := range b.Filters {
		supported[k] = true
	}
	if fs, ok := p.backend.(datastore.FilterSupport); ok {
		for _, k := range fs.Filters(b.Definition.Type) {
			supported[k] = true
		}
	}
	return supported
}

func (p *Provider) splitFilter(b *Binding, filter map[string]any) (server map[string]any, unsupported []string) {
	supported := p.supportedFilters(b)
	server = make(map[string]any, len(filter))
	for k, v := range filter {
		if supported[k] {
			server[k] = v
		} else {
			unsupported = append(unsupported, k)
		}
	}
	sort.Strings(unsupported)
	return server, unsupported
}

func (p *Provider) applyFilterPolicy(ctx context.Context, o *operation, filter map[string]any) error {
	server, unsupported := p.splitFilter(o.binding, filter)
	o.call.Filter = server
	if len(unsupported) == 0 {
		return nil
	}

	log := zerolog.Ctx(ctx)
	switch o.binding.FilterPolicy {
	case FilterFail:
		return errors.NewFilterPolicyViolationError(o.call.Operation.String(), o.call.Type(), unsupported)
	case FilterReturnEmpty:
		log.Debug().Str("type", o.call.Type()).Strs("filters", unsupported).Msg("unsupported filters, returning no entities")
		o.empty = true
	case FilterLocal:
		o.local = make(map[string]any, len(unsupported))
		for _, k := range unsupported {
			o.local[k] = filter[k]
		}
	default:
		log.Debug().Str("type", o.call.Type()).Strs("filters", unsupported).Msg("ignoring unsupported filters")
	}
	return nil
}

// execute issues the backend calls of o, walking every page of a read, and
// yields each materialized entity in page order.
func (p *Provider) execute(ctx context.Context, sc *Context, o *operation, yield func(*entity.Entity) error) (int, error) {
	log := zerolog.Ctx(ctx)
	call := o.call
	reading := call.Operation == datastore.Read || call.Operation == datastore.ReadList

	req, err := p.backend.Request(call)
	if err != nil {
		return 0, err
	}
	if reading {
		req = o.binding.Pager.Prepare(req)
	}

	count := 0
	var page *pager.Page
	for {
		raw, err := p.backend.Do(ctx, call, req)
		if err != nil {
			return count, err
		}

		page, err = o.binding.Pager.Extract(raw, req, page)
		if err != nil {
			return count, err
		}

		log.Debug().
			Str("provider", p.name).
			Str("operation", call.Operation.String()).
			Str("type", call.Type()).
			Int("page", page.Number).
			Int("entities", len(page.Entities)).
			Bool("last", page.Last).
			Msg("page extracted")

		if call.Operation == datastore.Delete {
			break
		}

		payloads := page.Entities
		if len(payloads) == 0 && (call.Operation == datastore.Create || call.Operation == datastore.Update) {
			payloads = []map[string]any{submitted(call)}
		}

		for _, payload := range payloads {
			if !matchesLocal(payload, o.local) {
				continue
			}

			e, created, err := sc.store.Materialize(call.Definition, p, payload)
			if err != nil {
				return count, err
			}
			if created {
				if err := p.hydrate(ctx, sc, e, payload); err != nil {
					return count, err
				}
			}

			count++
			if err := yield(e); err != nil {
				return count, err
			}
		}

		if page.Last || !reading {
			break
		}

		next := page.Next(req)
		if sameRequest(req, next) {
			return count, fmt.Errorf("pager did not advance past page %d", page.Number)
		}
		req = next
	}

	if call.Operation == datastore.Delete {
		sc.store.Evict(entity.IdentityKey{Backend: p.backend.ID(), Type: call.Type(), ID: call.ID})
	}
	return count, nil
}

// Get reads one entity by key
func (p *Provider) Get(ctx context.Context, sc *Context, entityType string, key any) (*entity.Entity, error) {
	result, err := p.Perform(ctx, sc, datastore.Read, entityType, key)
	if err != nil {
		return nil, err
	}
	return result[0], nil
}

// List reads every entity of entityType matching the context's filters
func (p *Provider) List(ctx context.Context, sc *Context, entityType string) ([]*entity.Entity, error) {
	return p.Perform(ctx, sc, datastore.ReadList, entityType)
}

// Each calls fn for every entity of entityType matching the context's filters,
// page by page, stopping at the first error fn returns.
func (p *Provider) Each(ctx context.Context, sc *Context, entityType string, fn func(*entity.Entity) error) error {
	return p.perform(ctx, sc, datastore.ReadList, entityType, nil, fn)
}

// Create stores a new entity
func (p *Provider) Create(ctx context.Context, sc *Context, entityType string, data map[string]any) (*entity.Entity, error) {
	return p.single(p.Perform(ctx, sc, datastore.Create, entityType, data))
}

// Update changes the fields in data of the entity with key
func (p *Provider) Update(ctx context.Context, sc *Context, entityType string, key any, data map[string]any) (*entity.Entity, error) {
	return p.single(p.Perform(ctx, sc, datastore.Update, entityType, key, data))
}

// Delete removes the entity with key and evicts it from the session
func (p *Provider) Delete(ctx context.Context, sc *Context, entityType string, key any) error {
	_, err := p.Perform(ctx, sc, datastore.Delete, entityType, key)
	return err
}

func (p *Provider) single(result []*entity.Entity, err error) (*entity.Entity, error) {
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}
	return result[0], nil
}

// keyFor converts v to a key of def, applying the key field's declared format
func keyFor(def *entity.Definition, v any) (entity.Key, error) {
	if v == nil {
		return entity.NoKey, errors.NewValidationError(def.Key(), def.Type+" key is required")
	}
	if k, ok := v.(entity.Key); ok {
		v = k.Value()
	}

	scratch := entity.New(def, nil)
	if err := scratch.Set(def.Key(), v); err != nil {
		return entity.NoKey, err
	}
	if !scratch.ID().Valid() {
		return entity.NoKey, errors.NewValidationError(def.Key(), fmt.Sprintf("%v is not a valid %s key", v, def.Type))
	}
	return scratch.ID(), nil
}

// submitted is the payload of a create or update whose response had no body
func submitted(call *datastore.Call) map[string]any {
	payload := maps.Clone(call.Data)
	if payload == nil {
		payload = make(map[string]any, 1)
	}
	if call.ID.Valid() {
		payload[call.Definition.Key()] = call.ID.Value()
	}
	return payload
}

func matchesLocal(payload, filter map[string]any) bool {
	for k, want := range filter {
		if fmt.Sprint(payload[k]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func sameRequest(a, b *pager.Request) bool {
	return a.URL == b.URL && reflect.DeepEqual(a.Data, b.Data) && reflect.DeepEqual(a.Header, b.Header)
}

// operationError names the operation and type unless err already does
func operationError(op datastore.Operation, entityType string, err error) error {
	if errors.IsNotFound(err) || errors.IsUnsupportedOperation(err) || errors.IsFilterPolicyViolation(err) {
		return err
	}
	return fmt.Errorf("%s %s: %w", op, entityType, err)
}
