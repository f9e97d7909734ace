/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package rest implements a datastore backend for JSON-over-HTTP services.
//
// Each entity type is routed to a collection path. Lists are read with GET on the
// collection, single records with GET on <path>/<id>, creates with POST on the
// collection, updates with PUT and deletes with DELETE on the record path.
// Server-side filters are sent as query parameters.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strings"

	"github.com/suparena/entitysync/datastore"
	"github.com/suparena/entitysync/entity"
	"github.com/suparena/entitysync/errors"
	"github.com/suparena/entitysync/pager"
	"github.com/suparena/entitysync/transport"
)

// Route maps an entity type onto the service
type Route struct {
	// Path is the collection path relative to the base URL, for example "/users".
	Path string
	// Operations lists the operations the service supports. Empty means all.
	Operations []datastore.Operation
	// Filters lists the query parameters the service accepts on the collection.
	Filters []string
	// UpdateMethod overrides PUT for updates.
	UpdateMethod string
}

func (r Route) supports(op datastore.Operation) bool {
	return len(r.Operations) == 0 || slices.Contains(r.Operations, op)
}

// Backend talks to one REST service
type Backend struct {
	baseURL   string
	transport transport.Transport
	routes    map[string]Route
	header    http.Header
}

// Option configures a Backend
type Option func(*Backend)

// WithRoute routes an entity type to a collection
func WithRoute(entityType string, route Route) Option {
	return func(b *Backend) {
		b.routes[entityType] = route
	}
}

// WithTransport replaces the default HTTP transport
func WithTransport(t transport.Transport) Option {
	return func(b *Backend) {
		b.transport = t
	}
}

// WithHeader adds a header to every first request. Pagers may change it.
func WithHeader(key, value string) Option {
	return func(b *Backend) {
		b.header.Add(key, value)
	}
}

// New creates a Backend for the service at baseURL
func New(baseURL string, opts ...Option) (*Backend, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.NewValidationError("baseURL", fmt.Sprintf("%q is not an absolute URL", baseURL))
	}

	b := &Backend{
		baseURL: strings.TrimSuffix(u.String(), "/"),
		routes:  make(map[string]Route),
		header:  http.Header{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.transport == nil {
		b.transport = transport.New()
	}

	return b, nil
}

// ID returns the base URL
func (b *Backend) ID() string {
	return b.baseURL
}

// Filters returns the query parameters the collection of entityType accepts
func (b *Backend) Filters(entityType string) []string {
	return b.routes[entityType].Filters
}

// Request builds the first request for call
func (b *Backend) Request(call *datastore.Call) (*pager.Request, error) {
	route, ok := b.routes[call.Type()]
	if !ok {
		return nil, errors.NewUnsupportedOperationError(call.Operation.String(), call.Type(), "no route")
	}
	if !route.supports(call.Operation) {
		return nil, errors.NewUnsupportedOperationError(call.Operation.String(), call.Type(), "not offered by "+route.Path)
	}

	req := &pager.Request{
		URL:    b.baseURL + "/" + strings.TrimPrefix(route.Path, "/"),
		Header: b.header.Clone(),
	}
	if req.Header == nil {
		req.Header = http.Header{}
	}
	req.Header.Set("Accept", "application/json")

	switch call.Operation {
	case datastore.ReadList:
		req.Method = http.MethodGet
		if q := query(call.Filter); q != "" {
			req.URL += "?" + q
		}
		return req, nil

	case datastore.Create:
		req.Method = http.MethodPost
		req.Data = call.Data
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	if !call.ID.Valid() {
		return nil, errors.NewValidationError(call.Definition.Key(), fmt.Sprintf("%s %s requires a key", call.Operation, call.Type()))
	}
	req.URL += "/" + url.PathEscape(call.ID.String())

	switch call.Operation {
	case datastore.Read:
		req.Method = http.MethodGet
	case datastore.Update:
		req.Method = http.MethodPut
		if route.UpdateMethod != "" {
			req.Method = route.UpdateMethod
		}
		req.Data = call.Data
		req.Header.Set("Content-Type", "application/json")
	case datastore.Delete:
		req.Method = http.MethodDelete
	default:
		return nil, errors.NewUnsupportedOperationError(call.Operation.String(), call.Type(), "unknown operation")
	}

	return req, nil
}

// Do sends req and decodes the JSON response. A 404 on a keyed operation is
// reported as EntityNotFound; other failures are returned as transport errors.
func (b *Backend) Do(ctx context.Context, call *datastore.Call, req *pager.Request) (pager.Raw, error) {
	var body []byte
	if req.Data != nil {
		var err error
		body, err = json.Marshal(req.Data)
		if err != nil {
			return pager.Raw{}, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	resp, err := b.transport.Do(ctx, req.Method, req.URL, req.Header, body)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound && call.Operation != datastore.ReadList && call.Operation != datastore.Create {
			return pager.Raw{}, errors.NewNotFoundError(call.Operation.String(), call.Type(), call.ID.String())
		}
		return pager.Raw{}, err
	}

	raw := pager.Raw{Header: resp.Header}
	if len(resp.Body) == 0 {
		return raw, nil
	}

	if err := json.Unmarshal(resp.Body, &raw.Body); err != nil {
		return pager.Raw{}, fmt.Errorf("failed to decode response from %s: %w", req.URL, err)
	}

	return raw, nil
}

func query(filter map[string]any) string {
	if len(filter) == 0 {
		return ""
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		values.Set(k, fmt.Sprint(filter[k]))
	}
	return values.Encode()
}
