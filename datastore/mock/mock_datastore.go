/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory datastore backend for testing
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/suparena/entitysync/datastore"
	"github.com/suparena/entitysync/entity"
	"github.com/suparena/entitysync/errors"
	"github.com/suparena/entitysync/pager"
)

// Result is the body of a ReadList response
type Result struct {
	Items []map[string]any
	// Next is the offset of the following page, valid when More is set.
	Next int
	More bool
}

// Backend is an in-memory implementation of datastore.Backend. Records are
// kept per entity type in insertion order and lists are served in pages.
type Backend struct {
	mu          sync.RWMutex
	id          string
	pageSize    int
	data        map[string]map[string]map[string]any
	order       map[string][]string
	nextID      map[string]int64
	filters     map[string][]string
	unsupported map[string][]datastore.Operation
	errs        map[datastore.Operation]error
	calls       []datastore.Call
}

// New creates a new mock Backend
func New(id string) *Backend {
	return &Backend{
		id:          id,
		data:        make(map[string]map[string]map[string]any),
		order:       make(map[string][]string),
		nextID:      make(map[string]int64),
		filters:     make(map[string][]string),
		unsupported: make(map[string][]datastore.Operation),
		errs:        make(map[datastore.Operation]error),
	}
}

// WithPageSize splits list results into pages of size n
func (m *Backend) WithPageSize(n int) *Backend {
	m.pageSize = n
	return m
}

// WithFilters declares the filter keys applied server-side for entityType
func (m *Backend) WithFilters(entityType string, keys ...string) *Backend {
	m.filters[entityType] = keys
	return m
}

// WithUnsupported makes the backend refuse ops for entityType
func (m *Backend) WithUnsupported(entityType string, ops ...datastore.Operation) *Backend {
	m.unsupported[entityType] = append(m.unsupported[entityType], ops...)
	return m
}

// WithError makes every call of op fail with err
func (m *Backend) WithError(op datastore.Operation, err error) *Backend {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, op)
	} else {
		m.errs[op] = err
	}
	return m
}

// ID returns the backend identity
func (m *Backend) ID() string {
	return m.id
}

// Filters returns the server-side filter keys of entityType
func (m *Backend) Filters(entityType string) []string {
	return m.filters[entityType]
}

// Request builds the first request for call
func (m *Backend) Request(call *datastore.Call) (*pager.Request, error) {
	for _, op := range m.unsupported[call.Type()] {
		if op == call.Operation {
			return nil, errors.NewUnsupportedOperationError(op.String(), call.Type(), "disabled in mock")
		}
	}

	req := &pager.Request{
		Method: call.Operation.String(),
		URL:    fmt.Sprintf("mock://%s/%s", m.id, call.Type()),
	}
	if call.Operation == datastore.ReadList {
		req.Data = 0
	}
	return req, nil
}

// Do serves one call from memory
func (m *Backend) Do(ctx context.Context, call *datastore.Call, req *pager.Request) (pager.Raw, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, *call)
	if err := m.errs[call.Operation]; err != nil {
		return pager.Raw{}, err
	}

	if err := ctx.Err(); err != nil {
		return pager.Raw{}, err
	}

	t := call.Type()
	keyField := call.Definition.Key()

	switch call.Operation {
	case datastore.Read:
		rec, ok := m.data[t][call.ID.String()]
		if !ok {
			return pager.Raw{}, errors.NewNotFoundError(call.Operation.String(), t, call.ID.String())
		}
		return pager.Raw{Body: copyRecord(rec)}, nil

	case datastore.ReadList:
		offset, _ := req.Data.(int)
		return pager.Raw{Body: m.list(t, call.Filter, offset)}, nil

	case datastore.Create:
		rec := copyRecord(call.Data)
		key := entity.KeyOf(rec[keyField])
		if !key.Valid() {
			m.nextID[t]++
			key = entity.IntKey(m.nextID[t])
			rec[keyField] = key.Value()
		}
		m.put(t, key.String(), rec)
		return pager.Raw{Body: copyRecord(rec)}, nil

	case datastore.Update:
		rec, ok := m.data[t][call.ID.String()]
		if !ok {
			return pager.Raw{}, errors.NewNotFoundError(call.Operation.String(), t, call.ID.String())
		}
		for k, v := range call.Data {
			rec[k] = v
		}
		return pager.Raw{Body: copyRecord(rec)}, nil

	case datastore.Delete:
		if _, ok := m.data[t][call.ID.String()]; !ok {
			return pager.Raw{}, errors.NewNotFoundError(call.Operation.String(), t, call.ID.String())
		}
		delete(m.data[t], call.ID.String())
		order := m.order[t][:0]
		for _, k := range m.order[t] {
			if k != call.ID.String() {
				order = append(order, k)
			}
		}
		m.order[t] = order
		return pager.Raw{}, nil
	}

	return pager.Raw{}, errors.NewUnsupportedOperationError(call.Operation.String(), t, "unknown operation")
}

func (m *Backend) list(entityType string, filter map[string]any, offset int) *Result {
	var matched []map[string]any
	for _, k := range m.order[entityType] {
		rec := m.data[entityType][k]
		if matches(rec, filter) {
			matched = append(matched, rec)
		}
	}

	end := len(matched)
	if m.pageSize > 0 && offset+m.pageSize < end {
		end = offset + m.pageSize
	}
	if offset > len(matched) {
		offset = len(matched)
	}

	res := &Result{Items: make([]map[string]any, 0, end-offset)}
	for _, rec := range matched[offset:end] {
		res.Items = append(res.Items, copyRecord(rec))
	}
	if end < len(matched) {
		res.More = true
		res.Next = end
	}
	return res
}

func (m *Backend) put(entityType, key string, rec map[string]any) {
	if m.data[entityType] == nil {
		m.data[entityType] = make(map[string]map[string]any)
	}
	if _, exists := m.data[entityType][key]; !exists {
		m.order[entityType] = append(m.order[entityType], key)
	}
	m.data[entityType][key] = rec
}

func matches(rec, filter map[string]any) bool {
	for k, want := range filter {
		if fmt.Sprint(rec[k]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func copyRecord(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// Helper methods for testing

// Seed stores records of def directly, bypassing call counting
func (m *Backend) Seed(def *entity.Definition, records ...map[string]any) *Backend {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range records {
		key := entity.KeyOf(rec[def.Key()])
		m.put(def.Type, key.String(), copyRecord(rec))
		if key.IsInt() {
			if i, _ := key.Value().(int64); i > m.nextID[def.Type] {
				m.nextID[def.Type] = i
			}
		}
	}
	return m
}

// Calls returns the calls made so far
func (m *Backend) Calls() []datastore.Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]datastore.Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of calls of op for entityType. An empty type counts all types.
func (m *Backend) CallCount(op datastore.Operation, entityType string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.calls {
		if c.Operation == op && (entityType == "" || c.Type() == entityType) {
			n++
		}
	}
	return n
}

// Count returns the number of stored records of entityType
func (m *Backend) Count(entityType string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data[entityType])
}

// ResetCalls forgets recorded calls
func (m *Backend) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Types returns the entity types holding records, sorted
func (m *Backend) Types() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	types := make([]string, 0, len(m.data))
	for t := range m.data {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
