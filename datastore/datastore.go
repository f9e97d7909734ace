/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/entitysync/entity"
	"github.com/suparena/entitysync/pager"
)

// Operation is one of the abstract CRUD operations a provider performs
type Operation int

const (
	Create Operation = iota + 1
	Read
	Update
	Delete
	ReadList
)

func (o Operation) String() string {
	switch o {
	case Create:
		return "CREATE"
	case Read:
		return "READ"
	case Update:
		return "UPDATE"
	case Delete:
		return "DELETE"
	case ReadList:
		return "READ_LIST"
	}
	return "UNKNOWN"
}

// Operations lists every valid operation
var Operations = []Operation{Create, Read, Update, Delete, ReadList}

// ParseOperation converts the String form back to an Operation
func ParseOperation(s string) (Operation, bool) {
	for _, op := range Operations {
		if op.String() == s {
			return op, true
		}
	}
	return 0, false
}

// Call is one operation routed to a backend
type Call struct {
	Operation  Operation
	Definition *entity.Definition
	// ID addresses the record for Read, Update and Delete.
	ID entity.Key
	// Data is the payload for Create and Update.
	Data map[string]any
	// Filter holds the criteria the backend applies server-side for ReadList.
	Filter map[string]any
}

// Type returns the entity type the call is for
func (c *Call) Type() string {
	if c.Definition == nil {
		return ""
	}
	return c.Definition.Type
}

// Backend performs single calls against one backend instance
type Backend interface {
	// ID returns the backend identity, for example a base URL. Entities from
	// backends with different IDs are never conflated.
	ID() string

	// Request builds the first request for call. A backend that cannot route the
	// call returns an UnsupportedOperationError.
	Request(call *Call) (*pager.Request, error)

	// Do issues one request and returns the decoded response. A response that
	// means "no such record" is reported as an EntityNotFoundError.
	Do(ctx context.Context, call *Call, req *pager.Request) (pager.Raw, error)
}

// FilterSupport is implemented by backends that know which filter keys they can
// apply server-side for an entity type.
type FilterSupport interface {
	Filters(entityType string) []string
}
