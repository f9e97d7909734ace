/*
Package datastore defines the contract between the provider core and concrete backends.

A Backend knows how to turn one Call into backend requests and how to issue them:

	type Backend interface {
	    ID() string
	    Request(call *Call) (*pager.Request, error)
	    Do(ctx context.Context, call *Call, req *pager.Request) (pager.Raw, error)
	}

Paging, identity mapping and hydration are handled by the provider core; a backend
only routes operations and performs single calls.

Implementations:
  - rest: HTTP/JSON APIs, one route per entity type
  - ddb: DynamoDB single-table design with macro based index maps
  - mock: in-memory paged backend for testing
*/
package datastore
