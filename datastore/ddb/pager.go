/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/suparena/entitysync/pager"
)

// Pager follows LastEvaluatedKey cursors of the ddb backend
type Pager struct {
	limit int32
}

// NewPager creates a Pager. WithMaxPageSize sets the query Limit.
func NewPager(opts ...pager.Option) *Pager {
	var o pager.Options
	for _, opt := range opts {
		opt(&o)
	}
	return &Pager{limit: int32(o.MaxPageSize)}
}

// Prepare applies the page size to a query
func (p *Pager) Prepare(req *pager.Request) *pager.Request {
	r := req.Clone()
	in, ok := r.Data.(*Input)
	if !ok || in.Query == nil || p.limit <= 0 {
		return r
	}
	q := *in.Query
	q.Limit = aws.Int32(p.limit)
	r.Data = &Input{Query: &q}
	return r
}

// Extract reads one ddb response
func (p *Pager) Extract(raw pager.Raw, req *pager.Request, prev *pager.Page) (*pager.Page, error) {
	page := &pager.Page{Number: 1, Last: true}
	if prev != nil {
		page.Number = prev.Number + 1
	}

	switch body := raw.Body.(type) {
	case nil:
	case map[string]any:
		page.Entities = []map[string]any{body}
	case *Output:
		page.Entities = body.Items
		if len(body.LastEvaluatedKey) == 0 {
			break
		}
		in, ok := req.Data.(*Input)
		if !ok || in.Query == nil {
			return nil, fmt.Errorf("ddb: page %d has a cursor but the request is not a query", page.Number)
		}
		q := *in.Query
		q.ExclusiveStartKey = body.LastEvaluatedKey
		page.Last = false
		page.NextData = &Input{Query: &q}
	default:
		return nil, fmt.Errorf("ddb: unexpected response body %T on page %d", raw.Body, page.Number)
	}

	return page, nil
}

var _ pager.Pager = (*Pager)(nil)
