/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package pager

import (
	"fmt"
	"net/url"
	"strconv"
)

// DefaultLimit is the page size used by Offset when none is configured
const DefaultLimit = 50

// Offset pages through JSON arrays using limit and offset query parameters.
// A page holding fewer entities than the limit is the last one. A server that
// caps its page size below the requested limit therefore ends the walk after
// the first page; configure such a server's cap as the MaxPageSize.
type Offset struct {
	limit int
}

// NewOffset creates an Offset pager
func NewOffset(opts ...Option) *Offset {
	o := applyOptions(opts)
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = DefaultLimit
	}
	return &Offset{limit: o.MaxPageSize}
}

// Prepare sets the limit parameter on the first request
func (p *Offset) Prepare(req *Request) *Request {
	r := req.Clone()
	u, err := url.Parse(r.URL)
	if err != nil {
		return r
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(p.limit))
	u.RawQuery = q.Encode()
	r.URL = u.String()
	return r
}

// Extract reads one array page and computes the next offset
func (p *Offset) Extract(raw Raw, req *Request, prev *Page) (*Page, error) {
	page := &Page{Number: 1}
	if prev != nil {
		page.Number = prev.Number + 1
	}

	switch body := raw.Body.(type) {
	case nil:
		page.Last = true
		return page, nil
	case map[string]any:
		page.Entities = []map[string]any{body}
		page.Last = true
		return page, nil
	case []any:
		page.Entities = make([]map[string]any, 0, len(body))
		for idx, item := range body {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("offset: item %d on page %d is %T, not an object", idx, page.Number, item)
			}
			page.Entities = append(page.Entities, m)
		}
	default:
		return nil, fmt.Errorf("offset: unexpected response body %T on page %d", raw.Body, page.Number)
	}

	if len(page.Entities) < p.limit {
		page.Last = true
		return page, nil
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("offset: invalid request url: %w", err)
	}
	q := u.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	q.Set("offset", strconv.Itoa(offset+p.limit))
	u.RawQuery = q.Encode()
	page.NextURL = u.String()
	return page, nil
}
