/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock

import (
	"fmt"

	"github.com/suparena/entitysync/pager"
)

// Pager reads the responses of Backend
type Pager struct{}

// NewPager creates a Pager for the mock backend
func NewPager() *Pager {
	return &Pager{}
}

func (p *Pager) Prepare(req *pager.Request) *pager.Request {
	return req.Clone()
}

func (p *Pager) Extract(raw pager.Raw, req *pager.Request, prev *pager.Page) (*pager.Page, error) {
	page := &pager.Page{Number: 1, Last: true}
	if prev != nil {
		page.Number = prev.Number + 1
	}

	switch body := raw.Body.(type) {
	case nil:
	case map[string]any:
		page.Entities = []map[string]any{body}
	case *Result:
		page.Entities = body.Items
		if body.More {
			page.Last = false
			page.NextData = body.Next
		}
	default:
		return nil, fmt.Errorf("mock: unexpected response body %T", raw.Body)
	}
	return page, nil
}
