/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package pager

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPrefix is the OData 4 metadata prefix
const DefaultPrefix = "@odata."

// LegacyPrefix is the metadata prefix used by OData 3 and earlier
const LegacyPrefix = "odata."

// OData pages through OData collection responses
type OData struct {
	opts Options
}

// NewOData creates an OData pager
func NewOData(opts ...Option) *OData {
	return &OData{opts: applyOptions(opts)}
}

// Prepare asks the service for the configured maximum page size
func (p *OData) Prepare(req *Request) *Request {
	r := req.Clone()
	if p.opts.MaxPageSize <= 0 {
		return r
	}

	for _, v := range r.Header.Values("Prefer") {
		if strings.Contains(v, "odata.maxpagesize") {
			return r
		}
	}
	r.Header.Add("Prefer", fmt.Sprintf("odata.maxpagesize=%d", p.opts.MaxPageSize))
	return r
}

// Extract reads the "value" collection and the next link of an OData response.
// A response without "value" is a single entity.
func (p *OData) Extract(raw Raw, req *Request, prev *Page) (*Page, error) {
	page := &Page{Number: 1, Prefix: p.prefix(raw, prev)}
	if prev != nil {
		page.Number = prev.Number + 1
	}

	body, ok := raw.Body.(map[string]any)
	if !ok {
		if raw.Body == nil {
			page.Last = true
			return page, nil
		}
		return nil, fmt.Errorf("odata: unexpected response body %T on page %d", raw.Body, page.Number)
	}

	values, ok := body["value"]
	if !ok {
		page.Entities = []map[string]any{stripAnnotations(body, page.Prefix)}
		page.Last = true
		return page, nil
	}

	items, ok := values.([]any)
	if !ok {
		return nil, fmt.Errorf("odata: \"value\" is %T, not an array", values)
	}

	page.Entities = make([]map[string]any, 0, len(items))
	for idx, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("odata: item %d on page %d is %T, not an object", idx, page.Number, item)
		}
		page.Entities = append(page.Entities, stripAnnotations(m, page.Prefix))
	}

	next, _ := body[page.Prefix+"nextLink"].(string)
	if next == "" {
		page.Last = true
		return page, nil
	}

	nextURL, err := resolveLink(req.URL, next)
	if err != nil {
		return nil, fmt.Errorf("odata: invalid next link %q: %w", next, err)
	}
	page.NextURL = nextURL
	return page, nil
}

// prefix picks the metadata prefix: the OData-Version response header decides,
// otherwise the previous page's prefix, the configured one, or DefaultPrefix.
func (p *OData) prefix(raw Raw, prev *Page) string {
	if v := raw.Header.Get("OData-Version"); v != "" {
		major, err := strconv.Atoi(strings.SplitN(strings.TrimSpace(v), ".", 2)[0])
		if err == nil && major < 4 {
			return LegacyPrefix
		}
		return DefaultPrefix
	}
	if prev != nil && prev.Prefix != "" {
		return prev.Prefix
	}
	if p.opts.Prefix != "" {
		return p.opts.Prefix
	}
	return DefaultPrefix
}

func stripAnnotations(m map[string]any, prefix string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if strings.HasPrefix(k, prefix) {
			continue
		}
		out[k] = v
	}
	return out
}

func resolveLink(base, link string) (string, error) {
	ref, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	if base == "" || ref.IsAbs() {
		return ref.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(ref).String(), nil
}
