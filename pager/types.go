/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package pager

import (
	"net/http"
)

// Request describes one backend call
type Request struct {
	// Method is the HTTP method or backend verb.
	Method string
	// URL is the absolute request URL. Empty for non-HTTP backends.
	URL string
	// Header is sent with the request and carried to following pages.
	Header http.Header
	// Data is the request body or the backend-specific request input.
	Data any
}

// Clone returns a copy whose Header can be changed independently
func (r *Request) Clone() *Request {
	c := *r
	c.Header = r.Header.Clone()
	if c.Header == nil {
		c.Header = http.Header{}
	}
	return &c
}

// Raw is one decoded backend response
type Raw struct {
	// Body is the decoded response body: a JSON value for HTTP backends or the
	// backend-specific output for others.
	Body any
	// Header holds response headers, if the backend has any.
	Header http.Header
}

// Page is the result of extracting one raw response
type Page struct {
	// Entities holds the entity payloads of this page in response order.
	Entities []map[string]any
	// Last is true when no further page exists.
	Last bool
	// NextURL, NextData and NextHeader describe the following request.
	// Empty values mean "reuse the current request's value".
	NextURL    string
	NextData   any
	NextHeader http.Header
	// Number is the 1-based page number.
	Number int
	// Prefix is continuation state carried from page to page.
	Prefix string
}

// Next builds the request for the page after p
func (p *Page) Next(current *Request) *Request {
	next := current.Clone()
	if p.NextURL != "" {
		next.URL = p.NextURL
	}
	if p.NextData != nil {
		next.Data = p.NextData
	}
	for k, v := range p.NextHeader {
		next.Header[k] = v
	}
	return next
}

// Pager extracts entities and continuation state from raw responses
type Pager interface {
	// Prepare rewrites the first request of an operation. It is called exactly
	// once per operation and must be idempotent.
	Prepare(req *Request) *Request
	// Extract returns the page contained in raw. prev is nil for the first page.
	Extract(raw Raw, req *Request, prev *Page) (*Page, error)
}

// Options configures the bundled pagers
type Options struct {
	MaxPageSize int    // Items requested per page; 0 leaves the backend default
	Prefix      string // OData metadata prefix used when the response does not say
}

// Option is a functional option for configuring a pager
type Option func(*Options)

// WithMaxPageSize sets the requested page size
func WithMaxPageSize(size int) Option {
	return func(opts *Options) {
		opts.MaxPageSize = size
	}
}

// WithPrefix sets the fallback metadata prefix
func WithPrefix(prefix string) Option {
	return func(opts *Options) {
		opts.Prefix = prefix
	}
}

func applyOptions(opts []Option) Options {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
