/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package transport issues HTTP requests on behalf of backends. It owns connection
// handling; cancellation and timeouts come from the caller's context.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"

	"github.com/rs/zerolog"
	"github.com/suparena/entitysync/errors"
	"github.com/suparena/entitysync/internal/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport issues one request. Network failures and non-2xx statuses are both
// reported as *errors.TransportError; for a status failure the response is
// returned alongside the error so callers can interpret it.
type Transport interface {
	Do(ctx context.Context, method, url string, header http.Header, body []byte) (*Response, error)
}

const (
	TraceAttributeMethod string = "http-method"
	TraceAttributeURL    string = "http-url"
	TraceAttributeStatus string = "http-status"
)

var tracer = tracing.Tracer("transport")

// HTTPTransport is a Transport over net/http instrumented with OpenTelemetry
type HTTPTransport struct {
	client *http.Client
	header http.Header
	debug  bool
}

// Option configures an HTTPTransport
type Option func(*HTTPTransport)

// Debug dumps failed requests and responses to the context logger
func Debug(enabled bool) Option {
	return func(t *HTTPTransport) {
		t.debug = enabled
	}
}

// WithHeader adds a header sent with every request
func WithHeader(key, value string) Option {
	return func(t *HTTPTransport) {
		t.header.Add(key, value)
	}
}

// WithHTTPClient replaces the default instrumented client
func WithHTTPClient(client *http.Client) Option {
	return func(t *HTTPTransport) {
		t.client = client
	}
}

// New creates an HTTPTransport
func New(options ...Option) *HTTPTransport {
	t := &HTTPTransport{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		header: http.Header{},
	}

	for _, option := range options {
		option(t)
	}

	return t
}

func (t *HTTPTransport) Do(ctx context.Context, method, url string, header http.Header, body []byte) (*Response, error) {
	var err error

	ctx, span := tracer.Start(ctx, "http-request",
		trace.WithAttributes(attribute.String(TraceAttributeMethod, method)),
		trace.WithAttributes(attribute.String(TraceAttributeURL, url)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		err = errors.NewTransportError(method, url, 0, fmt.Errorf("failed to create request: %w", err))
		return nil, err
	}

	for key, values := range t.header {
		for _, val := range values {
			req.Header.Add(key, val)
		}
	}
	for key, values := range header {
		req.Header.Del(key)
		for _, val := range values {
			req.Header.Add(key, val)
		}
	}

	log := zerolog.Ctx(ctx)
	log.Debug().Str("method", method).Str("url", url).Msg("sending request")

	resp, err := t.client.Do(req)
	if err != nil {
		err = errors.NewTransportError(method, url, 0, fmt.Errorf("failed to send request: %w", err))
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		err = errors.NewTransportError(method, url, 0, fmt.Errorf("failed to read response body: %w", err))
		return nil, err
	}

	span.SetAttributes(attribute.Int(TraceAttributeStatus, resp.StatusCode))

	response := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if t.debug && resp.StatusCode != http.StatusNotFound {
			reqbytes, _ := httputil.DumpRequest(req, false)
			respbytes, _ := httputil.DumpResponse(resp, false)
			log.Error().Str("request", string(reqbytes)).Str("response", string(respbytes)).Msg("request failed")
		}

		err = errors.NewTransportError(method, url, resp.StatusCode, nil)
		return response, err
	}

	return response, nil
}
