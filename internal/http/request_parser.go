// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// JSON or form bodies, list query parameters and method checks.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// MaxBodyBytes bounds JSON and form bodies.
const MaxBodyBytes = 1 << 20

var ErrBodyTooLarge = errors.New("request body too large")

// List views served by GET /api/expenses.
const (
	ViewList     = "list"
	ViewSections = "sections"
	ViewFlat     = "flat"
)

// ListParams holds the parsed query of GET /api/expenses.
type ListParams struct {
	View   string
	Limit  int
	Offset int
}

// ParseListParams reads view, limit and offset. A missing or invalid limit
// falls back to pageSize and is capped at maxPageSize; a bad offset is 0.
// Only an unknown view is an error.
func ParseListParams(query url.Values, pageSize, maxPageSize int) (ListParams, error) {
	params := ListParams{View: ViewList, Limit: pageSize}

	switch v := strings.ToLower(strings.TrimSpace(query.Get("view"))); v {
	case "", ViewList:
	case ViewSections, ViewFlat:
		params.View = v
	default:
		return ListParams{}, fmt.Errorf("unknown view %q", v)
	}

	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 {
			params.Limit = l
		}
	}
	params.Limit = min(params.Limit, maxPageSize)

	if v := strings.TrimSpace(query.Get("offset")); v != "" {
		if o, err := strconv.Atoi(v); err == nil && o > 0 {
			params.Offset = o
		}
	}

	return params, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON objects and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads at most MaxBodyBytes once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if p.err == nil && len(p.body) > MaxBodyBytes {
		p.err = ErrBodyTooLarge
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' || strings.Contains(p.contentType, "application/json") {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = fmt.Errorf("decode JSON body: %w", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Value returns the decoded value for key without coercion. JSON bodies
// yield any JSON type including nil; form bodies yield a string.
func (p *RequestBodyParser) Value(key string) (any, bool) {
	if p.jsonData != nil {
		v, ok := p.jsonData[key]
		return v, ok
	}
	if p.formData != nil && p.formData.Has(key) {
		return p.formData.Get(key), true
	}
	return nil, false
}

// OptionalInt returns nil when key is absent, null or blank, and an error
// when it is present but not an integer.
func (p *RequestBodyParser) OptionalInt(key string) (*int, error) {
	v, ok := p.Value(key)
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case float64:
		if val != math.Trunc(val) || val > math.MaxInt32 || val < math.MinInt32 {
			return nil, fmt.Errorf("%s must be an integer", key)
		}
		i := int(val)
		return &i, nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer", key)
		}
		return &i, nil
	default:
		return nil, fmt.Errorf("%s must be an integer", key)
	}
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput drops control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *ResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequireGET is a convenience function for GET-only handlers.
func RequireGET(r *http.Request) *ResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *ResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}
