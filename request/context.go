// Copyright 2025 The Armature Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package request holds the per-request exchange context threaded through
// parameter extraction, dependency resolution, and handler invocation.
//
// A Context is bound to a single HTTP request and must only be accessed by
// the goroutine handling that request. Do not retain references to it
// beyond the handler lifetime.
package request

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// Context is the request/response exchange handed to handlers and
// collaborators. Besides the raw request and response writer it carries
// the captured path parameters, the matched route, and the slots external
// collaborators (authentication, sessions, authorization) populate before
// the handler runs.
type Context struct {
	Request  *http.Request
	Response http.ResponseWriter

	// Collaborator slots. The dispatcher never writes these itself; they
	// are filled by middleware or left empty.
	Principal       any            // authenticated principal, nil when anonymous
	Credential      any            // raw credential presented by the client
	IdentityUser    any            // identity-provider user record
	IdentityToken   any            // identity-provider token
	Session         any            // active session handle
	AntiForgery     string         // anti-forgery token
	AuthzResource   any            // authorization-filtered resource
	AuthzAttributes any            // authorization-filtered attributes

	params        map[string]string
	sessionData   map[string]any
	correlationID string
	route         RouteInfo
	body          []byte
	bodyRead      bool
	bodyErr       error
	written       bool
	status        int
	cacheStatus   string
}

// RouteInfo is the view of the matched route the context exposes to
// extraction rules. The dispatcher attaches the compiled route here so
// later steps can inspect route-level flags without importing the
// compiler.
type RouteInfo interface {
	// Identity returns the route identity key, e.g. "UserController.show".
	Identity() string

	// AuthMandatory reports whether the route requires an authenticated
	// principal.
	AuthMandatory() bool
}

// New creates a Context for one inbound request. The correlation ID is
// taken from the X-Correlation-ID or X-Request-ID header when present, or
// generated.
func New(w http.ResponseWriter, r *http.Request, params map[string]string) *Context {
	cid := r.Header.Get("X-Correlation-ID")
	if cid == "" {
		cid = r.Header.Get("X-Request-ID")
	}
	if cid == "" {
		cid = uuid.NewString()
	}

	return &Context{
		Request:       r,
		Response:      w,
		params:        params,
		correlationID: cid,
	}
}

// Context returns the request's context, which also serves as the
// cancellation signal handed to handlers that ask for one.
func (c *Context) Context() context.Context {
	return c.Request.Context()
}

// CorrelationID returns the request correlation identifier.
func (c *Context) CorrelationID() string {
	return c.correlationID
}

// SetRoute attaches the matched route. Called by the dispatcher before any
// extraction step runs.
func (c *Context) SetRoute(info RouteInfo) {
	c.route = info
}

// Route returns the matched route, or nil before dispatch.
func (c *Context) Route() RouteInfo {
	return c.route
}

// SetCacheStatus records the cache indicator for this request ("hit",
// "miss", or empty for uncached routes). The dispatcher also mirrors it to
// the X-Cache response header at serialization time.
func (c *Context) SetCacheStatus(status string) {
	c.cacheStatus = status
}

// CacheStatus returns the cache indicator for this request.
func (c *Context) CacheStatus() string {
	return c.cacheStatus
}

// Param returns a captured path parameter by name, or "".
func (c *Context) Param(name string) string {
	return c.params[name]
}

// Params returns a copy of the full path-parameter capture map.
func (c *Context) Params() map[string]string {
	out := make(map[string]string, len(c.params))
	for k, v := range c.params {
		out[k] = v
	}

	return out
}

// Query returns the first query value for name, or "".
func (c *Context) Query(name string) string {
	return c.Request.URL.Query().Get(name)
}

// QueryMap returns all query parameters, first value per key.
func (c *Context) QueryMap() map[string]string {
	values := c.Request.URL.Query()
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}

	return out
}

// Header returns the named request header using canonical lookup, or "".
func (c *Context) Header(name string) string {
	return c.Request.Header.Get(name)
}

// HeaderMap returns all request headers, first value per canonical key.
func (c *Context) HeaderMap() map[string]string {
	out := make(map[string]string, len(c.Request.Header))
	for k, v := range c.Request.Header {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}

	return out
}

// Cookie returns the named cookie value parsed from the Cookie header,
// or "".
func (c *Context) Cookie(name string) string {
	ck, err := c.Request.Cookie(name)
	if err != nil {
		return ""
	}

	return ck.Value
}

// CookieMap returns all cookies as a name to value map.
func (c *Context) CookieMap() map[string]string {
	cookies := c.Request.Cookies()
	out := make(map[string]string, len(cookies))
	for _, ck := range cookies {
		out[ck.Name] = ck.Value
	}

	return out
}

// Body reads and caches the full request payload. Subsequent calls return
// the cached bytes, so body extraction and body hashing can both run.
func (c *Context) Body() ([]byte, error) {
	if c.bodyRead {
		return c.body, c.bodyErr
	}
	c.bodyRead = true

	if c.Request.Body == nil {
		return nil, nil
	}
	defer c.Request.Body.Close()

	c.body, c.bodyErr = io.ReadAll(c.Request.Body)

	return c.body, c.bodyErr
}

// SessionDatum returns a named value from the session-scoped data map.
func (c *Context) SessionDatum(key string) any {
	if c.sessionData == nil {
		return nil
	}

	return c.sessionData[key]
}

// SetSessionDatum stores a named session-scoped value. Used by session
// middleware; handlers read it through a session-datum parameter.
func (c *Context) SetSessionDatum(key string, value any) {
	if c.sessionData == nil {
		c.sessionData = make(map[string]any)
	}
	c.sessionData[key] = value
}

// Written reports whether a response has been committed.
func (c *Context) Written() bool {
	return c.written
}

// Status returns the committed response status, zero before commitment.
func (c *Context) Status() int {
	return c.status
}

// WriteJSON writes a JSON response with the given status. It is the single
// commitment point helper used by the default serializer and error
// handler; writing twice is a no-op on the second call.
func (c *Context) WriteJSON(status int, value any) error {
	return c.WriteBody(status, "application/json; charset=utf-8", value)
}

// WriteBody writes a JSON-encoded response under an explicit content
// type, for formatters that use a media type other than plain JSON.
func (c *Context) WriteBody(status int, contentType string, value any) error {
	if c.written {
		return nil
	}
	c.written = true
	c.status = status

	c.Response.Header().Set("Content-Type", contentType)
	if c.cacheStatus != "" {
		c.Response.Header().Set("X-Cache", c.cacheStatus)
	}
	c.Response.WriteHeader(status)

	return json.NewEncoder(c.Response).Encode(value)
}

// WriteRawJSON writes a pre-encoded JSON payload with the given status.
// Used for cached responses, which are stored already serialized.
func (c *Context) WriteRawJSON(status int, payload []byte) error {
	if c.written {
		return nil
	}
	c.written = true
	c.status = status

	c.Response.Header().Set("Content-Type", "application/json; charset=utf-8")
	if c.cacheStatus != "" {
		c.Response.Header().Set("X-Cache", c.cacheStatus)
	}
	c.Response.WriteHeader(status)
	_, err := c.Response.Write(payload)

	return err
}

// NoContent commits an empty response with the given status.
func (c *Context) NoContent(status int) {
	if c.written {
		return
	}
	c.written = true
	c.status = status

	if c.cacheStatus != "" {
		c.Response.Header().Set("X-Cache", c.cacheStatus)
	}
	c.Response.WriteHeader(status)
}
