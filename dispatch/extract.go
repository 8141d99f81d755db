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

package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/armature-dev/armature/metadata"
	"github.com/armature-dev/armature/request"
)

// extract produces the raw value for one declared parameter, then runs
// its validation schema when present. The returned value is the possibly
// coerced one.
func extract(c *request.Context, route string, p metadata.ParameterDefinition) (any, error) {
	raw, present, err := rawValue(c, route, p)
	if err != nil {
		return nil, err
	}
	if !present {
		if p.Required {
			return nil, &MissingParameterError{Route: route, Index: p.Index, Name: p.Name}
		}

		// Absent optional values skip validation.
		return raw, nil
	}

	if p.Schema != nil {
		coerced, verr := p.Schema.Validate(c.Context(), raw)
		if verr != nil {
			return nil, verr
		}

		return coerced, nil
	}

	return raw, nil
}

// rawValue applies the extraction rule for the parameter's source kind.
// The second return reports presence, driving the required-flag check.
func rawValue(c *request.Context, route string, p metadata.ParameterDefinition) (any, bool, error) {
	switch p.Source {
	case metadata.SourceBody:
		return bodyValue(c, route, p)

	case metadata.SourceQuery:
		v := c.Query(p.Name)

		return v, v != "", nil

	case metadata.SourceQueryMap:
		return c.QueryMap(), true, nil

	case metadata.SourcePathParam:
		v := c.Param(p.Name)

		return v, v != "", nil

	case metadata.SourcePathParamMap:
		return c.Params(), true, nil

	case metadata.SourceHeader:
		v := c.Header(p.Name)

		return v, v != "", nil

	case metadata.SourceHeaderMap:
		return c.HeaderMap(), true, nil

	case metadata.SourceCookie:
		v := c.Cookie(p.Name)

		return v, v != "", nil

	case metadata.SourceCookieMap:
		return c.CookieMap(), true, nil

	case metadata.SourceRequest:
		return c.Request, true, nil

	case metadata.SourceContext:
		return c, true, nil

	case metadata.SourcePrincipal:
		if c.Principal == nil {
			if info := c.Route(); info != nil && info.AuthMandatory() {
				return nil, false, &AuthenticationRequiredError{Route: route}
			}

			return nil, false, nil
		}

		return c.Principal, true, nil

	case metadata.SourceCredential:
		return c.Credential, c.Credential != nil, nil

	case metadata.SourceIdentityUser:
		return c.IdentityUser, c.IdentityUser != nil, nil

	case metadata.SourceIdentityToken:
		return c.IdentityToken, c.IdentityToken != nil, nil

	case metadata.SourceSession:
		return c.Session, c.Session != nil, nil

	case metadata.SourceSessionDatum:
		v := c.SessionDatum(p.Name)

		return v, v != nil, nil

	case metadata.SourceAntiForgery:
		return c.AntiForgery, c.AntiForgery != "", nil

	case metadata.SourceAuthzResource:
		return c.AuthzResource, c.AuthzResource != nil, nil

	case metadata.SourceAuthzAttributes:
		return c.AuthzAttributes, c.AuthzAttributes != nil, nil

	case metadata.SourceCorrelationID:
		return c.CorrelationID(), true, nil

	case metadata.SourceCancellation:
		return c.Context(), true, nil

	default:
		return nil, false, fmt.Errorf("route %s: unknown parameter source %q", route, p.Source)
	}
}

// bodyValue reads and parses the request payload. With a schema attached
// the raw bytes go straight to it, which both validates and returns the
// decoded document; without one the payload is decoded as plain JSON.
func bodyValue(c *request.Context, route string, p metadata.ParameterDefinition) (any, bool, error) {
	raw, err := c.Body()
	if err != nil {
		return nil, false, &MalformedBodyError{Route: route, Err: err}
	}
	if len(raw) == 0 {
		return nil, false, nil
	}

	if p.Schema != nil {
		// Presence established; validation happens in extract.
		return raw, true, nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, &MalformedBodyError{Route: route, Err: err}
	}

	return doc, true, nil
}
