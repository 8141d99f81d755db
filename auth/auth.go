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

// Package auth provides the bearer-JWT authentication collaborator. It is
// route middleware that fills the request context's principal, credential,
// and identity-token slots; the dispatcher itself never authenticates.
// Routes that flag authentication as mandatory reject the request during
// principal extraction when these slots stay empty.
package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/armature-dev/armature/metadata"
	"github.com/armature-dev/armature/request"
)

// Principal is the authenticated identity placed into the context's
// principal slot.
type Principal struct {
	Subject string
	Issuer  string
	Claims  jwt.MapClaims
}

// Bearer returns middleware that parses an HS256 bearer token from the
// Authorization header. A valid token fills the principal, credential,
// and identity-token slots. An absent header leaves the request
// anonymous rather than failing it, so the same middleware serves both
// open and auth-mandatory routes. An invalid token is an error either
// way: a presented credential must never be silently ignored.
func Bearer(secret []byte) metadata.Middleware {
	return func(c *request.Context) error {
		raw := bearerToken(c)
		if raw == "" {
			return nil
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}

			return secret, nil
		})
		if err != nil {
			return &InvalidTokenError{Err: err}
		}

		principal := &Principal{Claims: claims}
		if sub, serr := claims.GetSubject(); serr == nil {
			principal.Subject = sub
		}
		if iss, ierr := claims.GetIssuer(); ierr == nil {
			principal.Issuer = iss
		}

		c.Principal = principal
		c.Credential = raw
		c.IdentityToken = token

		return nil
	}
}

func bearerToken(c *request.Context) string {
	header := c.Header("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return header[7:]
	}

	return ""
}
