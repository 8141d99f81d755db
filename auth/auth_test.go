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

package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armature-dev/armature/request"
)

var testSecret = []byte("test-secret")

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	return token
}

func contextWithAuth(header string) *request.Context {
	r := httptest.NewRequest("GET", "/x", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}

	return request.New(httptest.NewRecorder(), r, nil)
}

func TestBearerFillsCollaboratorSlots(t *testing.T) {
	raw := signedToken(t, jwt.MapClaims{
		"sub": "user-1",
		"iss": "armature-test",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	c := contextWithAuth("Bearer " + raw)

	require.NoError(t, Bearer(testSecret)(c))

	principal, ok := c.Principal.(*Principal)
	require.True(t, ok)
	assert.Equal(t, "user-1", principal.Subject)
	assert.Equal(t, "armature-test", principal.Issuer)
	assert.Equal(t, raw, c.Credential)
	assert.NotNil(t, c.IdentityToken)
}

func TestBearerAnonymousWithoutHeader(t *testing.T) {
	c := contextWithAuth("")

	require.NoError(t, Bearer(testSecret)(c))
	assert.Nil(t, c.Principal)
	assert.Nil(t, c.Credential)
}

func TestBearerRejectsBadSignature(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).
		SignedString([]byte("other-secret"))
	require.NoError(t, err)

	c := contextWithAuth("Bearer " + raw)
	merr := Bearer(testSecret)(c)

	var invalid *InvalidTokenError
	require.ErrorAs(t, merr, &invalid)
	assert.Equal(t, 401, invalid.HTTPStatus())
	assert.Equal(t, "invalid_token", invalid.Code())
	assert.Nil(t, c.Principal)
}

func TestBearerRejectsExpiredToken(t *testing.T) {
	raw := signedToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	err := Bearer(testSecret)(contextWithAuth("Bearer " + raw))
	assert.Error(t, err)
}

func TestBearerRejectsWrongAlgorithm(t *testing.T) {
	// alg=none tokens must never verify.
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	merr := Bearer(testSecret)(contextWithAuth("Bearer " + raw))
	assert.Error(t, merr)
}

func TestBearerIgnoresNonBearerSchemes(t *testing.T) {
	c := contextWithAuth("Basic dXNlcjpwYXNz")

	require.NoError(t, Bearer(testSecret)(c))
	assert.Nil(t, c.Principal)
}
