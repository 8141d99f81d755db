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

package compiler

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armature-dev/armature/metadata"
	"github.com/armature-dev/armature/request"
	"github.com/armature-dev/armature/resolve"
)

func handlerStub(*request.Context, ...any) (any, error) { return nil, nil }

func functionalDef(owner, member, method, path string) *metadata.RouteDefinition {
	return &metadata.RouteDefinition{
		Owner: owner, Member: member,
		Method: method, Path: path,
		Body: metadata.Functional{Handler: handlerStub},
	}
}

func TestBothPlaceholderSyntaxesMatchIdentically(t *testing.T) {
	braced, err := compilePath("/users/{id}/posts/{slug}")
	require.NoError(t, err)
	colon, err := compilePath("/users/:id/posts/:slug")
	require.NoError(t, err)

	for _, m := range []*PathMatcher{braced, colon} {
		params, ok := m.Match("/users/42/posts/hello-world")
		require.True(t, ok)
		assert.Equal(t, map[string]string{"id": "42", "slug": "hello-world"}, params)

		_, ok = m.Match("/users/42/posts")
		assert.False(t, ok, "missing segment must not match")
		_, ok = m.Match("/users/42/posts/a/b")
		assert.False(t, ok, "placeholder must not cross a / boundary")
		_, ok = m.Match("/prefix/users/42/posts/x")
		assert.False(t, ok, "matcher must be anchored")
	}
}

func TestLiteralMetacharactersAreEscaped(t *testing.T) {
	m, err := compilePath("/v1.0/items/{id}")
	require.NoError(t, err)

	_, ok := m.Match("/v1x0/items/9")
	assert.False(t, ok, "dot must match literally")

	params, ok := m.Match("/v1.0/items/9")
	require.True(t, ok)
	assert.Equal(t, "9", params["id"])
}

func TestInvalidTemplatesRejected(t *testing.T) {
	for _, tpl := range []string{"", "items/{id}", "/items/{id", "/items/{}", "/items/:"} {
		_, err := compilePath(tpl)
		assert.Error(t, err, "template %q", tpl)
	}
}

func TestIndexBookkeeping(t *testing.T) {
	def := functionalDef("C", "m", "GET", "/items/:id")
	def.ParamAt(metadata.ParameterDefinition{Index: 3, Source: metadata.SourceQuery, Name: "q"})
	def.ParamAt(metadata.ParameterDefinition{Index: 1, Source: metadata.SourcePathParam, Name: "id"})
	def.DependencyAt(metadata.DependencyDefinition{Index: 5, Provider: "svc", Scope: resolve.ScopeSingleton})
	def.DependencyAt(metadata.DependencyDefinition{Index: 0, Provider: "db", Scope: resolve.ScopeSingleton})

	cr, err := Compile(def, nil)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3}, cr.ParamIndices)
	assert.Equal(t, []int{0, 5}, cr.DepIndices)
	assert.Equal(t, 5, cr.MaxArgIndex)
}

func TestMaxArgIndexEmptyRoute(t *testing.T) {
	cr, err := Compile(functionalDef("C", "bare", "GET", "/bare"), nil)
	require.NoError(t, err)

	assert.Equal(t, -1, cr.MaxArgIndex)
	assert.Empty(t, cr.ParamIndices)
	assert.Empty(t, cr.DepIndices)
}

func TestCapabilityFlags(t *testing.T) {
	def := functionalDef("C", "m", "POST", "/items/:id")
	def.ParamAt(metadata.ParameterDefinition{Index: 0, Source: metadata.SourceBody})
	def.ParamAt(metadata.ParameterDefinition{Index: 1, Source: metadata.SourcePathParam, Name: "id"})
	def.ParamAt(metadata.ParameterDefinition{Index: 2, Source: metadata.SourceHeaderMap})

	cr, err := Compile(def, nil)
	require.NoError(t, err)

	assert.True(t, cr.HasBody)
	assert.True(t, cr.HasPathParam)
	assert.True(t, cr.HasHeader)
	assert.False(t, cr.HasQuery)
	assert.False(t, cr.HasCookie)
}

func TestParamDependencyIndexCollisionRejected(t *testing.T) {
	def := functionalDef("C", "m", "GET", "/x")
	def.ParamAt(metadata.ParameterDefinition{Index: 2, Source: metadata.SourceQuery, Name: "q"})
	def.DependencyAt(metadata.DependencyDefinition{Index: 2, Provider: "svc"})

	_, err := Compile(def, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMisconfigured)
	assert.Contains(t, err.Error(), "index 2")
}

func TestBodyValidation(t *testing.T) {
	def := functionalDef("C", "m", "GET", "/x")
	def.Body = nil
	_, err := Compile(def, nil)
	assert.ErrorIs(t, err, ErrMisconfigured)

	def.Body = metadata.Functional{}
	_, err = Compile(def, nil)
	assert.ErrorIs(t, err, ErrMisconfigured)
}

type widgetController struct{}

func (*widgetController) List() ([]string, error) { return nil, nil }

func TestDeclarativeMethodCheckedAtCompileTime(t *testing.T) {
	def := functionalDef("widgetController", "List", "GET", "/widgets")
	def.Body = metadata.Declarative{
		Owner:  reflect.TypeOf(widgetController{}),
		Method: "List",
	}
	_, err := Compile(def, nil)
	assert.NoError(t, err, "pointer-receiver methods must be found")

	def.Body = metadata.Declarative{
		Owner:  reflect.TypeOf(widgetController{}),
		Method: "Nope",
	}
	_, err = Compile(def, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMisconfigured)
	assert.Contains(t, err.Error(), "Nope")
}

func TestCompileAppliesControllerPrefixAndMiddleware(t *testing.T) {
	var order []string
	ctrlMW := func(*request.Context) error { order = append(order, "ctrl"); return nil }
	routeMW := func(*request.Context) error { order = append(order, "route"); return nil }

	def := functionalDef("C", "m", "GET", "/items/:id")
	def.Middleware = []metadata.Middleware{routeMW}
	ctrl := &metadata.ControllerDefinition{
		Owner: "C", Prefix: "/api/", Middleware: []metadata.Middleware{ctrlMW},
	}

	cr, err := Compile(def, ctrl)
	require.NoError(t, err)

	assert.Equal(t, "/api/items/:id", cr.FullPath)
	params, ok := cr.Matcher.Match("/api/items/7")
	require.True(t, ok)
	assert.Equal(t, "7", params["id"])

	require.Len(t, cr.Middleware, 2)
	for _, mw := range cr.Middleware {
		require.NoError(t, mw(nil))
	}
	assert.Equal(t, []string{"ctrl", "route"}, order)
}

func TestCompileAllPreservesOrderAndFailsOnConflicts(t *testing.T) {
	s := metadata.NewStore()
	s.RegisterRoute(functionalDef("A", "b", "GET", "/b"))
	s.RegisterRoute(functionalDef("A", "a", "GET", "/a"))

	routes, err := CompileAll(s)
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, "A.b", routes[0].Identity())
	assert.Equal(t, "A.a", routes[1].Identity())

	s.RegisterRoute(functionalDef("A", "a", "GET", "/a"))
	_, err = CompileAll(s)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMisconfigured)

	var mis *MisconfigurationError
	require.True(t, errors.As(err, &mis))
	assert.Equal(t, "A.a", mis.Route)
}
