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
	"context"
	"fmt"
	"reflect"

	"github.com/armature-dev/armature/metadata"
	"github.com/armature-dev/armature/request"
	"github.com/armature-dev/armature/resolve"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// invoke executes the route's body with the merged arguments. Functional
// routes receive the request context followed by the arguments;
// declarative routes receive the arguments only, so a method that needs
// the context must declare a raw-context parameter.
func (d *Dispatcher) invoke(c *request.Context, route string, body metadata.Body, rc *resolve.ResolutionContext, args []any) (any, error) {
	switch b := body.(type) {
	case metadata.Functional:
		result, err := b.Handler(c, args...)
		if err != nil {
			return nil, &HandlerExecutionError{Route: route, Err: err}
		}

		return result, nil

	case metadata.Declarative:
		return d.invokeDeclarative(c.Context(), route, b, rc, args)

	default:
		// Unreachable after compilation; kept for defense against
		// hand-built route tables.
		return nil, fmt.Errorf("route %s: unknown body kind %T", route, body)
	}
}

// invokeDeclarative builds one transient instance of the owning type and
// calls the named method on it. The instance comes from the resolver
// when the body names a provider, otherwise from the declared type.
func (d *Dispatcher) invokeDeclarative(ctx context.Context, route string, b metadata.Declarative, rc *resolve.ResolutionContext, args []any) (any, error) {
	instance, err := d.ownerInstance(ctx, route, b, rc)
	if err != nil {
		return nil, err
	}

	method := reflect.ValueOf(instance).MethodByName(b.Method)
	if !method.IsValid() {
		return nil, &MethodNotFoundError{Owner: fmt.Sprintf("%T", instance), Method: b.Method}
	}

	in, err := methodArgs(route, method.Type(), args)
	if err != nil {
		return nil, err
	}

	return methodResult(route, method.Call(in))
}

func (d *Dispatcher) ownerInstance(ctx context.Context, route string, b metadata.Declarative, rc *resolve.ResolutionContext) (any, error) {
	if b.Provider != "" && d.resolver != nil {
		instance, err := d.resolver.Resolve(ctx, b.Provider, resolve.ScopeTransient, rc)
		if err != nil {
			return nil, &HandlerExecutionError{Route: route, Err: err}
		}

		return instance, nil
	}

	if b.Owner == nil {
		return nil, &MethodNotFoundError{Owner: "<nil>", Method: b.Method}
	}

	t := b.Owner
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return reflect.New(t).Interface(), nil
}

// methodArgs adapts the merged []any to the method's signature. Empty
// slots become the zero value of the target parameter type.
func methodArgs(route string, mt reflect.Type, args []any) ([]reflect.Value, error) {
	if mt.IsVariadic() {
		if len(args) < mt.NumIn()-1 {
			return nil, &HandlerExecutionError{
				Route: route,
				Err:   fmt.Errorf("method takes at least %d arguments, %d declared", mt.NumIn()-1, len(args)),
			}
		}
	} else if len(args) != mt.NumIn() {
		return nil, &HandlerExecutionError{
			Route: route,
			Err:   fmt.Errorf("method takes %d arguments, %d declared", mt.NumIn(), len(args)),
		}
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		target := paramType(mt, i)

		if arg == nil {
			in[i] = reflect.Zero(target)

			continue
		}

		v := reflect.ValueOf(arg)
		switch {
		case v.Type().AssignableTo(target):
			in[i] = v
		case v.Type().ConvertibleTo(target):
			in[i] = v.Convert(target)
		default:
			return nil, &HandlerExecutionError{
				Route: route,
				Err:   fmt.Errorf("argument %d: %s is not assignable to %s", i, v.Type(), target),
			}
		}
	}

	return in, nil
}

func paramType(mt reflect.Type, i int) reflect.Type {
	if mt.IsVariadic() && i >= mt.NumIn()-1 {
		return mt.In(mt.NumIn() - 1).Elem()
	}

	return mt.In(i)
}

// methodResult interprets the return values: a trailing error return
// aborts, the first non-error value becomes the result, and a bare
// method maps to nil.
func methodResult(route string, out []reflect.Value) (any, error) {
	var result any
	for _, v := range out {
		if v.Type().Implements(errorType) {
			if !v.IsNil() {
				return nil, &HandlerExecutionError{Route: route, Err: v.Interface().(error)}
			}

			continue
		}
		if result == nil {
			result = v.Interface()
		}
	}

	return result, nil
}
