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
	"fmt"
	"net/http"
)

// InvalidTokenError reports a presented credential that failed
// verification. The underlying parse failure is wrapped but never
// exposed in the response body.
type InvalidTokenError struct {
	Err error
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("invalid bearer token: %v", e.Err)
}

func (e *InvalidTokenError) Unwrap() error { return e.Err }

func (e *InvalidTokenError) HTTPStatus() int { return http.StatusUnauthorized }

func (e *InvalidTokenError) Code() string { return "invalid_token" }
