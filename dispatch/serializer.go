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
	"log/slog"
	"net/http"

	"github.com/armature-dev/armature/errors"
	"github.com/armature-dev/armature/request"
)

// Serializer writes a handler result as the response. Exactly one
// serialization happens per successful request; the dispatcher calls it
// once with the live or cached result.
type Serializer interface {
	Serialize(c *request.Context, value any) error
}

// ErrorHandler is the single terminal exit for request-time failures.
// It must commit a response; nothing runs after it.
type ErrorHandler interface {
	HandleError(c *request.Context, err error)
}

// Renderer lets a handler result take over its own response writing, for
// results that need a status, content type, or body shape the default
// JSON path cannot express.
type Renderer interface {
	Render(c *request.Context) error
}

// JSONSerializer is the default Serializer: Renderer results render
// themselves, nil becomes 204 No Content, anything else is 200 with a
// JSON body.
type JSONSerializer struct{}

// Serialize writes the result.
func (JSONSerializer) Serialize(c *request.Context, value any) error {
	if r, ok := value.(Renderer); ok {
		return r.Render(c)
	}
	if value == nil {
		c.NoContent(http.StatusNoContent)

		return nil
	}

	return c.WriteJSON(http.StatusOK, value)
}

// FormatterErrorHandler adapts an errors.Formatter into the dispatcher's
// terminal error exit, logging each failure with the request correlation
// id.
type FormatterErrorHandler struct {
	Formatter errors.Formatter
	Logger    *slog.Logger
}

// NewErrorHandler wires the default flat-JSON formatter.
func NewErrorHandler(logger *slog.Logger) *FormatterErrorHandler {
	return &FormatterErrorHandler{Formatter: errors.NewSimple(), Logger: logger}
}

// HandleError formats and commits the error response.
func (h *FormatterErrorHandler) HandleError(c *request.Context, err error) {
	resp := h.Formatter.Format(c.Request, err)

	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelWarn
	if resp.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(c.Context(), level, "request failed",
		slog.String("correlation_id", c.CorrelationID()),
		slog.Int("status", resp.Status),
		slog.String("error", err.Error()),
	)

	for name, values := range resp.Headers {
		for _, v := range values {
			c.Response.Header().Add(name, v)
		}
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json; charset=utf-8"
	}
	if werr := c.WriteBody(resp.Status, contentType, resp.Body); werr != nil {
		logger.Error("writing error response failed",
			slog.String("correlation_id", c.CorrelationID()),
			slog.String("error", werr.Error()),
		)
	}
}
