package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domerrors "github.com/garyellow/lnmu-portal/internal/errors"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

// classify maps an error to a status code and a metric label.
func classify(err error) (int, string) {
	var backendErr *domerrors.BackendError
	switch {
	case errors.Is(err, domerrors.ErrStaleResponse):
		return http.StatusConflict, "stale"
	case errors.Is(err, domerrors.ErrReportNotReady):
		return http.StatusConflict, "report_not_ready"
	case errors.Is(err, domerrors.ErrInvalidTransition):
		return http.StatusBadRequest, "invalid_transition"
	case errors.Is(err, domerrors.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domerrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domerrors.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, domerrors.ErrMalformedResponse):
		return http.StatusBadGateway, "malformed"
	case errors.Is(err, domerrors.ErrAssetBlocked):
		return http.StatusBadGateway, "asset_blocked"
	case errors.As(err, &backendErr):
		return http.StatusBadGateway, "backend"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// message picks the text shown to the client. Server-side failures never
// leak their cause unless it carries a user message.
func message(err error, status int) string {
	var wrapped *domerrors.WrappedError
	if errors.As(err, &wrapped) {
		return wrapped.UserMessage
	}
	if status < http.StatusInternalServerError {
		return err.Error()
	}
	return http.StatusText(status)
}

func (s *Server) fail(c *gin.Context, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).WarnContext(c.Request.Context(), "Request failed", "type", kind)
	}
	s.reject(c, status, kind, message(err, status))
}

func (s *Server) reject(c *gin.Context, status int, kind, msg string) {
	if s.recorder != nil {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.recorder.RecordHTTPError(kind, route)
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: msg, Type: kind})
}
