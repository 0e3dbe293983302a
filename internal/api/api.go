// Package api exposes the Comply-X service over HTTP with gin.
package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/complyx/complyx/internal/policy"
	"github.com/complyx/complyx/internal/service"
	"github.com/complyx/complyx/internal/settings"
	"github.com/complyx/complyx/internal/suggest"
	"github.com/complyx/complyx/internal/validation"
	"github.com/complyx/complyx/internal/workflow"
	"github.com/complyx/complyx/pkg/schema"
)

const (
	userKey      = "complyx.user"
	requestIDKey = "complyx.request_id"
)

// Handler serves the /api/v1 endpoints.
type Handler struct {
	Service  *service.Service
	Settings *settings.Service
	Logger   *zap.Logger
}

func caller(c *gin.Context) service.Caller {
	u, _ := c.Get(userKey)
	user, _ := u.(*schema.User)
	return service.Caller{User: user, IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func currentUser(c *gin.Context) *schema.User {
	return caller(c).User
}

// bind decodes a JSON body. An empty body leaves v untouched when optional is set.
func bind(c *gin.Context, v any, optional bool) error {
	if err := c.ShouldBindJSON(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return validation.Errorf("invalid request body: %v", err)
	}
	return nil
}

// classify maps an error to its HTTP status and a machine-readable reason.
func classify(err error) (int, string) {
	var denied *policy.DeniedError
	var transition *workflow.TransitionError
	var invalid *validation.Error

	switch {
	case errors.As(err, &denied):
		return http.StatusForbidden, denied.Reason
	case errors.As(err, &transition):
		return http.StatusConflict, transition.Reason
	case errors.As(err, &invalid):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, schema.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, schema.ErrAccessDenied):
		return http.StatusForbidden, "access_denied"
	case errors.Is(err, schema.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, schema.ErrGrantExpired):
		return http.StatusGone, "grant_expired"
	case errors.Is(err, schema.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, schema.ErrValidation), errors.Is(err, suggest.ErrUnsupportedKind):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, schema.ErrConflict):
		return http.StatusConflict, "conflict"
	}
	return http.StatusInternalServerError, "internal"
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, reason := classify(err)
	body := gin.H{"error": err.Error(), "reason": reason}

	var invalid *validation.Error
	if errors.As(err, &invalid) && len(invalid.Fields) > 0 {
		body["fields"] = invalid.Fields
	}

	if status == http.StatusInternalServerError {
		h.Logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err),
		)
		body["error"] = "internal server error"
	} else {
		h.Logger.Debug("request rejected",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, body)
}

// parseTime accepts RFC 3339 timestamps or plain dates.
func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, validation.Errorf("invalid time %q: use RFC 3339 or YYYY-MM-DD", s)
}
