package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/complyx/complyx/pkg/schema"
)

func (h *Handler) PutGrant(c *gin.Context) {
	var in schema.GrantInput
	if err := bind(c, &in, false); err != nil {
		h.fail(c, err)
		return
	}
	g, err := h.Service.PutGrant(c.Request.Context(), caller(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h *Handler) ListGrants(c *gin.Context) {
	grants, err := h.Service.ListGrants(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, grants)
}

// GetGrant answers 410 with the grant body when it has lapsed.
func (h *Handler) GetGrant(c *gin.Context) {
	g, err := h.Service.GetGrant(c.Request.Context(), caller(c), c.Param("id"), c.Param("grantId"))
	if errors.Is(err, schema.ErrGrantExpired) && g != nil {
		c.JSON(http.StatusGone, gin.H{"error": err.Error(), "reason": "grant_expired", "grant": g})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handler) RevokeGrant(c *gin.Context) {
	if err := h.Service.RevokeGrant(c.Request.Context(), caller(c), c.Param("id"), c.Param("grantId")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
