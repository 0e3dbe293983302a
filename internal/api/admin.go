package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/complyx/complyx/pkg/schema"
)

func (h *Handler) CreateUser(c *gin.Context) {
	var in schema.UserInput
	if err := bind(c, &in, false); err != nil {
		h.fail(c, err)
		return
	}
	u, err := h.Service.CreateUser(c.Request.Context(), caller(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Service.ListUsers(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) Me(c *gin.Context) {
	u, err := h.Service.Me(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	var upd schema.UserUpdate
	if err := bind(c, &upd, false); err != nil {
		h.fail(c, err)
		return
	}
	u, err := h.Service.UpdateUser(c.Request.Context(), caller(c), c.Param("id"), upd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) DeactivateUser(c *gin.Context) {
	u, err := h.Service.DeactivateUser(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) GetSecuritySettings(c *gin.Context) {
	st, err := h.Settings.Get(currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) UpdateSecuritySettings(c *gin.Context) {
	var upd schema.SettingsUpdate
	if err := bind(c, &upd, false); err != nil {
		h.fail(c, err)
		return
	}
	st, err := h.Settings.Update(currentUser(c), upd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) SecuritySettingsHistory(c *gin.Context) {
	history, err := h.Settings.History(currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}
