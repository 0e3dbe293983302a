package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/complyx/complyx/internal/service"
	"github.com/complyx/complyx/internal/suggest"
)

func (h *Handler) Categorize(c *gin.Context) {
	var in service.CategorizeInput
	if err := bind(c, &in, false); err != nil {
		h.fail(c, err)
		return
	}
	s, err := h.Service.SuggestCategories(c.Request.Context(), caller(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) Duplicates(c *gin.Context) {
	var cand suggest.Candidate
	if err := bind(c, &cand, false); err != nil {
		h.fail(c, err)
		return
	}
	s, err := h.Service.SuggestDuplicates(c.Request.Context(), caller(c), cand)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) Recommendations(c *gin.Context) {
	r, err := h.Service.Recommend(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
