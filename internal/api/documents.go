package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/complyx/complyx/internal/validation"
	"github.com/complyx/complyx/internal/workflow"
	"github.com/complyx/complyx/pkg/schema"
)

func (h *Handler) CreateDocument(c *gin.Context) {
	var in schema.DocumentInput
	if err := bind(c, &in, false); err != nil {
		h.fail(c, err)
		return
	}
	doc, err := h.Service.CreateDocument(c.Request.Context(), caller(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.Service.ListDocuments(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Handler) SearchDocuments(c *gin.Context) {
	var q schema.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, validation.Errorf("invalid query: %v", err))
		return
	}

	var err error
	if q.CreatedAfter, err = parseTime(c.Query("created_after")); err != nil {
		h.fail(c, err)
		return
	}
	if q.CreatedBefore, err = parseTime(c.Query("created_before")); err != nil {
		h.fail(c, err)
		return
	}
	if q.ExpiresBefore, err = parseTime(c.Query("expires_before")); err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.Service.Search(c.Request.Context(), caller(c), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Stats(c *gin.Context) {
	st, err := h.Service.Stats(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) GetDocument(c *gin.Context) {
	doc, err := h.Service.GetDocument(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) UpdateDocument(c *gin.Context) {
	var upd schema.DocumentUpdate
	if err := bind(c, &upd, false); err != nil {
		h.fail(c, err)
		return
	}
	doc, err := h.Service.UpdateDocument(c.Request.Context(), caller(c), c.Param("id"), upd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	if err := h.Service.DeleteDocument(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) Download(c *gin.Context) {
	d, err := h.Service.Download(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) Permissions(c *gin.Context) {
	p, err := h.Service.Permissions(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type transferRequest struct {
	NewOwnerID string `json:"new_owner_id"`
}

func (h *Handler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := bind(c, &req, false); err != nil {
		h.fail(c, err)
		return
	}
	if req.NewOwnerID == "" {
		h.fail(c, validation.Errorf("new_owner_id is required"))
		return
	}
	doc, err := h.Service.TransferOwnership(c.Request.Context(), caller(c), c.Param("id"), req.NewOwnerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

type transitionRequest struct {
	Comment string `json:"comment"`
}

// Transition returns a handler for one status action.
func (h *Handler) Transition(action workflow.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transitionRequest
		if err := bind(c, &req, true); err != nil {
			h.fail(c, err)
			return
		}
		doc, err := h.Service.Transition(c.Request.Context(), caller(c), c.Param("id"), action, req.Comment)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

func (h *Handler) AuditTrail(c *gin.Context) {
	entries, err := h.Service.AuditTrail(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
