package document

import (
	"net/http"

	"collaborative-document-service/internal/access"
	"collaborative-document-service/internal/domain"
	"collaborative-document-service/internal/errors"
	"collaborative-document-service/internal/middleware"
	"collaborative-document-service/internal/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type SharedEntryRequest struct {
	UserID     string `json:"userId" binding:"required"`
	Permission string `json:"permission" binding:"required,oneof=read write"`
}

type CreateRequest struct {
	Title      string               `json:"title" binding:"required,min=1"`
	Content    string               `json:"content"`
	SharedWith []SharedEntryRequest `json:"sharedWith" binding:"omitempty,dive"`
}

// UpdateRequest leaves version optional so a missing one is reported as
// VERSION_REQUIRED rather than a binding failure.
type UpdateRequest struct {
	Version    *int64                `json:"version" binding:"omitempty,min=1"`
	Title      *string               `json:"title" binding:"omitempty,min=1"`
	Content    *string               `json:"content"`
	SharedWith *[]SharedEntryRequest `json:"sharedWith" binding:"omitempty,dive"`
}

func (r UpdateRequest) patch() domain.Patch {
	p := domain.Patch{Title: r.Title, Content: r.Content}
	if r.SharedWith != nil {
		entries := toShared(*r.SharedWith)
		p.SharedWith = &entries
	}
	return p
}

func toShared(in []SharedEntryRequest) []domain.SharedEntry {
	out := make([]domain.SharedEntry, 0, len(in))
	for _, e := range in {
		out = append(out, domain.SharedEntry{UserID: e.UserID, Permission: domain.Permission(e.Permission)})
	}
	return out
}

func (h *Handler) Create(c *gin.Context) {
	var form CreateRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	doc, err := h.service.CreateDocument(c.Request.Context(), middleware.UserID(c), CreateInput{
		Title:      form.Title,
		Content:    form.Content,
		SharedWith: toShared(form.SharedWith),
	})
	if err != nil {
		c.Error(err)
		return
	}

	utils.Success(c, http.StatusCreated, "Document created successfully", doc)
}

func (h *Handler) ShowUserDocuments(c *gin.Context) {
	page, limit := utils.GetPaginationParams(c, DefaultLimit)
	result, err := h.service.GetUserDocuments(c.Request.Context(), middleware.UserID(c), page, limit)
	if err != nil {
		c.Error(err)
		return
	}

	utils.Success(c, http.StatusOK, "Documents retrieved successfully", result)
}

func (h *Handler) ShowDocument(c *gin.Context) {
	doc, err := h.service.GetDocument(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		c.Error(err)
		return
	}

	utils.Success(c, http.StatusOK, "Document retrieved successfully", doc)
}

func (h *Handler) Update(c *gin.Context) {
	var form UpdateRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	doc, err := h.service.UpdateDocument(
		c.Request.Context(),
		c.Param("id"),
		middleware.UserID(c),
		form.Version,
		form.patch(),
		access.ChannelAPI,
	)
	if err != nil {
		c.Error(err)
		return
	}

	utils.Success(c, http.StatusOK, "Document updated successfully", doc)
}

func (h *Handler) Delete(c *gin.Context) {
	doc, err := h.service.DeleteDocument(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		c.Error(err)
		return
	}

	utils.Success(c, http.StatusOK, "Document deleted successfully", gin.H{"id": doc.ID})
}

func (h *Handler) ShowHistory(c *gin.Context) {
	records, err := h.service.GetDocumentHistory(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		c.Error(err)
		return
	}

	utils.Success(c, http.StatusOK, "History retrieved successfully", records)
}

// RegisterRoutes mounts the document API on an authenticated group.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("", h.Create)
	r.GET("", h.ShowUserDocuments)
	r.GET("/:id", h.ShowDocument)
	r.PUT("/:id", h.Update)
	r.DELETE("/:id", h.Delete)
	r.GET("/:id/history", h.ShowHistory)
}
