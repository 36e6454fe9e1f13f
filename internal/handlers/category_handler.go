package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CategoryHandler handles category-related requests
type CategoryHandler struct {
	categories CategoryFacade
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categories CategoryFacade) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// CreateCategoryRequest represents the request payload for creating a category
type CreateCategoryRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=100"`
	Icon  string `json:"icon" binding:"omitempty,max=50"`
	Color string `json:"color" binding:"omitempty,hex_color"`
}

// CreateCategory handles the creation of a new custom category
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalid(err))
		return
	}

	category, err := h.categories.CreateCategory(req.Name, req.Icon, req.Color)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"category": category})
}

// GetCategories lists seeded and custom categories
func (h *CategoryHandler) GetCategories(c *gin.Context) {
	categories, err := h.categories.GetCategories()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// DeleteCategory removes a custom category
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.categories.DeleteCategory(id); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}
