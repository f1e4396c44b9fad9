package http

import (
	"github.com/gin-gonic/gin"

	"github.com/carrelhq/carrel/internal/category"
)

type CategoriesController struct {
	categories *category.Service
}

func NewCategoriesController(categories *category.Service) *CategoriesController {
	return &CategoriesController{
		categories: categories,
	}
}

type categoryInput struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	ParentID *int64 `json:"parent_id"`
}

// ListCategories returns the flat list, or the nested tree when ?tree=true.
func (controller *CategoriesController) ListCategories(c *gin.Context) {
	if c.Query("tree") == "true" {
		tree, err := controller.categories.ListTree()
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, tree)
		return
	}

	categories, err := controller.categories.List()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, categories)
}

func (controller *CategoriesController) GetCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := controller.categories.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, detail)
}

func (controller *CategoriesController) CreateCategory(c *gin.Context) {
	var input categoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	created, err := controller.categories.Create(input.Name, input.Code, input.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, created)
}

func (controller *CategoriesController) UpdateCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input categoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	updated, err := controller.categories.Update(id, input.Name, input.Code, input.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, updated)
}

func (controller *CategoriesController) DeleteCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := controller.categories.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "category deleted", nil)
}

func (controller *CategoriesController) GetCategoryStatistics(c *gin.Context) {
	stats, err := controller.categories.Statistics()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, stats)
}
