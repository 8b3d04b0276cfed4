package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/catalog"
)

type CreateProductRequest struct {
	ID          string  `json:"id" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Category    string  `json:"category"`
	Price       float64 `json:"price" validate:"gte=0"`
	Image       string  `json:"image"`
	Description string  `json:"description"`
	Brand       string  `json:"brand"`
	InStock     bool    `json:"inStock"`
}

type RateProductRequest struct {
	UserID string `json:"userId" validate:"required"`
	Rating int    `json:"rating" validate:"required,gte=1,lte=5"`
}

type CreateCategoryRequest struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required"`
	Icon string `json:"icon"`
}

type RemoveCategoryResponse struct {
	Success    bool `json:"success"`
	Reassigned int  `json:"reassigned"`
}

type CatalogHandler struct {
	service  catalog.Service
	validate *validator.Validate
}

func NewCatalogHandler(service catalog.Service) *CatalogHandler {
	return &CatalogHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *CatalogHandler) RegisterRoutes(router chi.Router) {
	router.Get("/products", h.handleListProducts)
	router.Put("/products", h.handleReplaceProducts)
	router.Post("/products", h.handleCreateProduct)
	router.Get("/products/{id}", h.handleGetProduct)
	router.Patch("/products/{id}", h.handleUpdateProduct)
	router.Delete("/products/{id}", h.handleDeleteProduct)
	router.Post("/products/{id}/ratings", h.handleRateProduct)
	router.Get("/products/{id}/rating", h.handleGetRating)

	router.Get("/categories", h.handleListCategories)
	router.Put("/categories", h.handleReplaceCategories)
	router.Post("/categories", h.handleCreateCategory)
	router.Patch("/categories/{id}", h.handleUpdateCategory)
	router.Delete("/categories/{id}", h.handleDeleteCategory)
}

func (h *CatalogHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to read products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

// handleReplaceProducts stores the posted array as the whole collection.
func (h *CatalogHandler) handleReplaceProducts(w http.ResponseWriter, r *http.Request) {
	var products []catalog.Product
	if err := decodeJSON(r, &products, false); err != nil {
		respondWithDecodeError(w, err)
		return
	}

	if err := h.service.ReplaceProducts(r.Context(), products); err != nil {
		respondWithServiceError(w, err, "Failed to save products")
		return
	}
	respondWithSuccess(w)
}

func (h *CatalogHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateProductRequest
	if err := decodeJSON(r, &requestPayload, true); err != nil {
		respondWithDecodeError(w, err)
		return
	}
	if !validateRequest(w, h.validate, requestPayload) {
		return
	}

	created, err := h.service.AddProduct(r.Context(), catalog.Product{
		ID:          requestPayload.ID,
		Name:        requestPayload.Name,
		Category:    requestPayload.Category,
		Price:       requestPayload.Price,
		Image:       requestPayload.Image,
		Description: requestPayload.Description,
		Brand:       requestPayload.Brand,
		InStock:     requestPayload.InStock,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to save product")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *CatalogHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	found, err := h.service.GetProduct(r.Context(), pathID(r))
	if err != nil {
		respondWithServiceError(w, err, "Failed to read product")
		return
	}
	respondWithJSON(w, http.StatusOK, found)
}

func (h *CatalogHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var patch catalog.ProductPatch
	if err := decodeJSON(r, &patch, true); err != nil {
		respondWithDecodeError(w, err)
		return
	}

	updated, err := h.service.UpdateProduct(r.Context(), pathID(r), patch)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update product")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *CatalogHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveProduct(r.Context(), pathID(r)); err != nil {
		respondWithServiceError(w, err, "Failed to delete product")
		return
	}
	respondWithSuccess(w)
}

func (h *CatalogHandler) handleRateProduct(w http.ResponseWriter, r *http.Request) {
	var requestPayload RateProductRequest
	if err := decodeJSON(r, &requestPayload, true); err != nil {
		respondWithDecodeError(w, err)
		return
	}
	if !validateRequest(w, h.validate, requestPayload) {
		return
	}

	updated, err := h.service.RateProduct(r.Context(), pathID(r), requestPayload.UserID, requestPayload.Rating)
	if err != nil {
		respondWithServiceError(w, err, "Failed to rate product")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *CatalogHandler) handleGetRating(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.ProductRating(r.Context(), pathID(r))
	if err != nil {
		respondWithServiceError(w, err, "Failed to read rating")
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (h *CatalogHandler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to read categories")
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) handleReplaceCategories(w http.ResponseWriter, r *http.Request) {
	var categories []catalog.Category
	if err := decodeJSON(r, &categories, false); err != nil {
		respondWithDecodeError(w, err)
		return
	}

	if err := h.service.ReplaceCategories(r.Context(), categories); err != nil {
		respondWithServiceError(w, err, "Failed to save categories")
		return
	}
	respondWithSuccess(w)
}

func (h *CatalogHandler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateCategoryRequest
	if err := decodeJSON(r, &requestPayload, true); err != nil {
		respondWithDecodeError(w, err)
		return
	}
	if !validateRequest(w, h.validate, requestPayload) {
		return
	}

	created, err := h.service.AddCategory(r.Context(), catalog.Category{
		ID:   requestPayload.ID,
		Name: requestPayload.Name,
		Icon: requestPayload.Icon,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to save category")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *CatalogHandler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var patch catalog.CategoryPatch
	if err := decodeJSON(r, &patch, true); err != nil {
		respondWithDecodeError(w, err)
		return
	}

	updated, err := h.service.UpdateCategory(r.Context(), pathID(r), patch)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update category")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

// handleDeleteCategory removes the category and reports how many products
// were moved to the "other" category.
func (h *CatalogHandler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	reassigned, err := h.service.RemoveCategory(r.Context(), pathID(r))
	if err != nil {
		respondWithServiceError(w, err, "Failed to delete category")
		return
	}
	respondWithJSON(w, http.StatusOK, RemoveCategoryResponse{Success: true, Reassigned: reassigned})
}
