package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/MarketGo/internal/repository"
	"github.com/utafrali/MarketGo/internal/service"
	"github.com/utafrali/MarketGo/pkg/httputil"
	"github.com/utafrali/MarketGo/pkg/pagination"
	"github.com/utafrali/MarketGo/pkg/validator"
)

// ProductHandler handles HTTP requests for catalog product endpoints.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateProductRequest is the JSON request body for creating a product.
type CreateProductRequest struct {
	Name            string  `json:"name" validate:"required,min=1,max=255"`
	Description     string  `json:"description" validate:"max=5000"`
	PriceCents      int64   `json:"price_cents" validate:"required,gt=0"`
	DiscountPercent int     `json:"discount_percent" validate:"gte=0,lte=90"`
	Stock           int     `json:"stock" validate:"gte=0"`
	CategoryID      *string `json:"category_id" validate:"omitempty,uuid"`
	BrandID         *string `json:"brand_id" validate:"omitempty,uuid"`
}

// UpdateProductRequest is the JSON request body for updating a product.
type UpdateProductRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description     *string `json:"description" validate:"omitempty,max=5000"`
	PriceCents      *int64  `json:"price_cents" validate:"omitempty,gt=0"`
	DiscountPercent *int    `json:"discount_percent" validate:"omitempty,gte=0,lte=90"`
	Stock           *int    `json:"stock" validate:"omitempty,gte=0"`
	CategoryID      *string `json:"category_id" validate:"omitempty,uuid"`
	BrandID         *string `json:"brand_id" validate:"omitempty,uuid"`
	IsActive        *bool   `json:"is_active"`
}

// AddImageRequest is the JSON request body for attaching a product image.
type AddImageRequest struct {
	URL       string `json:"url" validate:"required,url,max=2000"`
	AltText   string `json:"alt_text" validate:"max=255"`
	IsPrimary bool   `json:"is_primary"`
}

// CreateFieldRequest is the JSON request body for registering a dynamic field.
type CreateFieldRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// SetFieldValueRequest is the JSON request body for setting a field value.
type SetFieldValueRequest struct {
	Value string `json:"value" validate:"required,min=1,max=1000"`
}

// --- Handlers ---

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	filter := repository.ProductFilter{
		CategorySlug: r.URL.Query().Get("category"),
		BrandSlug:    r.URL.Query().Get("brand"),
		Search:       r.URL.Query().Get("search"),
		InStockOnly:  r.URL.Query().Get("in_stock") == "true",
		ActiveOnly:   r.URL.Query().Get("include_inactive") != "true",
	}

	products, total, err := h.service.ListProducts(r.Context(), filter, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(products, total, params.Page, params.PerPage))
}

// GetProduct handles GET /api/v1/products/{slug}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: detail})
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), service.CreateProductInput{
		Name:            req.Name,
		Description:     req.Description,
		PriceCents:      req.PriceCents,
		DiscountPercent: req.DiscountPercent,
		Stock:           req.Stock,
		CategoryID:      req.CategoryID,
		BrandID:         req.BrandID,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// UpdateProduct handles PUT /api/v1/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), id.String(), service.UpdateProductInput{
		Name:            req.Name,
		Description:     req.Description,
		PriceCents:      req.PriceCents,
		DiscountPercent: req.DiscountPercent,
		Stock:           req.Stock,
		CategoryID:      req.CategoryID,
		BrandID:         req.BrandID,
		IsActive:        req.IsActive,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Images ---

// ListImages handles GET /api/v1/products/{id}/images
func (h *ProductHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	images, err := h.service.ListImages(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: images})
}

// AddImage handles POST /api/v1/products/{id}/images
func (h *ProductHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req AddImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	image, err := h.service.AddImage(r.Context(), id.String(), service.AddImageInput{
		URL:       req.URL,
		AltText:   req.AltText,
		IsPrimary: req.IsPrimary,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: image})
}

// DeleteImage handles DELETE /api/v1/products/{id}/images/{imageId}
func (h *ProductHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	imageID, ok := httputil.ParseUUID(w, chi.URLParam(r, "imageId"))
	if !ok {
		return
	}

	if err := h.service.DeleteImage(r.Context(), id.String(), imageID.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Dynamic fields ---

// ListFields handles GET /api/v1/product-fields
func (h *ProductHandler) ListFields(w http.ResponseWriter, r *http.Request) {
	fields, err := h.service.ListFields(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: fields})
}

// CreateField handles POST /api/v1/product-fields
func (h *ProductHandler) CreateField(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req CreateFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	field, err := h.service.CreateField(r.Context(), req.Name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: field})
}

// ListFieldValues handles GET /api/v1/products/{id}/fields
func (h *ProductHandler) ListFieldValues(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	values, err := h.service.ListFieldValues(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: values})
}

// SetFieldValue handles PUT /api/v1/products/{id}/fields/{fieldId}
func (h *ProductHandler) SetFieldValue(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	fieldID, ok := httputil.ParseUUID(w, chi.URLParam(r, "fieldId"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req SetFieldValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	value, err := h.service.SetFieldValue(r.Context(), id.String(), fieldID.String(), req.Value)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: value})
}

// DeleteFieldValue handles DELETE /api/v1/products/{id}/fields/{fieldId}
func (h *ProductHandler) DeleteFieldValue(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	fieldID, ok := httputil.ParseUUID(w, chi.URLParam(r, "fieldId"))
	if !ok {
		return
	}

	if err := h.service.DeleteFieldValue(r.Context(), id.String(), fieldID.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
