package catalog_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-support/internal/catalog"
	"ms-support/internal/logger"
)

type Handler struct {
	DB     *catalog.DB
	Logger *logger.Logger
}

// ListCategories returns the support categories shown on the booking surface.
// Accepts an optional ?limit= for the home-screen preview.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	categories, err := h.DB.ListCategories(r.Context(), limit)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListCategories: failed to list categories: %v", err))
		http.Error(w, "Failed to retrieve categories", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(categories); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListCategories: failed to encode response: %v", err))
	}
}

// GetCategory returns one support category by id.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "categoryId")

	category, err := h.DB.GetCategoryByID(r.Context(), categoryID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetCategory: category %s not found: %v", categoryID, err))
		http.Error(w, "Category not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(category); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetCategory: failed to encode response: %v", err))
	}
}
