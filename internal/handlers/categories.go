package handlers

import (
	"net/http"
	"strings"

	"rivulet/internal/db"
)

type createCategoryRequest struct {
	Name string `json:"name"`
}

// PostCategory creates a category for the user.
func (h *Handlers) PostCategory(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Name is required")
		return
	}

	cat, err := db.CreateCategory(user.ID, req.Name)
	if err != nil {
		if strings.Contains(err.Error(), "categories_user_id_name_key") {
			respondError(w, http.StatusConflict, "Category already exists")
			return
		}
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondData(w, http.StatusCreated, cat)
}

// GetCategories lists the user's categories.
func (h *Handlers) GetCategories(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	cats, err := db.GetCategoriesByUserID(user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondData(w, http.StatusOK, cats)
}
