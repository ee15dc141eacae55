package db

import (
	"log"

	"rivulet/internal/models"
)

// CreateCategory creates a category for the user. A duplicate name fails
// on the unique constraint; callers surface that as a conflict.
func CreateCategory(userID int64, name string) (*models.Category, error) {
	cat := &models.Category{}
	err := DB.Get(cat, "INSERT INTO categories (user_id, name) VALUES ($1, $2) RETURNING *", userID, name)
	if err != nil {
		log.Printf("Error creating category for user %d: %v", userID, err)
		return nil, err
	}
	return cat, nil
}

// GetCategoriesByUserID lists the user's categories.
func GetCategoriesByUserID(userID int64) ([]models.Category, error) {
	cats := []models.Category{}
	err := DB.Select(&cats, "SELECT * FROM categories WHERE user_id = $1 ORDER BY name", userID)
	return cats, err
}

// GetCategoryByID returns one of the user's categories.
func GetCategoryByID(userID, categoryID int64) (models.Category, error) {
	cat := models.Category{}
	err := DB.Get(&cat, "SELECT * FROM categories WHERE id = $1 AND user_id = $2", categoryID, userID)
	return cat, err
}
