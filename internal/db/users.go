package db

import (
	"rivulet/internal/models"
)

// GetUserByToken resolves an API token to a user.
func GetUserByToken(token string) (*models.User, error) {
	user := &models.User{}
	err := DB.Get(user, "SELECT * FROM users WHERE api_token = $1", token)
	if err != nil {
		return nil, err
	}
	return user, nil
}
