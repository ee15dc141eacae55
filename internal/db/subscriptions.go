package db

import (
	"log"

	"rivulet/internal/models"
)

// GetSubscribedFeeds returns the user's subscriptions joined with their
// feeds, newest first, including feed health metadata.
func GetSubscribedFeeds(userID int64) ([]models.SubscribedFeed, error) {
	q := `
		SELECT s.id AS subscription_id, s.category_id, f.*
		FROM subscriptions s
		JOIN feeds f ON f.id = s.feed_id
		WHERE s.user_id = $1
		ORDER BY s.created_at DESC
	`
	feeds := []models.SubscribedFeed{}
	err := DB.Select(&feeds, q, userID)
	if err != nil {
		log.Printf("Error getting subscriptions for user %d: %v", userID, err)
		return nil, err
	}
	return feeds, nil
}

// AddSubscription subscribes a user to a feed. A duplicate (user, feed)
// pair fails on the unique constraint; callers surface that as a conflict.
func AddSubscription(userID, feedID int64, categoryID *int64) (*models.Subscription, error) {
	q := `
		INSERT INTO subscriptions (user_id, feed_id, category_id)
		VALUES ($1, $2, $3)
		RETURNING *
	`
	sub := &models.Subscription{}
	err := DB.Get(sub, q, userID, feedID, categoryID)
	if err != nil {
		log.Printf("Error adding subscription for user %d: %v", userID, err)
		return nil, err
	}
	return sub, nil
}

// GetSubscriptionForFeed returns the user's subscription to a feed, if any.
func GetSubscriptionForFeed(userID, feedID int64) (models.Subscription, error) {
	sub := models.Subscription{}
	err := DB.Get(&sub, "SELECT * FROM subscriptions WHERE user_id = $1 AND feed_id = $2", userID, feedID)
	return sub, err
}

// DeleteSubscription removes one of the user's subscriptions. The shared
// feed row stays; other users may still reference it.
func DeleteSubscription(userID, subscriptionID int64) error {
	_, err := DB.Exec("DELETE FROM subscriptions WHERE id = $1 AND user_id = $2", subscriptionID, userID)
	if err != nil {
		log.Printf("Error deleting subscription %d for user %d: %v", subscriptionID, userID, err)
		return err
	}
	return nil
}
