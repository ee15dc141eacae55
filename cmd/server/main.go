package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"rivulet/internal/db"
	"rivulet/internal/handlers"
	"rivulet/internal/middleware"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	db.InitDB()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	defer client.Close()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: redisAddr})
	defer inspector.Close()

	h := handlers.New(client, inspector)
	rateLimiter := middleware.NewRateLimiterMiddleware(rate.Limit(5), 10)

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware, rateLimiter.Middleware)

	api.HandleFunc("/feeds", h.GetFeeds).Methods(http.MethodGet)
	api.HandleFunc("/feeds", h.PostFeed).Methods(http.MethodPost)
	api.HandleFunc("/feeds/{id}/refresh", h.RefreshFeed).Methods(http.MethodPost)
	api.HandleFunc("/subscriptions/{id}", h.DeleteSubscription).Methods(http.MethodDelete)

	api.HandleFunc("/articles", h.GetArticles).Methods(http.MethodGet)
	api.HandleFunc("/articles/mark-read", h.MarkBulkRead).Methods(http.MethodPost)
	api.HandleFunc("/articles/{id}/read", h.MarkRead).Methods(http.MethodPost)
	api.HandleFunc("/articles/{id}/unread", h.MarkUnread).Methods(http.MethodPost)
	api.HandleFunc("/articles/{id}/toggle-saved", h.ToggleSaved).Methods(http.MethodPost)

	api.HandleFunc("/unread-count", h.GetUnreadCount).Methods(http.MethodGet)
	api.HandleFunc("/unread-counts/feeds", h.GetUnreadCountsByFeed).Methods(http.MethodGet)
	api.HandleFunc("/unread-counts/categories", h.GetUnreadCountsByCategory).Methods(http.MethodGet)

	api.HandleFunc("/categories", h.GetCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", h.PostCategory).Methods(http.MethodPost)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s (commit: %s)", port, CommitSHA)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal(err)
	}
}
