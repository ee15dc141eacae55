package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"rivulet/internal/middleware"
	"rivulet/internal/models"
	"rivulet/internal/query"
	"rivulet/pkg/tasks"
)

// Handlers carries the dependencies of the HTTP boundary.
type Handlers struct {
	asynqClient tasks.TaskEnqueuer
	inspector   tasks.TaskInspector
}

// New creates the handler set.
func New(asynqClient tasks.TaskEnqueuer, inspector tasks.TaskInspector) *Handlers {
	return &Handlers{asynqClient: asynqClient, inspector: inspector}
}

// envelope is the JSON shape of every API response.
type envelope struct {
	Success    bool              `json:"success"`
	Data       interface{}       `json:"data,omitempty"`
	Pagination *query.Pagination `json:"pagination,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondPage(w http.ResponseWriter, data interface{}, p query.Pagination) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Pagination: &p})
}

func respondError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestUser pulls the authenticated user stored by the auth middleware.
func requestUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(middleware.UserContextKey).(*models.User)
	return user
}

// pathID parses the {id} route variable. Invalid IDs are rejected before
// the core is reached.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}
