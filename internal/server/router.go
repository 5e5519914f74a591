package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

func NewRouter(h *Handlers) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/api/v1/code-review", h.CodeReview).Methods("POST")
	r.Use(requestLogging(h.Log))
	return r
}
