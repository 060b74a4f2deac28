package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"formbridge/internal/service"
	"formbridge/internal/transport/rest/handler"
	"formbridge/internal/transport/rest/middleware"
	"formbridge/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService     *service.AuthService
	FormService     *service.FormService
	ResponseService *service.ResponseService
	ExportService   *service.ExportService
	WSHub           *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	formHandler := handler.NewFormHandler(c.FormService)
	responseHandler := handler.NewResponseHandler(c.ResponseService, c.ExportService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.FormService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/responses/callback", responseHandler.Callback).Methods("POST", "OPTIONS")

	// WebSocket route (token in query param)
	v1.HandleFunc("/ws/forms/{formId}/live", wsHandler.LiveFeed).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Routes open to anonymous callers; the services apply the access
	// rules, a valid token just identifies the requester
	openRoutes := v1.NewRoute().Subrouter()
	openRoutes.Use(authMW.AttachUser)

	openRoutes.HandleFunc("/forms/{formId}", formHandler.Get).Methods("GET", "OPTIONS")
	openRoutes.HandleFunc("/responses", responseHandler.Submit).Methods("POST", "OPTIONS")
	openRoutes.HandleFunc("/responses/{responseId}/conversation", responseHandler.AppendConversation).Methods("POST", "OPTIONS")

	// Authenticated routes
	userRoutes := v1.NewRoute().Subrouter()
	userRoutes.Use(authMW.RequireUser)

	userRoutes.HandleFunc("/forms", formHandler.Create).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/forms", formHandler.List).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/forms/{formId}", formHandler.Update).Methods("PUT", "OPTIONS")
	userRoutes.HandleFunc("/forms/{formId}", formHandler.Delete).Methods("DELETE", "OPTIONS")
	userRoutes.HandleFunc("/forms/{formId}/publish", formHandler.Publish).Methods("POST", "OPTIONS")

	userRoutes.HandleFunc("/responses/form/{formId}", responseHandler.ListByForm).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/responses/form/{formId}/export", responseHandler.Export).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/responses/{responseId}", responseHandler.Get).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/responses/{responseId}", responseHandler.Delete).Methods("DELETE", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
