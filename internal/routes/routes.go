package routes

import (
	"net/http"

	"github.com/tasknest/tasknest/internal/app"
	"github.com/tasknest/tasknest/internal/handler"
	"github.com/tasknest/tasknest/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	health := handler.NewHealthHandler(app.DB)
	auth := handler.NewAuthHandler(app.AuthService, app.ProfileService, app.Cfg.MaxUploadSize)
	task := handler.NewTaskHandler(app.TaskService, app.Cfg.MaxUploadSize)

	requireAuth := middleware.RequireAuth(app.AuthService)
	rateLimiter := middleware.RateLimitAuth()

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /health", health.Health)

	// Auth (rate limited)
	mux.HandleFunc("POST /auth/signup", rateLimiter(auth.Signup))
	mux.HandleFunc("POST /auth/login", rateLimiter(auth.Login))

	// Image serving is public; profile images are linked from pages that
	// render before login.
	mux.HandleFunc("GET /auth/image/{id}", auth.Image)
	mux.HandleFunc("GET /auth/user/image/{userId}", auth.UserImage)

	// ============================================================================
	// PROTECTED ROUTES
	// ============================================================================

	// Profile & image library
	mux.HandleFunc("GET /auth/profile", requireAuth(auth.Profile))
	mux.HandleFunc("POST /auth/uploads", requireAuth(auth.Upload))
	mux.HandleFunc("GET /auth/images", requireAuth(auth.Images))

	// Tasks
	mux.HandleFunc("GET /tasks", requireAuth(task.List))
	mux.HandleFunc("POST /tasks", requireAuth(task.Create))
	mux.HandleFunc("PUT /tasks/{id}", requireAuth(task.Update))
	mux.HandleFunc("DELETE /tasks/{id}", requireAuth(task.Delete))
	// /tasks/{id}/attachments and /tasks/attachment/{attachmentId} overlap
	// as mux patterns, so both go through one handler that branches on the
	// literal segment
	mux.HandleFunc("GET /tasks/{first}/{second}", requireAuth(task.Attachments))

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.RequestLogging,
	)
}
