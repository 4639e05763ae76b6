package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/document-management/internal/audit"
	"github.com/frahmantamala/document-management/internal/auth"
	"github.com/frahmantamala/document-management/internal/changerequest"
	"github.com/frahmantamala/document-management/internal/directory"
	"github.com/frahmantamala/document-management/internal/document"
	"github.com/frahmantamala/document-management/internal/permission"
	"github.com/frahmantamala/document-management/internal/transport/middleware"
	"github.com/frahmantamala/document-management/internal/transport/swagger"
	"github.com/frahmantamala/document-management/internal/workflow"
	"github.com/go-chi/chi"
)

type Handlers struct {
	Auth          *auth.Handler
	Document      *document.Handler
	Directory     *directory.Handler
	Permission    *permission.Handler
	Workflow      *workflow.Handler
	ChangeRequest *changerequest.Handler
	Audit         *audit.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, handlers Handlers, roles *auth.RoleAuthorization, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", handlers.Auth.Login)
			sr.Post("/refresh", handlers.Auth.RefreshToken)
			sr.Post("/logout", handlers.Auth.Logout)
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(handlers.Auth.AuthMiddleware)
			pr.Use(middleware.UserContext)

			pr.Route("/documents", func(dr chi.Router) {
				dr.Post("/", handlers.Document.CreateDocument)
				dr.Get("/", handlers.Document.ListDocuments)
				dr.Get("/{id}", handlers.Document.GetDocument)
				dr.Patch("/{id}", handlers.Document.UpdateDraft)
				dr.Post("/{id}/transitions", handlers.Document.TransitionDocument)
				dr.Post("/{id}/versions", handlers.Document.AddVersion)
				dr.Get("/{id}/versions", handlers.Document.ListVersions)
				dr.Get("/{id}/change-requests", handlers.ChangeRequest.ListByDocument)
			})

			pr.Route("/directories", func(dr chi.Router) {
				dr.Get("/", handlers.Directory.ListDirectories)
				dr.Get("/{id}", handlers.Directory.GetDirectory)

				// Tree mutations are manager territory
				dr.Group(func(mr chi.Router) {
					mr.Use(roles.RequireManager())
					mr.Post("/", handlers.Directory.CreateDirectory)
					mr.Patch("/{id}/parent", handlers.Directory.MoveDirectory)
				})
			})

			pr.Route("/grants", func(gr chi.Router) {
				gr.Post("/", handlers.Permission.GrantPermission)
				gr.Delete("/", handlers.Permission.RevokePermission)
				gr.Get("/{kind}/{id}", handlers.Permission.ListResourceGrants)
			})

			pr.Route("/decision-sets", func(wr chi.Router) {
				wr.Post("/", handlers.Workflow.CreateDecisionSet)
				wr.Get("/{id}", handlers.Workflow.GetDecisionSet)
				wr.Post("/decisions/{decisionID}", handlers.Workflow.RecordDecision)
			})

			pr.Route("/change-requests", func(cr chi.Router) {
				cr.Post("/", handlers.ChangeRequest.CreateChangeRequest)
				cr.Get("/{id}", handlers.ChangeRequest.GetChangeRequest)
				cr.Post("/{id}/transitions", handlers.ChangeRequest.TransitionChangeRequest)
			})

			// Audit queries and retention are admin-only
			pr.Route("/audit", func(ar chi.Router) {
				ar.Use(roles.RequireAdmin())
				ar.Get("/entries", handlers.Audit.ListEntries)
				ar.Delete("/entries", handlers.Audit.PurgeEntries)
			})
		})
	})
}
