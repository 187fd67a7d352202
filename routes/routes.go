package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"vendorcompliance/handlers"
	"vendorcompliance/metrics"
	"vendorcompliance/middleware"
	"vendorcompliance/workflow"
)

var (
	MethodsGetOnly  = []string{"GET", "OPTIONS"}
	MethodsPostOnly = []string{"POST", "OPTIONS"}
	MethodsPutOnly  = []string{"PUT", "OPTIONS"}
)

const (
	PathAPI         = "/api"
	PathSubmissions = "/document-submissions"
	PathHealth      = "/health"
)

// Options carries the handlers that are built outside the handlers package.
type Options struct {
	// Realtime is the websocket endpoint; nil disables /ws.
	Realtime http.Handler
	// UploadDir, when set, is served read-only under /uploads/ to signed-in users.
	UploadDir string
}

func RegisterRoutes(r *mux.Router, opts Options) {
	// ====================
	// PUBLIC
	// ====================
	r.HandleFunc(PathHealth, handlers.HealthCheck).Methods(MethodsGetOnly...)
	r.Handle("/metrics", metrics.Handler()).Methods(MethodsGetOnly...)
	r.HandleFunc("/api/auth/login", handlers.Login).Methods(MethodsPostOnly...)
	if opts.Realtime != nil {
		r.Handle("/ws", opts.Realtime).Methods("GET")
	}
	if opts.UploadDir != "" {
		files := http.StripPrefix("/uploads/", http.FileServer(http.Dir(opts.UploadDir)))
		r.PathPrefix("/uploads/").Handler(middleware.AuthMiddleware(files)).Methods(MethodsGetOnly...)
	}

	// ====================
	// PROTECTED API ROUTES
	// ====================
	apiRouter := r.PathPrefix(PathAPI).Subrouter()
	apiRouter.Use(middleware.AuthMiddleware)

	apiRouter.HandleFunc("/user/me", handlers.GetCurrentUser).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/document-types", handlers.GetDocumentTypes).Methods(MethodsGetOnly...)

	// ====================
	// DOCUMENT SUBMISSIONS
	// ====================
	vendorOnly := middleware.RequireRole(workflow.RoleVendor)
	apiRouter.Handle(PathSubmissions, vendorOnly(handlers.CreateSubmission)).Methods(MethodsPostOnly...)

	subs := apiRouter.PathPrefix(PathSubmissions).Subrouter()

	vendor := subs.NewRoute().Subrouter()
	vendor.Use(vendorOnly)
	vendor.HandleFunc("/vendor/submissions", handlers.GetVendorSubmissions).Methods(MethodsGetOnly...)
	vendor.HandleFunc("/{submissionId}/documents", handlers.UploadDocument).Methods(MethodsPostOnly...)
	vendor.HandleFunc("/{submissionId}/submit", handlers.SubmitSubmission).Methods(MethodsPostOnly...)
	vendor.HandleFunc("/{submissionId}/documents/{documentId}/resubmit", handlers.ResubmitDocument).Methods(MethodsPostOnly...)

	reviewer := subs.NewRoute().Subrouter()
	reviewer.Use(middleware.RequireRole(workflow.RoleConsultant, workflow.RoleAdmin))
	reviewer.HandleFunc("/consultant/submissions", handlers.GetConsultantSubmissions).Methods(MethodsGetOnly...)
	reviewer.HandleFunc("/{submissionId}/start-review", handlers.StartReview).Methods(MethodsPostOnly...)
	reviewer.HandleFunc("/{submissionId}/documents/{documentId}/status", handlers.UpdateDocumentStatus).Methods(MethodsPostOnly...)
	reviewer.HandleFunc("/{submissionId}/final-approval", handlers.FinalApproval).Methods(MethodsPostOnly...)

	// Any role; the service enforces ownership.
	subs.HandleFunc("/{submissionId}", handlers.GetSubmission).Methods(MethodsGetOnly...)

	// ====================
	// ADMIN
	// ====================
	admin := apiRouter.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireRole(workflow.RoleAdmin))
	admin.HandleFunc("/users", handlers.ListUsers).Methods(MethodsGetOnly...)
	admin.HandleFunc("/users", handlers.CreateUser).Methods(MethodsPostOnly...)
	admin.HandleFunc("/vendors/{vendorId}/consultant", handlers.AssignConsultant).Methods(MethodsPutOnly...)
	admin.HandleFunc("/activity", handlers.ListActivity).Methods(MethodsGetOnly...)
}
