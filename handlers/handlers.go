package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"vendorcompliance/logger"
	"vendorcompliance/middleware"
	"vendorcompliance/service"
	"vendorcompliance/store"
	"vendorcompliance/utils"
	"vendorcompliance/workflow"
)

// Deps are the collaborators the handlers call into.
type Deps struct {
	Submissions *service.SubmissionService
	Users       *service.UserService
	Activity    store.ActivityStore
	// Ping reports database health; nil means no database to check.
	Ping func(ctx context.Context) error
}

var (
	submissionService *service.SubmissionService
	userService       *service.UserService
	activityStore     store.ActivityStore
	pingDatabase      func(ctx context.Context) error
)

func Init(d Deps) {
	submissionService = d.Submissions
	userService = d.Users
	activityStore = d.Activity
	pingDatabase = d.Ping
}

func actorFrom(r *http.Request) (service.Actor, bool) {
	u, ok := middleware.GetUser(r.Context())
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{ID: u.ID, Role: u.Role}, true
}

// withActor resolves the caller or answers 401.
func withActor(fn func(w http.ResponseWriter, r *http.Request, actor service.Actor)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(r)
		if !ok {
			utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		fn(w, r, actor)
	}
}

// respondServiceError maps workflow errors to their status codes. Anything else
// is logged and reported as a 500 without detail.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var werr *workflow.Error
	if errors.As(err, &werr) {
		body := map[string]interface{}{"error": werr.Message}
		if len(werr.Missing) > 0 {
			body["missingDocuments"] = werr.Missing
		}
		utils.RespondWithJSON(w, werr.HTTPStatus(), body)
		return
	}
	if errors.Is(err, service.ErrInvalidCredentials) {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "Not found")
		return
	}

	logger.FromContext(r.Context()).Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, workflow.Validation("Invalid %s %q", name, v)
	}
	return n, nil
}
