package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vendorcompliance/service"
	"vendorcompliance/utils"
)

// GetCurrentUser handles GET /api/user/me
var GetCurrentUser = withActor(func(w http.ResponseWriter, r *http.Request, actor service.Actor) {
	user, err := userService.Me(r.Context(), actor)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": user})
})

// ListUsers handles GET /api/admin/users?role
var ListUsers = withActor(func(w http.ResponseWriter, r *http.Request, actor service.Actor) {
	users, err := userService.ListUsers(r.Context(), actor, r.URL.Query().Get("role"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(users),
		"users":   users,
	})
})

// CreateUser handles POST /api/admin/users
var CreateUser = withActor(func(w http.ResponseWriter, r *http.Request, actor service.Actor) {
	var req service.NewUser
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	user, err := userService.CreateUser(r.Context(), actor, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "user": user})
})

// AssignConsultant handles PUT /api/admin/vendors/{vendorId}/consultant
var AssignConsultant = withActor(func(w http.ResponseWriter, r *http.Request, actor service.Actor) {
	vendorID, err := primitive.ObjectIDFromHex(mux.Vars(r)["vendorId"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid vendor ID")
		return
	}
	var req struct {
		ConsultantID string `json:"consultantId"`
	}
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	consultantID, err := primitive.ObjectIDFromHex(req.ConsultantID)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid consultant ID")
		return
	}

	if err := userService.AssignConsultant(r.Context(), actor, vendorID, consultantID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      "Consultant assigned",
		"vendorId":     vendorID,
		"consultantId": consultantID,
	})
})

// ListActivity handles GET /api/admin/activity?limit
var ListActivity = withActor(func(w http.ResponseWriter, r *http.Request, actor service.Actor) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	entries, err := activityStore.Recent(r.Context(), int64(limit))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(entries),
		"logs":    entries,
	})
})
