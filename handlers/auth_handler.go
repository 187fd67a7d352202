// handlers/auth_handler.go
package handlers

import (
	"net/http"

	"vendorcompliance/utils"
)

// Login handles user authentication
func Login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := utils.ParseJSON(r, &creds); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	token, user, err := userService.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
		"user":    user,
	})
}
