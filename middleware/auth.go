package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"vendorcompliance/logger"
	"vendorcompliance/store"
	"vendorcompliance/utils"
	"vendorcompliance/workflow"
)

type contextKey int

const userKey contextKey = iota

// AuthUser is the {id, role} claim the workflow trusts.
type AuthUser struct {
	ID   primitive.ObjectID
	Name string
	Role workflow.Role
}

// users, when set, lets AuthMiddleware reject tokens of deleted or disabled users.
var users store.UserStore

func SetUserStore(s store.UserStore) {
	users = s
}

func GetUser(ctx context.Context) (AuthUser, bool) {
	u, ok := ctx.Value(userKey).(AuthUser)
	return u, ok
}

func WithUser(ctx context.Context, u AuthUser) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondWithError(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
			return
		}

		claims, err := utils.ValidateJWT(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			log.Debug("JWT validation failed", zap.Error(err))
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token subject")
			return
		}
		role, ok := workflow.ParseRole(claims.Role)
		if !ok {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token role")
			return
		}

		if users != nil {
			user, err := users.GetByID(r.Context(), userID)
			switch {
			case errors.Is(err, store.ErrNotFound):
				utils.RespondWithError(w, http.StatusUnauthorized, "User not found")
				return
			case err != nil:
				log.Error("auth user lookup failed", zap.Error(err))
				utils.RespondWithError(w, http.StatusInternalServerError, "Authentication unavailable")
				return
			case !user.IsActive:
				utils.RespondWithError(w, http.StatusUnauthorized, "Account is disabled")
				return
			}
		}

		ctx := WithUser(r.Context(), AuthUser{ID: userID, Name: claims.Name, Role: role})
		ctx = logger.WithContext(ctx, log.With(zap.String("user_id", claims.UserID), zap.String("role", claims.Role)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects authenticated callers whose role is not listed.
func RequireRole(roles ...workflow.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.RespondWithError(w, http.StatusForbidden, "Access denied")
		})
	}
}
