package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"vendorcompliance/activity"
	"vendorcompliance/models"
	"vendorcompliance/store"
	"vendorcompliance/utils"
	"vendorcompliance/workflow"
)

// UserService covers login and the admin operations that shape access:
// creating users and assigning vendors to consultants.
type UserService struct {
	users    store.UserStore
	activity ActivityRecorder
	now      func() time.Time
}

func NewUserService(users store.UserStore, rec ActivityRecorder) *UserService {
	return &UserService{
		users:    users,
		activity: rec,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var ErrInvalidCredentials = errors.New("invalid email or password")

// Login checks the password and returns a signed token for the user.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, workflow.Validation("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive || !utils.CheckPasswordHash(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(user.ID.Hex(), user.Name, user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	if s.activity != nil {
		s.activity.Record(ctx, models.ActivityLog{
			UserID:      user.ID,
			UserRole:    user.Role,
			Action:      activity.ActionLogin,
			EntityType:  "user",
			Description: "Logged in",
		})
	}
	return token, user, nil
}

type NewUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Company  string `json:"company"`
	Phone    string `json:"phone"`
}

func (s *UserService) CreateUser(ctx context.Context, actor Actor, in NewUser) (*models.User, error) {
	if err := requireRole(actor, workflow.RoleAdmin); err != nil {
		return nil, err
	}
	user, err := s.createUser(ctx, in)
	if err != nil {
		return nil, err
	}

	if s.activity != nil {
		s.activity.Record(ctx, models.ActivityLog{
			UserID:      actor.ID,
			UserRole:    string(actor.Role),
			Action:      activity.ActionUserCreated,
			EntityType:  "user",
			Description: fmt.Sprintf("Created %s %s", user.Role, user.Email),
		})
	}
	return user, nil
}

// EnsureAdmin creates the first admin account unless the email is already taken.
// It reports whether a user was created.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	_, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("find admin: %w", err)
	}

	_, err = s.createUser(ctx, NewUser{
		Name:     "Administrator",
		Email:    email,
		Password: password,
		Role:     string(workflow.RoleAdmin),
	})
	if workflow.IsKind(err, workflow.KindConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserService) createUser(ctx context.Context, in NewUser) (*models.User, error) {
	role, ok := workflow.ParseRole(in.Role)
	if !ok {
		return nil, workflow.Validation("Invalid role %q", in.Role)
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, workflow.Validation("Invalid email address")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, workflow.Validation("Name is required")
	}
	if len(in.Password) < 8 {
		return nil, workflow.Validation("Password must be at least 8 characters")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         string(role),
		Company:      strings.TrimSpace(in.Company),
		Phone:        strings.TrimSpace(in.Phone),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, workflow.Conflict("A user with email %s already exists", email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, actor Actor, role string) ([]models.User, error) {
	if err := requireRole(actor, workflow.RoleAdmin); err != nil {
		return nil, err
	}
	if role != "" {
		if _, ok := workflow.ParseRole(role); !ok {
			return nil, workflow.Validation("Invalid role %q", role)
		}
	}
	users, err := s.users.ListUsers(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// AssignConsultant links a vendor to the consultant who reviews its submissions.
func (s *UserService) AssignConsultant(ctx context.Context, actor Actor, vendorID, consultantID primitive.ObjectID) error {
	if err := requireRole(actor, workflow.RoleAdmin); err != nil {
		return err
	}

	consultant, err := s.users.GetByID(ctx, consultantID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && consultant.Role != string(workflow.RoleConsultant)) {
		return workflow.NotFound("Consultant not found")
	}
	if err != nil {
		return fmt.Errorf("find consultant: %w", err)
	}

	err = s.users.AssignConsultant(ctx, vendorID, consultantID)
	if errors.Is(err, store.ErrNotFound) {
		return workflow.NotFound("Vendor not found")
	}
	if err != nil {
		return fmt.Errorf("assign consultant: %w", err)
	}

	if s.activity != nil {
		s.activity.Record(ctx, models.ActivityLog{
			UserID:      actor.ID,
			UserRole:    string(actor.Role),
			Action:      activity.ActionConsultantAssigned,
			EntityType:  "user",
			Description: fmt.Sprintf("Assigned vendor %s to consultant %s", vendorID.Hex(), consultant.Email),
			Details:     map[string]interface{}{"vendorId": vendorID.Hex(), "consultantId": consultantID.Hex()},
		})
	}
	return nil
}

func (s *UserService) Me(ctx context.Context, actor Actor) (*models.User, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, workflow.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
