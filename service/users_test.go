package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"vendorcompliance/config"
	"vendorcompliance/store"
	"vendorcompliance/utils"
	"vendorcompliance/workflow"
)

func newUserService(t *testing.T) (*UserService, *store.MemoryStore, Actor) {
	t.Helper()
	utils.BcryptCost = 4
	config.JWTKey = []byte("service-test")
	config.JWTExpiration = time.Hour

	mem := store.NewMemoryStore()
	admin := Actor{ID: primitive.NewObjectID(), Role: workflow.RoleAdmin}
	return NewUserService(mem, nil), mem, admin
}

func TestCreateUserAndLogin(t *testing.T) {
	svc, _, admin := newUserService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, admin, NewUser{Name: "Acme", Email: " Vendor@Example.com ", Password: "password1", Role: "vendor"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.Email != "vendor@example.com" || user.PasswordHash == "" || !user.IsActive {
		t.Fatalf("user = %+v", user)
	}

	_, err = svc.CreateUser(ctx, admin, NewUser{Name: "Dup", Email: "vendor@example.com", Password: "password1", Role: "vendor"})
	wantKind(t, err, workflow.KindConflict)

	token, got, err := svc.Login(ctx, "VENDOR@example.com", "password1")
	if err != nil || got.ID != user.ID {
		t.Fatalf("login: %v", err)
	}
	claims, err := utils.ValidateJWT(token)
	if err != nil || claims.Role != "vendor" || claims.UserID != user.ID.Hex() {
		t.Fatalf("claims = %+v, %v", claims, err)
	}

	if _, _, err := svc.Login(ctx, "vendor@example.com", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, _, err := svc.Login(ctx, "ghost@example.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	svc, _, admin := newUserService(t)
	ctx := context.Background()

	cases := []NewUser{
		{Name: "X", Email: "x@example.com", Password: "password1", Role: "superuser"},
		{Name: "X", Email: "not-an-email", Password: "password1", Role: "vendor"},
		{Name: "", Email: "x@example.com", Password: "password1", Role: "vendor"},
		{Name: "X", Email: "x@example.com", Password: "short", Role: "vendor"},
	}
	for _, in := range cases {
		_, err := svc.CreateUser(ctx, admin, in)
		wantKind(t, err, workflow.KindValidation)
	}

	vendor := Actor{ID: primitive.NewObjectID(), Role: workflow.RoleVendor}
	_, err := svc.CreateUser(ctx, vendor, NewUser{Name: "X", Email: "x@example.com", Password: "password1", Role: "admin"})
	wantKind(t, err, workflow.KindForbidden)
}

func TestAssignConsultant(t *testing.T) {
	svc, mem, admin := newUserService(t)
	ctx := context.Background()

	vendor, _ := svc.CreateUser(ctx, admin, NewUser{Name: "V", Email: "v@example.com", Password: "password1", Role: "vendor"})
	consultant, _ := svc.CreateUser(ctx, admin, NewUser{Name: "C", Email: "c@example.com", Password: "password1", Role: "consultant"})

	if err := svc.AssignConsultant(ctx, admin, vendor.ID, vendor.ID); !workflow.IsKind(err, workflow.KindNotFound) {
		t.Fatalf("assigning a vendor as consultant: %v", err)
	}
	if err := svc.AssignConsultant(ctx, admin, consultant.ID, consultant.ID); !workflow.IsKind(err, workflow.KindNotFound) {
		t.Fatalf("assigning to a non-vendor: %v", err)
	}
	if err := svc.AssignConsultant(ctx, admin, vendor.ID, consultant.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	vendors, _ := mem.VendorsForConsultant(ctx, consultant.ID)
	if len(vendors) != 1 || vendors[0].ID != vendor.ID {
		t.Fatalf("vendors = %+v", vendors)
	}

	consultants, err := svc.ListUsers(ctx, admin, "consultant")
	if err != nil || len(consultants) != 1 {
		t.Fatalf("list consultants: %d %v", len(consultants), err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "root@example.com", "password1")
	if err != nil || !created {
		t.Fatalf("first call: created=%v err=%v", created, err)
	}
	created, err = svc.EnsureAdmin(ctx, "ROOT@example.com", "password1")
	if err != nil || created {
		t.Fatalf("second call: created=%v err=%v", created, err)
	}

	_, user, err := svc.Login(ctx, "root@example.com", "password1")
	if err != nil || user.Role != string(workflow.RoleAdmin) {
		t.Fatalf("login: %+v %v", user, err)
	}

	if _, err := svc.EnsureAdmin(ctx, "other@example.com", "short"); !workflow.IsKind(err, workflow.KindValidation) {
		t.Fatalf("short password: %v", err)
	}
}
