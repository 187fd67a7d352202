package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"vendorcompliance/models"
	"vendorcompliance/workflow"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("duplicate key")
	ErrVersionConflict = errors.New("version conflict")
)

// SubmissionFilter narrows submission listings. A nil Vendors slice means no
// vendor restriction; an empty non-nil slice matches nothing.
type SubmissionFilter struct {
	Vendors  []primitive.ObjectID
	VendorID *primitive.ObjectID
	Year     int
	Month    string
	Status   workflow.SubmissionStatus
	Limit    int64
}

// SubmissionStore persists document submissions. Update is a single conditional
// write: it succeeds only if the stored version still equals expectedVersion.
type SubmissionStore interface {
	Create(ctx context.Context, sub *models.DocumentSubmission) error
	GetBySubmissionID(ctx context.Context, submissionID string) (*models.DocumentSubmission, error)
	FindByPeriod(ctx context.Context, vendor primitive.ObjectID, year int, month string) (*models.DocumentSubmission, error)
	Update(ctx context.Context, sub *models.DocumentSubmission, expectedVersion int64) error
	List(ctx context.Context, filter SubmissionFilter) ([]models.DocumentSubmission, error)
	VendorHasDocumentType(ctx context.Context, vendor primitive.ObjectID, docType workflow.DocumentType, excludeSubmissionID string) (bool, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context, role string) ([]models.User, error)
	VendorsForConsultant(ctx context.Context, consultantID primitive.ObjectID) ([]models.User, error)
	AssignConsultant(ctx context.Context, vendorID, consultantID primitive.ObjectID) error
}

type ActivityStore interface {
	Insert(ctx context.Context, entry *models.ActivityLog) error
	Recent(ctx context.Context, limit int64) ([]models.ActivityLog, error)
}
