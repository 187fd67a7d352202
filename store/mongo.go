package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vendorcompliance/models"
	"vendorcompliance/workflow"
)

const (
	SubmissionsCollection = "documentsubmissions"
	UsersCollection       = "users"
	ActivityCollection    = "activitylogs"
)

// MongoSubmissionStore stores submissions with their documents embedded, so a
// document decision and the recomputed submission status land in one write.
type MongoSubmissionStore struct {
	coll *mongo.Collection
}

func NewMongoSubmissionStore(db *mongo.Database) *MongoSubmissionStore {
	return &MongoSubmissionStore{coll: db.Collection(SubmissionsCollection)}
}

func (s *MongoSubmissionStore) Create(ctx context.Context, sub *models.DocumentSubmission) error {
	if sub.ID.IsZero() {
		sub.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, sub); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert submission %s: %w", sub.SubmissionID, err)
	}
	return nil
}

func (s *MongoSubmissionStore) GetBySubmissionID(ctx context.Context, submissionID string) (*models.DocumentSubmission, error) {
	return s.findOne(ctx, bson.M{"submissionId": submissionID})
}

func (s *MongoSubmissionStore) FindByPeriod(ctx context.Context, vendor primitive.ObjectID, year int, month string) (*models.DocumentSubmission, error) {
	return s.findOne(ctx, bson.M{
		"vendor":             vendor,
		"uploadPeriod.year":  year,
		"uploadPeriod.month": month,
	})
}

func (s *MongoSubmissionStore) findOne(ctx context.Context, filter bson.M) (*models.DocumentSubmission, error) {
	var sub models.DocumentSubmission
	if err := s.coll.FindOne(ctx, filter).Decode(&sub); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &sub, nil
}

func (s *MongoSubmissionStore) Update(ctx context.Context, sub *models.DocumentSubmission, expectedVersion int64) error {
	next := sub.Clone()
	next.Version = expectedVersion + 1

	result, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": sub.ID, "version": expectedVersion},
		next,
	)
	if err != nil {
		return fmt.Errorf("update submission %s: %w", sub.SubmissionID, err)
	}
	if result.MatchedCount == 0 {
		// Either gone or written by someone else since it was read.
		n, err := s.coll.CountDocuments(ctx, bson.M{"_id": sub.ID})
		if err == nil && n == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	sub.Version = next.Version
	return nil
}

func (s *MongoSubmissionStore) List(ctx context.Context, filter SubmissionFilter) ([]models.DocumentSubmission, error) {
	query := bson.M{}
	if filter.Vendors != nil {
		query["vendor"] = bson.M{"$in": filter.Vendors}
	}
	if filter.VendorID != nil {
		if filter.Vendors != nil {
			query["$and"] = bson.A{bson.M{"vendor": *filter.VendorID}}
		} else {
			query["vendor"] = *filter.VendorID
		}
	}
	if filter.Year != 0 {
		query["uploadPeriod.year"] = filter.Year
	}
	if filter.Month != "" {
		query["uploadPeriod.month"] = filter.Month
	}
	if filter.Status != "" {
		query["submissionStatus"] = filter.Status
	}

	opts := options.Find().SetSort(bson.D{{Key: "lastModifiedDate", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer cursor.Close(ctx)

	subs := []models.DocumentSubmission{}
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, fmt.Errorf("decode submissions: %w", err)
	}
	return subs, nil
}

func (s *MongoSubmissionStore) VendorHasDocumentType(ctx context.Context, vendor primitive.ObjectID, docType workflow.DocumentType, excludeSubmissionID string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{
		"vendor":                 vendor,
		"submissionId":           bson.M{"$ne": excludeSubmissionID},
		"documents.documentType": docType,
	})
	if err != nil {
		return false, fmt.Errorf("count documents of type %q: %w", docType, err)
	}
	return n > 0, nil
}

// MongoUserStore stores vendor, consultant and admin accounts.
type MongoUserStore struct {
	coll *mongo.Collection
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{coll: db.Collection(UsersCollection)}
}

func (s *MongoUserStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := s.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (s *MongoUserStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if _, err := s.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *MongoUserStore) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	filter := bson.M{}
	if role != "" {
		filter["role"] = role
	}
	return s.find(ctx, filter)
}

func (s *MongoUserStore) VendorsForConsultant(ctx context.Context, consultantID primitive.ObjectID) ([]models.User, error) {
	return s.find(ctx, bson.M{
		"role":               string(workflow.RoleVendor),
		"assignedConsultant": consultantID,
	})
}

func (s *MongoUserStore) find(ctx context.Context, filter bson.M) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "email", Value: 1}})
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (s *MongoUserStore) AssignConsultant(ctx context.Context, vendorID, consultantID primitive.ObjectID) error {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": vendorID, "role": string(workflow.RoleVendor)},
		bson.M{"$set": bson.M{
			"assignedConsultant": consultantID,
			"updatedAt":          time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("assign consultant: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoActivityStore is the audit trail of workflow actions.
type MongoActivityStore struct {
	coll *mongo.Collection
}

func NewMongoActivityStore(db *mongo.Database) *MongoActivityStore {
	return &MongoActivityStore{coll: db.Collection(ActivityCollection)}
}

func (s *MongoActivityStore) Insert(ctx context.Context, entry *models.ActivityLog) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

func (s *MongoActivityStore) Recent(ctx context.Context, limit int64) ([]models.ActivityLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer cursor.Close(ctx)

	logs := []models.ActivityLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("decode activity: %w", err)
	}
	return logs, nil
}
