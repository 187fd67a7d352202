// models/activity_log.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ActivityLog struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	UserRole     string             `bson:"userRole" json:"userRole"`
	Action       string             `bson:"action" json:"action"` // e.g. "document_approved", "submission_finalized"
	EntityType   string             `bson:"entityType" json:"entityType"`
	SubmissionID string             `bson:"submissionId,omitempty" json:"submissionId,omitempty"`
	DocumentID   primitive.ObjectID `bson:"documentId,omitempty" json:"documentId,omitempty"`
	Description  string             `bson:"description" json:"description"`
	Details      bson.M             `bson:"details,omitempty" json:"details,omitempty"`
	IPAddress    string             `bson:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	UserAgent    string             `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
